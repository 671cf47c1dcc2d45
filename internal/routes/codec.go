package routes

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion tags every encoded payload. Decoders reject versions they do
// not understand so a newer writer's records are safely skippable by an
// older reader, and vice versa.
const SchemaVersion = 1

// ErrUnknownSchema is returned when a payload carries an unsupported schema
// version.
var ErrUnknownSchema = errors.New("routes: unknown payload schema version")

type envelope struct {
	Version int          `json:"v"`
	Route   *CachedRoute `json:"route"`
}

// Encode serializes a route into the versioned byte payload stored in the
// backend.
func Encode(r *CachedRoute) ([]byte, error) {
	if r == nil {
		return nil, errors.New("routes: cannot encode nil route")
	}
	b, err := json.Marshal(envelope{Version: SchemaVersion, Route: r})
	if err != nil {
		return nil, fmt.Errorf("routes: encode failed: %w", err)
	}
	return b, nil
}

// Decode reconstructs a route from a stored payload.
func Decode(b []byte) (*CachedRoute, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("routes: decode failed: %w", err)
	}
	if env.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSchema, env.Version)
	}
	if env.Route == nil {
		return nil, errors.New("routes: payload carries no route")
	}
	return env.Route, nil
}
