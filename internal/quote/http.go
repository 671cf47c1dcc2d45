package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dexroute/route-cache/internal/routes"
	"github.com/dexroute/route-cache/internal/store"
)

// HTTPComputer delegates route computation to the external routing engine
// over HTTP.
type HTTPComputer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPComputer builds a computer against the routing engine at baseURL.
// The timeout bounds the whole computation round trip.
func NewHTTPComputer(baseURL string, timeout time.Duration) *HTTPComputer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPComputer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type computeRequest struct {
	ChainID   uint64          `json:"chain_id"`
	Direction string          `json:"direction"`
	TokenIn   common.Address  `json:"token_in"`
	TokenOut  common.Address  `json:"token_out"`
	Amount    decimal.Decimal `json:"amount"`
	Protocols []string        `json:"protocols"`
}

// ComputeRoute implements RouteComputer.
func (c *HTTPComputer) ComputeRoute(ctx context.Context, req store.Request) (*routes.CachedRoute, error) {
	id := req.PairIdentity()
	body, err := json.Marshal(computeRequest{
		ChainID:   req.ChainID,
		Direction: req.Direction.String(),
		TokenIn:   id.TokenIn,
		TokenOut:  id.TokenOut,
		Amount:    req.Amount,
		Protocols: req.Protocols,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal compute request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/route", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build compute request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("route computation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("routing engine returned %d: %s", resp.StatusCode, snippet)
	}

	var route routes.CachedRoute
	if err := json.NewDecoder(resp.Body).Decode(&route); err != nil {
		return nil, fmt.Errorf("failed to decode computed route: %w", err)
	}
	if len(route.Routes) == 0 {
		return nil, fmt.Errorf("routing engine returned no route for %s", id.CanonicalString())
	}
	return &route, nil
}
