// Package notification publishes operational alerts about cache health to
// SNS. Alerting is strictly off the serving path: a failed publish is logged
// and forgotten.
package notification

import (
	"context"
	"time"

	"github.com/dexroute/route-cache/internal/platform/aws"
	"github.com/dexroute/route-cache/internal/platform/observability"
)

// DriftAlert reports a shadow-mode comparison where the cached route no
// longer matches what the routing engine computes.
type DriftAlert struct {
	Pair           string    `json:"pair"`
	PartitionKey   string    `json:"partition_key"`
	Mode           string    `json:"mode"`
	CachedBlock    uint64    `json:"cached_block"`
	FreshBlock     uint64    `json:"fresh_block"`
	CachedSplits   int       `json:"cached_splits"`
	FreshSplits    int       `json:"fresh_splits"`
	DivergentPaths []string  `json:"divergent_paths,omitempty"`
	ObservedAt     time.Time `json:"observed_at"`
}

// Publisher sends alerts to a configured SNS topic. A Publisher with an
// empty topic ARN is a no-op, which keeps local development quiet.
type Publisher struct {
	sns      *aws.SNSClient
	topicARN string
	logger   *observability.Logger
}

// NewPublisher builds a publisher. Pass an empty topicARN to disable.
func NewPublisher(sns *aws.SNSClient, topicARN string, logger *observability.Logger) *Publisher {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Publisher{sns: sns, topicARN: topicARN, logger: logger}
}

// Enabled reports whether alerts will actually be sent.
func (p *Publisher) Enabled() bool {
	return p != nil && p.sns != nil && p.topicARN != ""
}

// PublishDrift sends a drift alert. Errors are absorbed after logging.
func (p *Publisher) PublishDrift(ctx context.Context, alert DriftAlert) {
	if !p.Enabled() {
		return
	}

	err := p.sns.Publish(ctx, p.topicARN, alert, map[string]string{
		"alert_type": "route_drift",
		"pair":       alert.Pair,
	})
	if err != nil {
		p.logger.LogWarn(ctx, "failed to publish drift alert",
			"pair", alert.Pair,
			"error", err,
		)
		return
	}
	p.logger.LogInfo(ctx, "published drift alert",
		"pair", alert.Pair,
		"cached_block", alert.CachedBlock,
		"fresh_block", alert.FreshBlock,
	)
}
