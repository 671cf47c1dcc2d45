// Package aws wraps AWS SDK construction and the SNS publishing path.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Config holds AWS client configuration.
type Config struct {
	Region string
}

// LoadAWSConfig loads SDK configuration using the default credential chain
// (environment, shared credentials file, IAM roles).
func LoadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
}
