package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/dexroute/route-cache/internal/platform/observability"
	"github.com/dexroute/route-cache/internal/platform/resilience"
)

// SNSClient wraps the AWS SNS client with retry and a circuit breaker so a
// failing topic cannot stall or cascade into the caller.
type SNSClient struct {
	client      *sns.Client
	breaker     *resilience.CircuitBreaker
	retryConfig resilience.RetryConfig
	logger      *observability.Logger
}

// SNSClientConfig holds SNS client construction options.
type SNSClientConfig struct {
	AWSConfig   aws.Config
	Logger      *observability.Logger
	RetryConfig *resilience.RetryConfig
}

// NewSNSClient builds an SNS client with the default breaker and retry
// budget unless overridden.
func NewSNSClient(cfg SNSClientConfig) *SNSClient {
	retryConfig := resilience.DefaultRetryConfig()
	if cfg.RetryConfig != nil {
		retryConfig = *cfg.RetryConfig
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             "sns",
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		OnStateChange: func(from, to resilience.State) {
			logger.Info("SNS circuit breaker state changed",
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &SNSClient{
		client:      sns.NewFromConfig(cfg.AWSConfig),
		breaker:     breaker,
		retryConfig: retryConfig,
		logger:      logger,
	}
}

// Publish publishes a JSON-encoded message with string attributes, guarded
// by the breaker and retry budget.
func (s *SNSClient) Publish(ctx context.Context, topicARN string, message interface{}, attributes map[string]string) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.Retry(ctx, s.retryConfig, func(ctx context.Context) error {
			return s.publishOnce(ctx, topicARN, string(payload), attributes)
		})
	})
	if err != nil {
		s.logger.LogError(ctx, "SNS publish failed", err, "topic_arn", topicARN)
	}
	return err
}

func (s *SNSClient) publishOnce(ctx context.Context, topicARN, message string, attributes map[string]string) error {
	messageAttributes := make(map[string]types.MessageAttributeValue, len(attributes))
	for k, v := range attributes {
		messageAttributes[k] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(v),
		}
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(topicARN),
		Message:           aws.String(message),
		MessageAttributes: messageAttributes,
	})
	if err != nil {
		return fmt.Errorf("SNS publish failed: %w", err)
	}
	return nil
}

// BreakerState returns the current circuit breaker state.
func (s *SNSClient) BreakerState() resilience.State {
	return s.breaker.State()
}
