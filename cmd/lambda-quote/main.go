package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dexroute/route-cache/internal/cachekey"
	"github.com/dexroute/route-cache/internal/notification"
	"github.com/dexroute/route-cache/internal/platform/aws"
	"github.com/dexroute/route-cache/internal/platform/config"
	"github.com/dexroute/route-cache/internal/platform/observability"
	"github.com/dexroute/route-cache/internal/quote"
	"github.com/dexroute/route-cache/internal/store"
	"github.com/dexroute/route-cache/internal/strategy"
)

var (
	logger  *observability.Logger
	service *quote.Service
)

func init() {
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))
	logger = observability.NewLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx := context.Background()
	awsCfg, err := aws.LoadAWSConfig(ctx, aws.Config{Region: cfg.AWS.Region})
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	backend, err := newBackend(cfg, awsCfg)
	if err != nil {
		logger.Error("failed to build cache backend", "error", err)
		os.Exit(1)
	}

	st := store.New(store.Config{
		Backend:      backend,
		Table:        strategy.DefaultTable(),
		TTL:          cfg.Cache.TTL,
		QueryTimeout: cfg.Cache.QueryTimeout,
		Logger:       logger,
	})

	var alerts *notification.Publisher
	if cfg.AWS.AlertTopicARN != "" {
		snsClient := aws.NewSNSClient(aws.SNSClientConfig{AWSConfig: awsCfg, Logger: logger})
		alerts = notification.NewPublisher(snsClient, cfg.AWS.AlertTopicARN, logger)
	}

	service = quote.NewService(quote.ServiceConfig{
		Store:    st,
		Computer: quote.NewHTTPComputer(cfg.Router.URL, cfg.Router.Timeout),
		Alerts:   alerts,
		Logger:   logger,
	})

	logger.Info("quote lambda initialized",
		"backend", cfg.Cache.Backend,
		"router_url", cfg.Router.URL,
	)
}

func newBackend(cfg *config.Config, awsCfg awssdk.Config) (store.Backend, error) {
	switch cfg.Cache.Backend {
	case "redis":
		return store.NewRedisBackend(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	default:
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoDB.Endpoint != "" {
				o.BaseEndpoint = awssdk.String(cfg.DynamoDB.Endpoint)
			}
		})
		return store.NewDynamoBackend(client, cfg.DynamoDB.TableName), nil
	}
}

type quoteRequest struct {
	ChainID     uint64          `json:"chain_id"`
	Direction   string          `json:"direction"`
	AmountToken string          `json:"amount_token"`
	QuoteToken  string          `json:"quote_token"`
	Amount      decimal.Decimal `json:"amount"`
	Protocols   []string        `json:"protocols"`
}

type quoteResponse struct {
	Route  json.RawMessage `json:"route"`
	Source string          `json:"source"`
	Mode   string          `json:"mode"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves one quote request from API Gateway.
func Handler(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var payload quoteRequest
	if err := json.Unmarshal([]byte(event.Body), &payload); err != nil {
		return respondError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err)), nil
	}

	req, err := toStoreRequest(payload)
	if err != nil {
		return respondError(http.StatusBadRequest, err.Error()), nil
	}

	start := time.Now()
	result, err := service.Quote(ctx, req)
	if err != nil {
		if errors.Is(err, quote.ErrNoRoute) {
			return respondError(http.StatusNotFound, "no route for the requested trade"), nil
		}
		logger.LogError(ctx, "quote failed", err,
			"chain_id", req.ChainID,
			"direction", req.Direction.String(),
		)
		return respondError(http.StatusBadGateway, "route computation unavailable"), nil
	}

	logger.LogInfo(ctx, "quote served",
		"source", string(result.Source),
		"mode", result.Mode.String(),
		"block", result.Route.BlockNumber,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	routeJSON, err := json.Marshal(result.Route)
	if err != nil {
		return respondError(http.StatusInternalServerError, "failed to encode route"), nil
	}

	body, _ := json.Marshal(quoteResponse{
		Route:  routeJSON,
		Source: string(result.Source),
		Mode:   result.Mode.String(),
	})
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func toStoreRequest(payload quoteRequest) (store.Request, error) {
	if payload.ChainID == 0 {
		return store.Request{}, fmt.Errorf("chain_id is required")
	}
	if !common.IsHexAddress(payload.AmountToken) || !common.IsHexAddress(payload.QuoteToken) {
		return store.Request{}, fmt.Errorf("amount_token and quote_token must be hex addresses")
	}
	if payload.Amount.Sign() <= 0 {
		return store.Request{}, fmt.Errorf("amount must be positive")
	}
	if len(payload.Protocols) == 0 {
		return store.Request{}, fmt.Errorf("at least one protocol is required")
	}

	direction, ok := cachekey.ParseTradeDirection(payload.Direction)
	if !ok {
		return store.Request{}, fmt.Errorf("invalid direction %q", payload.Direction)
	}

	return store.Request{
		ChainID:     payload.ChainID,
		Direction:   direction,
		AmountToken: common.HexToAddress(payload.AmountToken),
		QuoteToken:  common.HexToAddress(payload.QuoteToken),
		Amount:      payload.Amount,
		Protocols:   payload.Protocols,
	}, nil
}

func respondError(status int, msg string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(errorResponse{Error: msg})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func main() {
	lambda.Start(Handler)
}
