// Command sharingan-lambda serves the semantic search function behind API Gateway.
package main

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"github.com/kailas-cloud/sharingan/internal/app"
	"github.com/kailas-cloud/sharingan/internal/config"
	logpkg "github.com/kailas-cloud/sharingan/internal/logger"
	"github.com/kailas-cloud/sharingan/internal/transport/function"
	"github.com/kailas-cloud/sharingan/internal/version"
)

const env = "lambda"

func main() {
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Cold start",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("function", lambdacontext.FunctionName),
	)

	application, err := app.New(context.Background(), &cfg, logger)
	if err != nil {
		logger.Fatal("Failed to assemble application", zap.Error(err))
	}
	defer application.Close()

	lambda.Start(newProxyHandler(application.Handler, logger))
}

type proxyHandler func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// newProxyHandler adapts API Gateway proxy events to the function handler.
// Failures are always reported through the response body, never as a Lambda error.
func newProxyHandler(h *function.Handler, logger *zap.Logger) proxyHandler {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		ev := toEvent(ctx, req, logger)
		resp := h.Invoke(ctx, ev)
		return events.APIGatewayProxyResponse{
			StatusCode: resp.StatusCode,
			Headers:    resp.Headers,
			Body:       resp.Body,
		}, nil
	}
}

func toEvent(ctx context.Context, req events.APIGatewayProxyRequest, logger *zap.Logger) function.Event {
	body := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			// left as-is; the handler reports it as an invalid body
			logger.Warn("Failed to decode base64 body", zap.Error(err))
		} else {
			body = string(decoded)
		}
	}

	ev := function.Event{
		Body:            body,
		HTTPMethod:      req.HTTPMethod,
		Path:            req.Path,
		Headers:         req.Headers,
		RequestID:       req.RequestContext.RequestID,
		FunctionName:    lambdacontext.FunctionName,
		FunctionVersion: lambdacontext.FunctionVersion,
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		ev.RequestID = lc.AwsRequestID
	}
	return ev
}
