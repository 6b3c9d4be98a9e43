package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"sentiment-service/handler"
	"sentiment-service/internal/integrations/inference"
	"sentiment-service/internal/integrations/notify"
	"sentiment-service/internal/integrations/objectstore"
	"sentiment-service/internal/integrations/paramstore"
	"sentiment-service/internal/repository"
	"sentiment-service/internal/usecase"
)

func main() {
	ctx := context.Background()
	logger := slog.Default()

	// ---- Configuration (read only here) ----
	tableName := mustEnv("TABLE_NAME")
	uploadBucket := mustEnv("UPLOAD_BUCKET")
	jobsTopicARN := mustEnv("JOBS_TOPIC_ARN")
	alertsTopicARN := mustEnv("ALERTS_TOPIC_ARN")
	paramPrefix := mustEnv("PARAM_PREFIX")
	maxTextLen := envInt("MAX_TEXT_LENGTH", usecase.DefaultMaxTextLength)
	rowRetries := envInt("ROW_RETRY_COUNT", 0)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg), paramPrefix)
	if err != nil {
		logger.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(cfg), tableName)
	if err != nil {
		logger.Error("failed to create record store", "err", err)
		os.Exit(1)
	}
	model, err := inference.NewClient(ssmClient)
	if err != nil {
		logger.Error("failed to create inference client", "err", err)
		os.Exit(1)
	}
	files, err := objectstore.New(awss3.NewFromConfig(cfg), uploadBucket)
	if err != nil {
		logger.Error("failed to create object store client", "err", err)
		os.Exit(1)
	}
	snsClient := awssns.NewFromConfig(cfg)
	jobs, err := notify.New(snsClient, jobsTopicARN)
	if err != nil {
		logger.Error("failed to create jobs publisher", "err", err)
		os.Exit(1)
	}
	alerts, err := notify.New(snsClient, alertsTopicARN)
	if err != nil {
		logger.Error("failed to create alerts publisher", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	classifier, err := usecase.NewClassifier(model, maxTextLen)
	if err != nil {
		logger.Error("failed to create classifier", "err", err)
		os.Exit(1)
	}
	svc, err := usecase.NewBatchService(classifier, store, files, jobs, alerts, logger, rowRetries)
	if err != nil {
		logger.Error("failed to create batch service", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewBatchHandler(svc, logger)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
