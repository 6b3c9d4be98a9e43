package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"sentiment-service/internal/domain"
)

var (
	// ErrJobNotFound is returned when no BatchJob exists for a batch id.
	ErrJobNotFound = errors.New("repository: batch job not found")
	// ErrInvalidTransition is returned when a conditional job update is
	// rejected, i.e. the job is not in the state the transition requires.
	ErrInvalidTransition = errors.New("repository: invalid job status transition")
	// ErrBadCursor is returned for pagination cursors that cannot be decoded
	// or that were issued for a different query.
	ErrBadCursor = errors.New("repository: invalid pagination cursor")
	// ErrDuplicateRecord is returned when an analysis record already exists
	// under its key. With deterministic keys a retried write hits this
	// instead of duplicating the record.
	ErrDuplicateRecord = errors.New("repository: analysis record already exists")
)

// dynamodbAPI is the minimal DynamoDB interface required by Store.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// HistoryPage is one page of a user's analysis history.
type HistoryPage struct {
	Records    []domain.AnalysisRecord
	NextCursor string
}

// ItemPage is one page of per-row batch results.
type ItemPage struct {
	Items      []domain.BatchItemResult
	NextCursor string
}

// Store is the typed access layer over the single DynamoDB table. The
// PK/SK key scheme stays internal to this package.
type Store struct {
	api       dynamodbAPI
	tableName string
}

// New creates a Store over the given table.
func New(api dynamodbAPI, tableName string) (*Store, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Store{api: api, tableName: tableName}, nil
}

// PutAnalysis persists a new analysis record. Records are immutable, so an
// existing key is rejected rather than overwritten.
func (s *Store) PutAnalysis(ctx context.Context, rec domain.AnalysisRecord) error {
	item, err := encodeAnalysis(rec)
	if err != nil {
		return err
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("repository: PutAnalysis %s: %w", rec.RequestID, ErrDuplicateRecord)
		}
		return fmt.Errorf("repository: PutAnalysis: %w", err)
	}
	return nil
}

// CreateJob writes a new QUEUED job record. Fails if the batch id is
// already taken.
func (s *Store) CreateJob(ctx context.Context, job domain.BatchJob) error {
	item, err := encodeJob(job)
	if err != nil {
		return err
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: CreateJob: %w", err)
	}
	return nil
}

// GetJob loads the metadata record for a batch. Returns ErrJobNotFound
// when it does not exist.
func (s *Store) GetJob(ctx context.Context, batchID string) (domain.BatchJob, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: batchPK(batchID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.BatchJob{}, fmt.Errorf("repository: GetJob: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.BatchJob{}, ErrJobNotFound
	}
	return decodeJob(out.Item)
}

// StartJob moves a job from QUEUED to PROCESSING and records the row count
// discovered in the input. The conditional write rejects any other source
// state, keeping transitions monotonic under concurrent re-invocations.
func (s *Store) StartJob(ctx context.Context, batchID string, totalItems int) error {
	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: batchPK(batchID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		UpdateExpression:    aws.String("SET #st = :processing, total_items = :total, processed_items = :zero, failed_items = :zero"),
		ConditionExpression: aws.String("#st = :queued"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":processing": &types.AttributeValueMemberS{Value: string(domain.JobProcessing)},
			":queued":     &types.AttributeValueMemberS{Value: string(domain.JobQueued)},
			":total":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", totalItems)},
			":zero":       &types.AttributeValueMemberN{Value: "0"},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("repository: StartJob %s: %w", batchID, ErrInvalidTransition)
		}
		return fmt.Errorf("repository: StartJob: %w", err)
	}
	return nil
}

// UpdateJobProgress checkpoints the row counters of a PROCESSING job. The
// orchestrator is the single writer, so counters are set absolutely rather
// than incremented.
func (s *Store) UpdateJobProgress(ctx context.Context, batchID string, processed, failed int) error {
	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: batchPK(batchID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		UpdateExpression:    aws.String("SET processed_items = :processed, failed_items = :failed"),
		ConditionExpression: aws.String("#st = :processing AND :processed <= total_items"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":processing": &types.AttributeValueMemberS{Value: string(domain.JobProcessing)},
			":processed":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", processed)},
			":failed":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", failed)},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("repository: UpdateJobProgress %s: %w", batchID, ErrInvalidTransition)
		}
		return fmt.Errorf("repository: UpdateJobProgress: %w", err)
	}
	return nil
}

// FinishJob moves a live job into a terminal state and stamps
// completed_at. QUEUED may fail directly (input unreadable before any row
// was attempted); a job already terminal rejects the write.
func (s *Store) FinishJob(ctx context.Context, batchID string, status domain.JobStatus, completedAt time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("repository: FinishJob: %q is not a terminal status", status)
	}
	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: batchPK(batchID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		UpdateExpression:    aws.String("SET #st = :status, completed_at = :completed"),
		ConditionExpression: aws.String("#st = :processing OR #st = :queued"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":     &types.AttributeValueMemberS{Value: string(status)},
			":processing": &types.AttributeValueMemberS{Value: string(domain.JobProcessing)},
			":queued":     &types.AttributeValueMemberS{Value: string(domain.JobQueued)},
			":completed":  &types.AttributeValueMemberS{Value: completedAt.UTC().Format(tsLayout)},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("repository: FinishJob %s: %w", batchID, ErrInvalidTransition)
		}
		return fmt.Errorf("repository: FinishJob: %w", err)
	}
	return nil
}

// PutItemResult upserts the outcome for one row. Keyed by row index, so a
// retried row overwrites its previous result rather than duplicating it.
func (s *Store) PutItemResult(ctx context.Context, res domain.BatchItemResult) error {
	item, err := encodeItemResult(res)
	if err != nil {
		return err
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: PutItemResult: %w", err)
	}
	return nil
}

// QueryUserHistory returns one page of a user's records, newest first.
func (s *Store) QueryUserHistory(ctx context.Context, userID, cursor string, limit int) (HistoryPage, error) {
	pk := userPK(userID)
	startKey, err := decodeCursor(cursor, pk)
	if err != nil {
		return HistoryPage{}, err
	}

	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: pk},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixTS},
		},
		ScanIndexForward:  aws.Bool(false),
		Limit:             aws.Int32(int32(limit)),
		ExclusiveStartKey: startKey,
	})
	if err != nil {
		return HistoryPage{}, fmt.Errorf("repository: QueryUserHistory: %w", err)
	}

	records := make([]domain.AnalysisRecord, 0, len(out.Items))
	for _, item := range out.Items {
		rec, err := decodeAnalysis(item)
		if err != nil {
			return HistoryPage{}, fmt.Errorf("repository: QueryUserHistory: %w", err)
		}
		records = append(records, rec)
	}
	next, err := encodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return HistoryPage{}, err
	}
	return HistoryPage{Records: records, NextCursor: next}, nil
}

// QueryBatchItems returns one page of per-row results in ascending row
// order.
func (s *Store) QueryBatchItems(ctx context.Context, batchID, cursor string, limit int) (ItemPage, error) {
	pk := batchPK(batchID)
	startKey, err := decodeCursor(cursor, pk)
	if err != nil {
		return ItemPage{}, err
	}

	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: pk},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixItem},
		},
		Limit:             aws.Int32(int32(limit)),
		ExclusiveStartKey: startKey,
	})
	if err != nil {
		return ItemPage{}, fmt.Errorf("repository: QueryBatchItems: %w", err)
	}

	items := make([]domain.BatchItemResult, 0, len(out.Items))
	for _, item := range out.Items {
		res, err := decodeItemResult(item)
		if err != nil {
			return ItemPage{}, fmt.Errorf("repository: QueryBatchItems: %w", err)
		}
		items = append(items, res)
	}
	next, err := encodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return ItemPage{}, err
	}
	return ItemPage{Items: items, NextCursor: next}, nil
}

func isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
