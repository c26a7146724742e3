package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/astro-auth-api/internal/domain"
)

// OTPRepo manages one-time code records.
// PK: otp_id. GSI email-created_at-index: (email, created_at) for
// newest-first lookup of the single active record per address.
//
// State transitions use conditional writes keyed on (attempts, is_used) so a
// lost race surfaces as domain.ErrConflict instead of silently clobbering a
// concurrent verification. Callers retry on conflict.
type OTPRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOTPRepo(client *dynamodb.Client, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName}
}

func (r *OTPRepo) Put(ctx context.Context, c *domain.OTPCode) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal otp code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// GetActiveByEmail returns the newest unused record for the email, or
// domain.ErrNotFound when none exists. Issuance keeps at most one unused
// record per address, so "newest" only matters while an issue is in flight.
func (r *OTPRepo) GetActiveByEmail(ctx context.Context, email string) (*domain.OTPCode, error) {
	recs, err := r.ListActiveByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("active code for %s: %w", email, domain.ErrNotFound)
	}
	return &recs[0], nil
}

// GetLatestByEmail returns the newest record for the email regardless of
// state, or domain.ErrNotFound. The validator uses it to derive the terminal
// reason (exhausted vs. simply absent) once no active record is left.
func (r *OTPRepo) GetLatestByEmail(ctx context.Context, email string) (*domain.OTPCode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("email-created_at-index"),
		KeyConditionExpression: aws.String("email = :e"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e": &types.AttributeValueMemberS{Value: email},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("code for %s: %w", email, domain.ErrNotFound)
	}
	var rec domain.OTPCode
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListActiveByEmail returns all unused records for the email, newest first.
func (r *OTPRepo) ListActiveByEmail(ctx context.Context, email string) ([]domain.OTPCode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("email-created_at-index"),
		KeyConditionExpression: aws.String("email = :e"),
		FilterExpression:       aws.String("is_used = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e": &types.AttributeValueMemberS{Value: email},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	var recs []domain.OTPCode
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// MarkUsed sets is_used unconditionally. Used for invalidation on issue and
// for the lazy expiry/exhaustion transitions, all of which are idempotent.
func (r *OTPRepo) MarkUsed(ctx context.Context, otpID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey("otp_id", otpID),
		UpdateExpression: aws.String("SET is_used = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	return err
}

// RecordFailedAttempt bumps attempts from expectedAttempts to
// expectedAttempts+1, optionally marking the record used when the bump
// reaches the cap. The write only lands if no other verifier touched the
// record since it was read; otherwise domain.ErrConflict is returned.
func (r *OTPRepo) RecordFailedAttempt(ctx context.Context, otpID string, expectedAttempts int, markUsed bool) error {
	expr := "SET attempts = :n"
	values := map[string]types.AttributeValue{
		":n":   &types.AttributeValueMemberN{Value: strconv.Itoa(expectedAttempts + 1)},
		":exp": &types.AttributeValueMemberN{Value: strconv.Itoa(expectedAttempts)},
		":f":   &types.AttributeValueMemberBOOL{Value: false},
	}
	if markUsed {
		expr += ", is_used = :t"
		values[":t"] = &types.AttributeValueMemberBOOL{Value: true}
	}
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("otp_id", otpID),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attempts = :exp AND is_used = :f"),
		ExpressionAttributeValues: values,
	})
	return asConflict(err)
}

// Consume marks the record used after a successful comparison. The same
// (attempts, is_used) guard ensures exactly one of several racing correct
// submissions wins.
func (r *OTPRepo) Consume(ctx context.Context, otpID string, expectedAttempts int) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("otp_id", otpID),
		UpdateExpression:    aws.String("SET is_used = :t"),
		ConditionExpression: aws.String("attempts = :exp AND is_used = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":   &types.AttributeValueMemberBOOL{Value: true},
			":f":   &types.AttributeValueMemberBOOL{Value: false},
			":exp": &types.AttributeValueMemberN{Value: strconv.Itoa(expectedAttempts)},
		},
	})
	return asConflict(err)
}
