/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/fieldstore/datastore"
)

// scope restricts a scan to the items of this entity type.
func (d *Store[V]) scope() expression.ConditionBuilder {
	return expression.Name(AttrEntityType).Equal(expression.Value(d.entityType))
}

// scanInput builds a paginated Scan of the items matching cond.
func (d *Store[V]) scanInput(cond expression.ConditionBuilder, projection *expression.ProjectionBuilder) (*sdk.ScanInput, error) {
	b := expression.NewBuilder().WithFilter(cond)
	if projection != nil {
		b = b.WithProjection(*projection)
	}
	expr, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan expression: %w", err)
	}
	return &sdk.ScanInput{
		TableName:                 &d.tableName,
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(d.opts.pageSize),
	}, nil
}

// scanPages walks every page of input, handing each page's items to fn.
func (d *Store[V]) scanPages(ctx context.Context, input *sdk.ScanInput, fn func([]map[string]types.AttributeValue) error) error {
	var lastEvaluatedKey map[string]types.AttributeValue
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		input.ExclusiveStartKey = lastEvaluatedKey

		out, err := d.scanWithRetry(ctx, input)
		if err != nil {
			return err
		}
		if err := fn(out.Items); err != nil {
			return err
		}

		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		lastEvaluatedKey = out.LastEvaluatedKey
	}
}

// scanDocuments returns the documents of every item matching cond.
func (d *Store[V]) scanDocuments(ctx context.Context, cond expression.ConditionBuilder) ([]datastore.Document, error) {
	input, err := d.scanInput(cond, nil)
	if err != nil {
		return nil, err
	}
	docs := make([]datastore.Document, 0)
	err = d.scanPages(ctx, input, func(items []map[string]types.AttributeValue) error {
		for _, item := range items {
			doc, ok, err := d.itemDocument(item)
			if err != nil {
				return err
			}
			if ok {
				docs = append(docs, doc)
			}
		}
		return nil
	})
	return docs, err
}

// scanWithRetry executes a Scan, retrying throttling and transient failures
// with linear backoff.
func (d *Store[V]) scanWithRetry(ctx context.Context, input *sdk.ScanInput) (*sdk.ScanOutput, error) {
	var out *sdk.ScanOutput
	err := d.retry(ctx, "scan", func() error {
		var err error
		out, err = d.client.Scan(ctx, input)
		return err
	})
	return out, err
}

func (d *Store[V]) retry(ctx context.Context, op string, call func() error) error {
	var lastErr error
	for attempt := 0; attempt <= d.opts.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := call()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return fmt.Errorf("%s failed: %w", op, err)
		}

		// Don't sleep after last attempt
		if attempt < d.opts.maxRetries {
			if err := sleep(ctx, time.Duration(attempt+1)*d.opts.retryBackoff); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%s failed after %d retries: %w", op, d.opts.maxRetries, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var (
		throughput *types.ProvisionedThroughputExceededException
		limit      *types.RequestLimitExceeded
		internal   *types.InternalServerError
	)
	if errors.As(err, &throughput) || errors.As(err, &limit) || errors.As(err, &internal) {
		return true
	}

	// Check for AWS SDK retryable errors
	var retryable interface{ IsRetryable() bool }
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}
