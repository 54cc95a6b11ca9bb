/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/fieldstore/codec"
	"github.com/suparena/fieldstore/datastore"
	"github.com/suparena/fieldstore/filter"
)

// UpsertAll puts values with BatchWriteItem, 25 items per request.
func (d *Store[V]) UpsertAll(ctx context.Context, values map[string]V) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	requests := make([]types.WriteRequest, 0, len(values))
	for _, k := range keys {
		av, err := d.marshalItem(k, values[k])
		if err != nil {
			return fmt.Errorf("item %s: %w", k, err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}
	return d.batchWrite(ctx, requests)
}

// Truncate deletes every item of the entity type.
func (d *Store[V]) Truncate(ctx context.Context) error {
	proj := expression.NamesList(expression.Name(AttrPK), expression.Name(AttrSK), expression.Name(AttrEntityType))
	input, err := d.scanInput(d.scope(), &proj)
	if err != nil {
		return err
	}

	var requests []types.WriteRequest
	err = d.scanPages(ctx, input, func(items []map[string]types.AttributeValue) error {
		for _, item := range items {
			if et, ok := item[AttrEntityType].(*types.AttributeValueMemberS); !ok || et.Value != d.entityType {
				continue
			}
			requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{AttrPK: item[AttrPK], AttrSK: item[AttrSK]},
			}})
		}
		return nil
	})
	if err != nil {
		return err
	}
	return d.batchWrite(ctx, requests)
}

// RenameFields rewrites every item holding one of the old attributes.
func (d *Store[V]) RenameFields(ctx context.Context, renames map[string]string) error {
	var holds expression.ConditionBuilder
	first := true
	for old := range renames {
		c := expression.AttributeExists(expression.Name(old))
		if first {
			holds, first = c, false
			continue
		}
		holds = holds.Or(c)
	}
	if first {
		return nil
	}

	docs, err := d.scanDocuments(ctx, d.scope().And(holds))
	if err != nil {
		return err
	}

	changed := make(map[string]V)
	for _, doc := range docs {
		key, ok := d.keyOf(doc)
		if !ok || !datastore.RenameDocument(doc, renames) {
			continue
		}
		var v V
		if err := codec.FromDocument(d.codec, doc, &v); err != nil {
			return fmt.Errorf("item %s: %w", key, err)
		}
		changed[key] = v
	}
	return d.UpsertAll(ctx, changed)
}

// keyOf reads the identifier text of a document. Key templates put the
// identifier last in PK, so it is recovered from the document itself.
func (d *Store[V]) keyOf(doc datastore.Document) (string, bool) {
	v, ok := filter.Lookup(doc, d.idField)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// batchWrite sends requests in chunks, resubmitting unprocessed items.
func (d *Store[V]) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	for start := 0; start < len(requests); start += maxBatchSize {
		end := min(start+maxBatchSize, len(requests))
		pending := map[string][]types.WriteRequest{d.tableName: requests[start:end]}

		for attempt := 0; len(pending[d.tableName]) > 0; attempt++ {
			if attempt > d.opts.maxRetries {
				return fmt.Errorf("BatchWriteItem left %d items unprocessed after %d retries",
					len(pending[d.tableName]), d.opts.maxRetries)
			}
			var out *sdk.BatchWriteItemOutput
			err := d.retry(ctx, "BatchWriteItem", func() error {
				var err error
				out, err = d.client.BatchWriteItem(ctx, &sdk.BatchWriteItemInput{RequestItems: pending})
				return err
			})
			if err != nil {
				return err
			}
			pending = out.UnprocessedItems
			if len(pending[d.tableName]) > 0 && attempt < d.opts.maxRetries {
				if err := sleep(ctx, d.opts.retryBackoff); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
