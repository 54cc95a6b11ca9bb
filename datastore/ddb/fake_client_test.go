/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"sort"
	"sync"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeClient keeps items in memory. Scan ignores filter expressions, which
// the adapter re-checks in-process anyway, but honours paging.
type fakeClient struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	scanErrs        []error
	unprocessedOnce bool

	scanCalls  int
	batchCalls int
	lastScan   *sdk.ScanInput
}

var _ API = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKeyString(item map[string]types.AttributeValue) string {
	pk, _ := item[AttrPK].(*types.AttributeValueMemberS)
	sk, _ := item[AttrSK].(*types.AttributeValueMemberS)
	if pk == nil || sk == nil {
		return ""
	}
	return pk.Value + "|" + sk.Value
}

func (f *fakeClient) GetItem(ctx context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &sdk.GetItemOutput{Item: f.items[itemKeyString(in.Key)]}, nil
}

func (f *fakeClient) PutItem(ctx context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[itemKeyString(in.Item)] = in.Item
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeClient) DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, itemKeyString(in.Key))
	return &sdk.DeleteItemOutput{}, nil
}

func (f *fakeClient) Scan(ctx context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanCalls++
	f.lastScan = in
	if len(f.scanErrs) > 0 {
		err := f.scanErrs[0]
		f.scanErrs = f.scanErrs[1:]
		return nil, err
	}

	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := itemKeyString(in.ExclusiveStartKey)
		start = sort.SearchStrings(keys, after)
		if start < len(keys) && keys[start] == after {
			start++
		}
	}
	limit := len(keys)
	if in.Limit != nil {
		limit = int(*in.Limit)
	}

	out := &sdk.ScanOutput{}
	for i := start; i < len(keys) && len(out.Items) < limit; i++ {
		out.Items = append(out.Items, f.items[keys[i]])
	}
	if last := start + len(out.Items); last < len(keys) && len(out.Items) > 0 {
		lastItem := out.Items[len(out.Items)-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{AttrPK: lastItem[AttrPK], AttrSK: lastItem[AttrSK]}
	}
	return out, nil
}

func (f *fakeClient) BatchWriteItem(ctx context.Context, in *sdk.BatchWriteItemInput, _ ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++

	out := &sdk.BatchWriteItemOutput{}
	for table, requests := range in.RequestItems {
		if f.unprocessedOnce && len(requests) > 1 {
			f.unprocessedOnce = false
			out.UnprocessedItems = map[string][]types.WriteRequest{table: requests[len(requests)-1:]}
			requests = requests[:len(requests)-1]
		}
		for _, r := range requests {
			switch {
			case r.PutRequest != nil:
				f.items[itemKeyString(r.PutRequest.Item)] = r.PutRequest.Item
			case r.DeleteRequest != nil:
				delete(f.items, itemKeyString(r.DeleteRequest.Key))
			}
		}
	}
	return out, nil
}

func (f *fakeClient) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
