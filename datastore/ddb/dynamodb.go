/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/fieldstore/codec"
	"github.com/suparena/fieldstore/datastore"
	storeerrors "github.com/suparena/fieldstore/errors"
)

// Attributes the adapter adds to every item.
const (
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrEntityType = "EntityType"
)

// API is the subset of the DynamoDB client the adapter calls.
type API interface {
	GetItem(ctx context.Context, in *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, in *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Scan(ctx context.Context, in *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
	BatchWriteItem(ctx context.Context, in *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error)
}

var _ API = (*sdk.Client)(nil)

// Config locates the DynamoDB table.
type Config struct {
	AccessKey string
	SecretKey string
	Region    string
	TableName string
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string
}

// Store is a datastore.Backend over one entity type in a single-table design:
// items share the DynamoDB table and are told apart by EntityType.
type Store[V any] struct {
	client     API
	tableName  string
	entityType string
	idField    string
	codec      codec.Codec
	opts       options
}

var (
	_ datastore.Backend[struct{}]       = (*Store[struct{}])(nil)
	_ datastore.KeyReader[struct{}]     = (*Store[struct{}])(nil)
	_ datastore.BatchUpserter[struct{}] = (*Store[struct{}])(nil)
)

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// NewDynamoDBClient initializes a DynamoDB client. Empty keys fall back to the
// default AWS credential chain.
func NewDynamoDBClient(ctx context.Context, cfg Config) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Open creates a client from cfg and binds schema to cfg.TableName.
func Open[V any](ctx context.Context, cfg Config, schema datastore.Schema, opts ...Option) (*Store[V], error) {
	if cfg.TableName == "" {
		return nil, storeerrors.NewConfigurationError("tableName", "DynamoDB table name is required")
	}
	if cfg.Region == "" {
		return nil, storeerrors.NewConfigurationError("region", "AWS region is required")
	}
	client, err := NewDynamoDBClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	return New[V](client, cfg.TableName, schema, opts...)
}

// New binds schema to tableName through client. schema.Table becomes the
// EntityType of every item written.
func New[V any](client API, tableName string, schema datastore.Schema, opts ...Option) (*Store[V], error) {
	if client == nil {
		return nil, storeerrors.NewConfigurationError("client", "a DynamoDB client is required")
	}
	if tableName == "" {
		return nil, storeerrors.NewConfigurationError("tableName", "DynamoDB table name is required")
	}
	if schema.Table == "" {
		return nil, storeerrors.NewConfigurationError("table", "entity type name is required")
	}
	o := defaultOptions(schema.Table)
	for _, opt := range opts {
		opt(&o)
	}
	if !strings.Contains(o.keyTemplate, idMacro) {
		return nil, storeerrors.NewConfigurationError("keyTemplate",
			fmt.Sprintf("key template %q has no %s macro", o.keyTemplate, idMacro))
	}
	idField := schema.IDField
	if idField == "" {
		idField = "id"
	}
	c := schema.Codec
	if c == nil {
		c = codec.JSON
	}
	if c.Name() != codec.JSON.Name() {
		return nil, storeerrors.NewConfigurationError("codec", fmt.Sprintf("items are built from JSON, not %s", c.Name()))
	}

	return &Store[V]{
		client:     client,
		tableName:  tableName,
		entityType: schema.Table,
		idField:    idField,
		codec:      c,
		opts:       o,
	}, nil
}

func (d *Store[V]) Name() string { return "dynamodb" }

// expandKey replaces the {ID} macro of the key template with key.
func (d *Store[V]) expandKey(key string) string {
	return macroPattern.ReplaceAllStringFunc(d.opts.keyTemplate, func(macro string) string {
		if macro == idMacro {
			return key
		}
		return ""
	})
}

// itemKey builds a single object key: PK and SK carry the same value.
func (d *Store[V]) itemKey(key string) map[string]types.AttributeValue {
	k := d.expandKey(key)
	return map[string]types.AttributeValue{
		AttrPK: &types.AttributeValueMemberS{Value: k},
		AttrSK: &types.AttributeValueMemberS{Value: k},
	}
}

func (d *Store[V]) marshalItem(key string, value V) (map[string]types.AttributeValue, error) {
	doc, err := codec.ToDocument(d.codec, value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entity: %w", err)
	}
	av, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	for k, v := range d.itemKey(key) {
		av[k] = v
	}
	av[AttrEntityType] = &types.AttributeValueMemberS{Value: d.entityType}
	return av, nil
}

// itemDocument strips the adapter attributes from item. It reports false for
// items of another entity type.
func (d *Store[V]) itemDocument(item map[string]types.AttributeValue) (datastore.Document, bool, error) {
	var entityType string
	if attr, ok := item[AttrEntityType]; ok {
		if err := attributevalue.Unmarshal(attr, &entityType); err != nil {
			return nil, false, fmt.Errorf("failed to unmarshal EntityType: %w", err)
		}
	}
	if entityType != d.entityType {
		return nil, false, nil
	}

	var doc datastore.Document
	if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	delete(doc, AttrPK)
	delete(doc, AttrSK)
	delete(doc, AttrEntityType)
	return doc, true, nil
}

// Lookup retrieves a single item by key, or nil if no item is found.
func (d *Store[V]) Lookup(ctx context.Context, key string) (*V, error) {
	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: &d.tableName,
		Key:       d.itemKey(key),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	doc, ok, err := d.itemDocument(out.Item)
	if err != nil || !ok {
		return nil, err
	}
	result := new(V)
	if err := codec.FromDocument(d.codec, doc, result); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return result, nil
}

// Upsert stores value under key, replacing any previous item.
func (d *Store[V]) Upsert(ctx context.Context, key string, value V) error {
	av, err := d.marshalItem(key, value)
	if err != nil {
		return err
	}
	_, err = d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName: &d.tableName,
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// Delete removes the item stored under key.
func (d *Store[V]) Delete(ctx context.Context, key string) error {
	_, err := d.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: &d.tableName,
		Key:       d.itemKey(key),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return fmt.Errorf("delete condition failed: %w", err)
		}
		return fmt.Errorf("failed to delete item in DynamoDB: %w", err)
	}
	return nil
}

// Close is a no-op: the SDK client holds no connection to release.
func (d *Store[V]) Close(ctx context.Context) error {
	return nil
}
