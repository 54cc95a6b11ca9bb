/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package fieldstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/valkey-io/valkey-go"

	"github.com/suparena/fieldstore/codec"
	"github.com/suparena/fieldstore/datastore"
	"github.com/suparena/fieldstore/datastore/ddb"
	"github.com/suparena/fieldstore/datastore/filestore"
	"github.com/suparena/fieldstore/datastore/kvstore"
	"github.com/suparena/fieldstore/datastore/mongostore"
	"github.com/suparena/fieldstore/datastore/sqlstore"
	storeerrors "github.com/suparena/fieldstore/errors"
	"github.com/suparena/fieldstore/identity"
	"github.com/suparena/fieldstore/registry"
	"github.com/suparena/fieldstore/storagemodels"
)

// zstdLevel is the encoder level used for zstd-compressed storage files.
const zstdLevel = 3

// Open opens the storage of V in table on the backend creds select. A nil
// desc falls back to the descriptor registered for V.
func Open[K comparable, V any](ctx context.Context, creds *storagemodels.Credentials, table string, desc *identity.Descriptor[K, V], opts ...datastore.Option) (*datastore.Store[K, V], error) {
	if desc == nil {
		var ok bool
		if desc, ok = registry.GetDescriptor[K, V](); !ok {
			var zero V
			return nil, storeerrors.NewIdentifierError(fmt.Sprintf("%T", zero), "no descriptor registered")
		}
	}

	backend, err := OpenBackend[V](ctx, creds, datastore.Schema{Table: table, IDField: desc.FieldName()})
	if err != nil {
		return nil, err
	}
	s, err := datastore.New(ctx, desc, backend, opts...)
	if err != nil {
		_ = backend.Close(ctx)
		return nil, err
	}
	return s, nil
}

// OpenBackend opens the adapter creds select, bound to schema. The schema
// codec is chosen from the storage type.
func OpenBackend[V any](ctx context.Context, creds *storagemodels.Credentials, schema datastore.Schema) (datastore.Backend[V], error) {
	if creds == nil {
		return nil, storeerrors.NewConfigurationError("credentials", "credentials are required")
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if schema.Table == "" {
		return nil, storeerrors.NewConfigurationError("table", "a table name is required")
	}

	// Each case assigns through a concrete type so a failed open yields a nil
	// interface rather than a typed nil.
	switch creds.Type {
	case storagemodels.StorageSQLite:
		s, err := sqlstore.Open[V](ctx, creds.SQLite.Path, schema)
		if err != nil {
			return nil, err
		}
		return s, nil

	case storagemodels.StorageMongoDB:
		s, err := mongostore.Open[V](ctx, creds.Mongo.URI, creds.Mongo.Database, schema)
		if err != nil {
			return nil, err
		}
		return s, nil

	case storagemodels.StorageDynamoDB:
		var opts []ddb.Option
		if creds.DynamoDB.KeyTemplate != "" {
			opts = append(opts, ddb.WithKeyTemplate(creds.DynamoDB.KeyTemplate))
		}
		s, err := ddb.Open[V](ctx, ddb.Config{
			AccessKey: creds.DynamoDB.AccessKey,
			SecretKey: creds.DynamoDB.SecretKey,
			Region:    creds.DynamoDB.Region,
			TableName: creds.DynamoDB.Table,
			Endpoint:  creds.DynamoDB.Endpoint,
		}, schema, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil

	case storagemodels.StorageValkey:
		var opts []kvstore.Option
		if creds.Valkey.Prefix != "" {
			opts = append(opts, kvstore.WithPrefix(creds.Valkey.Prefix))
		}
		s, err := kvstore.Open[V](ctx, valkey.ClientOption{
			InitAddress: creds.Valkey.Addresses,
			Username:    creds.Valkey.Username,
			Password:    creds.Valkey.Password,
		}, schema, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil

	case storagemodels.StorageJSON, storagemodels.StorageYAML:
		schema.Codec = codec.JSON
		if creds.Type == storagemodels.StorageYAML {
			schema.Codec = codec.YAML
		}
		comp, err := compressor(creds.File.Compression)
		if err != nil {
			return nil, err
		}
		s, err := filestore.Open[V](creds.File.Directory, schema, filestore.WithCompressor(comp))
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, storeerrors.NewConfigurationError("type", fmt.Sprintf("unsupported storage type %q", creds.Type))
	}
}

func compressor(name string) (codec.Compressor, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return codec.None(), nil
	case "s2":
		return codec.S2(), nil
	case "zstd":
		return codec.Zstd(zstdLevel), nil
	default:
		return nil, storeerrors.NewConfigurationError("file.compression", fmt.Sprintf("unknown compression %q", name))
	}
}
