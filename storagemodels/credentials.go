/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	storeerrors "github.com/suparena/fieldstore/errors"
)

// StorageType selects the backend a storage is opened on.
type StorageType string

const (
	StorageSQLite   StorageType = "SQLITE"
	StorageMongoDB  StorageType = "MONGODB"
	StorageDynamoDB StorageType = "DYNAMODB"
	StorageValkey   StorageType = "VALKEY"
	StorageJSON     StorageType = "JSON"
	StorageYAML     StorageType = "YAML"
)

// StorageTypes lists every supported storage type.
func StorageTypes() []StorageType {
	return []StorageType{StorageSQLite, StorageMongoDB, StorageDynamoDB, StorageValkey, StorageJSON, StorageYAML}
}

// ParseStorageType accepts a storage type name in any case.
func ParseStorageType(s string) (StorageType, error) {
	t := StorageType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range StorageTypes() {
		if t == known {
			return t, nil
		}
	}
	return "", storeerrors.NewConfigurationError("type", fmt.Sprintf("unknown storage type %q", s))
}

// UnmarshalText lets YAML and environment values name the type in any case.
func (t *StorageType) UnmarshalText(text []byte) error {
	parsed, err := ParseStorageType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SQLiteConfig locates a SQLite database file.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// MongoConfig locates a MongoDB database.
type MongoConfig struct {
	URI      string `yaml:"uri" env:"URI"`
	Database string `yaml:"database" env:"DATABASE"`
}

// DynamoDBConfig locates a DynamoDB table. Empty keys use the default AWS
// credential chain.
type DynamoDBConfig struct {
	Region      string `yaml:"region" env:"REGION"`
	AccessKey   string `yaml:"accessKey" env:"ACCESS_KEY"`
	SecretKey   string `yaml:"secretKey" env:"SECRET_KEY"`
	Table       string `yaml:"table" env:"TABLE"`
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	KeyTemplate string `yaml:"keyTemplate" env:"KEY_TEMPLATE"`
}

// ValkeyConfig locates a Valkey or Redis server.
type ValkeyConfig struct {
	Addresses []string `yaml:"addresses" env:"ADDRESSES" envSeparator:","`
	Username  string   `yaml:"username" env:"USERNAME"`
	Password  string   `yaml:"password" env:"PASSWORD"`
	Prefix    string   `yaml:"prefix" env:"PREFIX"`
}

// FileConfig locates the directory of JSON or YAML storage files.
type FileConfig struct {
	Directory string `yaml:"directory" env:"DIRECTORY"`
	// Compression is "", "none", "s2" or "zstd".
	Compression string `yaml:"compression" env:"COMPRESSION"`
}

// Credentials select a storage type and carry the settings of each backend.
// Only the section matching Type is read.
type Credentials struct {
	Type     StorageType    `yaml:"type" env:"TYPE"`
	SQLite   SQLiteConfig   `yaml:"sqlite" envPrefix:"SQLITE_"`
	Mongo    MongoConfig    `yaml:"mongo" envPrefix:"MONGO_"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb" envPrefix:"DYNAMODB_"`
	Valkey   ValkeyConfig   `yaml:"valkey" envPrefix:"VALKEY_"`
	File     FileConfig     `yaml:"file" envPrefix:"FILE_"`
}

// ParseCredentials decodes and validates YAML credentials.
func ParseCredentials(data []byte) (*Credentials, error) {
	var c Credentials
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCredentials reads YAML credentials from path.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	return ParseCredentials(data)
}

// CredentialsFromEnv reads credentials from environment variables named
// prefix + TYPE, prefix + SQLITE_PATH, prefix + VALKEY_ADDRESSES and so on.
// The given dotenv files (".env" when none) are loaded first when they exist;
// variables already set win.
func CredentialsFromEnv(prefix string, files ...string) (*Credentials, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var c Credentials
	if err := env.ParseWithOptions(&c, env.Options{Prefix: prefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the settings the selected storage type needs.
func (c *Credentials) Validate() error {
	required := func(setting, value string) error {
		if strings.TrimSpace(value) == "" {
			return storeerrors.NewConfigurationError(setting, fmt.Sprintf("required for %s storage", c.Type))
		}
		return nil
	}

	switch c.Type {
	case StorageSQLite:
		return required("sqlite.path", c.SQLite.Path)
	case StorageMongoDB:
		return errors.Join(
			required("mongo.uri", c.Mongo.URI),
			required("mongo.database", c.Mongo.Database),
		)
	case StorageDynamoDB:
		return errors.Join(
			required("dynamodb.region", c.DynamoDB.Region),
			required("dynamodb.table", c.DynamoDB.Table),
		)
	case StorageValkey:
		if len(c.Valkey.Addresses) == 0 {
			return required("valkey.addresses", "")
		}
		return nil
	case StorageJSON, StorageYAML:
		if err := required("file.directory", c.File.Directory); err != nil {
			return err
		}
		switch strings.ToLower(c.File.Compression) {
		case "", "none", "s2", "zstd":
			return nil
		default:
			return storeerrors.NewConfigurationError("file.compression",
				fmt.Sprintf("unknown compression %q", c.File.Compression))
		}
	case "":
		return storeerrors.NewConfigurationError("type", "storage type is required")
	default:
		return storeerrors.NewConfigurationError("type", fmt.Sprintf("unknown storage type %q", c.Type))
	}
}
