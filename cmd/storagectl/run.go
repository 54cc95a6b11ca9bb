package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/go-openapi/strfmt"
	"gopkg.in/yaml.v3"

	"github.com/suparena/fieldstore"
	"github.com/suparena/fieldstore/codec"
	"github.com/suparena/fieldstore/datastore"
	storeerrors "github.com/suparena/fieldstore/errors"
	"github.com/suparena/fieldstore/filter"
	"github.com/suparena/fieldstore/storagemodels"
)

const defaultEnvPrefix = "FIELDSTORE_"

type globals struct {
	config    string
	envPrefix string
	table     string
	idField   string
	verbose   bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var g globals
	fs := flag.NewFlagSet("storagectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&g.config, "config", "", "YAML credentials file")
	fs.StringVar(&g.envPrefix, "env-prefix", defaultEnvPrefix, "environment variable prefix when -config is not set")
	fs.StringVar(&g.table, "table", "", "table, collection, hash or file name")
	fs.StringVar(&g.idField, "id-field", "id", "identifier attribute of the records")
	fs.BoolVar(&g.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no command given")
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "version" {
		info := fieldstore.GetVersionInfo()
		fmt.Fprintf(stdout, "storagectl version %s\n", info.Version)
		fmt.Fprintf(stdout, "Git commit: %s\n", info.GitCommit)
		fmt.Fprintf(stdout, "Build date: %s\n", info.BuildDate)
		fmt.Fprintf(stdout, "Go version: %s\n", info.GoVersion)
		return nil
	}

	commands := map[string]func(context.Context, *session, []string) error{
		"count":        count,
		"get":          get,
		"find":         find,
		"export":       export,
		"rename-field": renameField,
		"purge":        purge,
	}
	command, ok := commands[cmd]
	if !ok {
		return fmt.Errorf("unknown command %q", cmd)
	}

	s, err := openSession(ctx, g, stdout, stderr)
	if err != nil {
		return err
	}
	cmdErr := command(ctx, s, rest)
	if _, err := s.store.Close(ctx).Await(ctx); err != nil {
		return errors.Join(cmdErr, fmt.Errorf("close storage: %w", err))
	}
	return cmdErr
}

type session struct {
	creds  *storagemodels.Credentials
	table  string
	store  *datastore.Store[string, record]
	stdout io.Writer
	logger *slog.Logger
}

func openSession(ctx context.Context, g globals, stdout, stderr io.Writer) (*session, error) {
	if g.table == "" {
		return nil, errors.New("-table is required")
	}

	var (
		creds *storagemodels.Credentials
		err   error
	)
	if g.config != "" {
		creds, err = storagemodels.LoadCredentials(g.config)
	} else {
		creds, err = storagemodels.CredentialsFromEnv(g.envPrefix)
	}
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	desc, err := recordDescriptor(g.idField)
	if err != nil {
		return nil, err
	}
	store, err := fieldstore.Open(ctx, creds, g.table, desc, datastore.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", creds.Type, err)
	}
	logger.Debug("opened storage", "type", creds.Type, "table", g.table)

	return &session{creds: creds, table: g.table, store: store, stdout: stdout, logger: logger}, nil
}

func count(ctx context.Context, s *session, _ []string) error {
	all, err := s.store.AllValues(ctx).Await(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.stdout, len(all))
	return nil
}

func get(ctx context.Context, s *session, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: get KEY")
	}
	found, err := s.store.Get(ctx, args[0]).Await(ctx)
	if err != nil {
		return err
	}
	if found == nil {
		return storeerrors.NewNotFoundError(s.table, args[0])
	}
	return write(s.stdout, codec.JSONCodec{Indent: "  "}, *found)
}

func find(ctx context.Context, s *session, args []string) error {
	fs := flag.NewFlagSet("find", flag.ContinueOnError)
	field := fs.String("field", "", "attribute path, e.g. data.email")
	opName := fs.String("op", "EQUALS", "operator name")
	value := fs.String("value", "", "operand, parsed as a YAML scalar")
	sortName := fs.String("sort", "", "asc or desc")
	format := fs.String("format", "json", "json or yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	op, err := filter.ParseOperator(*opName)
	if err != nil {
		return err
	}
	order, err := filter.ParseSort(*sortName)
	if err != nil {
		return err
	}
	operand, err := parseOperand(*value)
	if err != nil {
		return err
	}
	c, err := formatCodec(*format)
	if err != nil {
		return err
	}

	found, err := s.store.Find(ctx, *field, operand, op, order).Await(ctx)
	if err != nil {
		return err
	}
	return write(s.stdout, c, found)
}

// parseOperand reads a command-line value as a YAML scalar so numbers and
// booleans keep their kind.
func parseOperand(s string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("parse value %q: %w", s, err)
	}
	switch v.(type) {
	case map[string]any, []any:
		return nil, fmt.Errorf("value %q is not a scalar", s)
	}
	return v, nil
}

type exportFile struct {
	Table      string                    `json:"table"`
	Storage    storagemodels.StorageType `json:"storage"`
	ExportedAt strfmt.DateTime           `json:"exportedAt"`
	Count      int                       `json:"count"`
	Records    []record                  `json:"records"`
}

func export(ctx context.Context, s *session, args []string) (err error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", "json", "json or yaml")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := formatCodec(*format)
	if err != nil {
		return err
	}

	all, err := s.store.AllValues(ctx).Await(ctx)
	if err != nil {
		return err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].id(s.store) < all[j].id(s.store) })

	w := s.stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}

	s.logger.Debug("exporting", "count", len(all))
	return write(w, c, exportFile{
		Table:      s.table,
		Storage:    s.creds.Type,
		ExportedAt: strfmt.DateTime(time.Now().UTC()),
		Count:      len(all),
		Records:    all,
	})
}

func renameField(ctx context.Context, s *session, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: rename-field OLD NEW")
	}
	if _, err := s.store.RenameField(ctx, args[0], args[1]).Await(ctx); err != nil {
		return err
	}
	fmt.Fprintf(s.stdout, "renamed %s to %s\n", args[0], args[1])
	return nil
}

func purge(ctx context.Context, s *session, args []string) error {
	fs := flag.NewFlagSet("purge", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "confirm deleting every record")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return errors.New("purge deletes every record; pass -yes to confirm")
	}
	if _, err := s.store.DeleteAll(ctx).Await(ctx); err != nil {
		return err
	}
	fmt.Fprintf(s.stdout, "purged %s\n", s.table)
	return nil
}

func formatCodec(name string) (codec.Codec, error) {
	switch name {
	case "json":
		return codec.JSONCodec{Indent: "  "}, nil
	case "yaml":
		return codec.YAML, nil
	default:
		return nil, fmt.Errorf("unknown format %q", name)
	}
}

func write(w io.Writer, c codec.Codec, v any) error {
	data, err := c.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
