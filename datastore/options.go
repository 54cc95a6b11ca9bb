/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/suparena/fieldstore/async"
	"github.com/suparena/fieldstore/cache"
	"github.com/suparena/fieldstore/codec"
)

const defaultSaveParallelism = 8

type settings struct {
	logger          *slog.Logger
	pool            *async.Pool
	workers         int
	queueSize       int
	registerer      prometheus.Registerer
	metricsPrefix   string
	codec           codec.Codec
	cache           any
	fromKey         any
	empty           any
	saveParallelism int
}

func defaultSettings() *settings {
	return &settings{
		codec:           codec.JSON,
		saveParallelism: defaultSaveParallelism,
	}
}

// Option configures a Store.
type Option func(*settings)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithPool runs the store's I/O on a shared pool. The store does not stop a
// shared pool on Close.
func WithPool(p *async.Pool) Option {
	return func(s *settings) {
		s.pool = p
	}
}

// WithWorkers sizes the pool the store creates for itself.
func WithWorkers(workers, queueSize int) Option {
	return func(s *settings) {
		s.workers = workers
		s.queueSize = queueSize
	}
}

// WithMetrics registers pool metrics for the pool the store creates for itself.
func WithMetrics(reg prometheus.Registerer, prefix string) Option {
	return func(s *settings) {
		s.registerer = reg
		s.metricsPrefix = prefix
	}
}

// WithCodec sets the document codec. It must produce JSON objects.
func WithCodec(c codec.Codec) Option {
	return func(s *settings) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithCache replaces the default cache. Its value type must match the store's.
func WithCache[V any](c cache.Cache[string, V]) Option {
	return func(s *settings) {
		s.cache = c
	}
}

// WithConstructor installs the hook that builds placeholder entities.
// fromKey must return an entity whose identifier equals the key; either
// function may be nil.
func WithConstructor[K comparable, V any](fromKey func(K) (V, error), empty func() (V, error)) Option {
	return func(s *settings) {
		if fromKey != nil {
			s.fromKey = fromKey
		}
		if empty != nil {
			s.empty = empty
		}
	}
}

// WithSaveParallelism bounds concurrent backend writes within one SaveAll.
func WithSaveParallelism(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.saveParallelism = n
		}
	}
}
