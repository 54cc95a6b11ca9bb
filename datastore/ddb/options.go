/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import "time"

const idMacro = "{ID}"

// maxBatchSize is the BatchWriteItem request limit.
const maxBatchSize = 25

type options struct {
	keyTemplate  string
	pageSize     int32
	maxRetries   int
	retryBackoff time.Duration
}

func defaultOptions(entityType string) options {
	return options{
		keyTemplate:  entityType + "#" + idMacro,
		pageSize:     100,
		maxRetries:   3,
		retryBackoff: time.Second,
	}
}

// Option configures a Store.
type Option func(*options)

// WithKeyTemplate sets the PK/SK template. It must contain the {ID} macro,
// e.g. "USER#{ID}". Defaults to "<entity type>#{ID}".
func WithKeyTemplate(template string) Option {
	return func(o *options) {
		o.keyTemplate = template
	}
}

// WithPageSize sets the items per Scan page.
func WithPageSize(size int32) Option {
	return func(o *options) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

// WithMaxRetries sets the retry attempts for throttled or transient errors.
func WithMaxRetries(retries int) Option {
	return func(o *options) {
		if retries >= 0 {
			o.maxRetries = retries
		}
	}
}

// WithRetryBackoff sets the base backoff between retries.
func WithRetryBackoff(backoff time.Duration) Option {
	return func(o *options) {
		o.retryBackoff = backoff
	}
}
