// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package revdb

import (
	"io"
	"log/slog"
)

// Option configures a ReverseDb, ReverseLookupDictionary or Pool.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	maxFileSize int
}

// WithLogger sets an optional logger for progress updates and load
// failures.  If not provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithMaxFileSize caps the size of files produced by Build.  Builds that
// need more space fail.  Zero means no limit.
func WithMaxFileSize(n int) Option {
	return func(opts *options) {
		opts.maxFileSize = n
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

func (o options) apply() []Option {
	return []Option{WithLogger(o.logger), WithMaxFileSize(o.maxFileSize)}
}
