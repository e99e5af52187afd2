// Copyright 2024 The RAGmatic Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package ragmatic keeps a derived, embedded chunks table continuously in
// sync with a user-owned relational source table. See Create.
package ragmatic

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/pkg/errors"

	"github.com/BarnacleLabs/RAGmatic/internal/worker"
)

// Option configures one of Create's optional parameters (spec.md §6:
// idType, hashFn, indexSkip, pollingInterval, batchSize, maxRetries,
// initialRetryDelay, stalledJobTimeout, logger), in the functional-options
// idiom used elsewhere in the example corpus for optional constructor
// parameters.
type Option func(*options)

type options struct {
	idKind                  IDKind
	sourceSchema            string
	hasher                  Hasher
	skipEmbeddingIndexSetup bool
	workerConfig            worker.Config
	maxPoolConns            int32
	waitForStartup          bool
}

func defaultOptions() options {
	return options{
		idKind:       IDKindBigInteger,
		workerConfig: worker.DefaultConfig(),
		maxPoolConns: 10,
	}
}

// WithIDKind overrides the default id column type (IDKindBigInteger, a
// NUMERIC column).
func WithIDKind(k IDKind) Option { return func(o *options) { o.idKind = k } }

// WithSourceSchema schema-qualifies sourceTable; defaults to the
// connection's search_path.
func WithSourceSchema(schemaName string) Option {
	return func(o *options) { o.sourceSchema = schemaName }
}

// WithHasher overrides the default content hash (worker.DefaultHash).
func WithHasher(h Hasher) Option { return func(o *options) { o.hasher = h } }

// WithSkipEmbeddingIndexSetup suppresses ivfflat index creation.
func WithSkipEmbeddingIndexSetup(skip bool) Option {
	return func(o *options) { o.skipEmbeddingIndexSetup = skip }
}

// WithPollingInterval overrides the default 1s tick period.
func WithPollingInterval(d time.Duration) Option {
	return func(o *options) { o.workerConfig.PollingInterval = d }
}

// WithBatchSize overrides the default batch size of 5.
func WithBatchSize(n int) Option { return func(o *options) { o.workerConfig.BatchSize = n } }

// WithMaxRetries overrides the default of 3 retries.
func WithMaxRetries(n int) Option { return func(o *options) { o.workerConfig.MaxRetries = n } }

// WithInitialRetryDelay overrides the default 1s backoff seed.
func WithInitialRetryDelay(d time.Duration) Option {
	return func(o *options) { o.workerConfig.InitialRetryDelay = d }
}

// WithStalledJobTimeout overrides the default 1 minute stall grace period.
func WithStalledJobTimeout(d time.Duration) Option {
	return func(o *options) { o.workerConfig.StalledJobTimeout = d }
}

// WithLogger replaces the default logrus.StandardLogger() sink. Pass a
// logger configured with an io.Discard output for silent mode.
func WithLogger(l *log.Logger) Option { return func(o *options) { o.workerConfig.Logger = l } }

// WithMaxPoolConns overrides the default connection pool size of 10.
func WithMaxPoolConns(n int32) Option { return func(o *options) { o.maxPoolConns = n } }

// WithWaitForStartup retries the initial connection instead of failing
// Create immediately, for callers that start before their database does.
func WithWaitForStartup(wait bool) Option { return func(o *options) { o.waitForStartup = wait } }

// Config is the bindable, flag-driven form of the options above, for
// embedding applications that expose RAGmatic's knobs as CLI/env flags,
// grounded on the teacher's internal/source/server.Config
// (Bind(*pflag.FlagSet) / Preflight()).
type Config struct {
	ConnectString string

	MaxPoolConns   int32
	WaitForStartup bool

	PollingInterval         time.Duration
	BatchSize               int
	MaxRetries              int
	InitialRetryDelay       time.Duration
	StalledJobTimeout       time.Duration
	SkipEmbeddingIndexSetup bool
}

// Bind registers flags for every Config field.
func (c *Config) Bind(flags *pflag.FlagSet) {
	flags.StringVar(&c.ConnectString, "ragmaticConnectString", "",
		"a PostgreSQL or CockroachDB connection string for the RAGmatic pipeline database")
	flags.Int32Var(&c.MaxPoolConns, "ragmaticMaxPoolConns", 10,
		"the maximum number of pooled connections RAGmatic may open")
	flags.BoolVar(&c.WaitForStartup, "ragmaticWaitForStartup", false,
		"retry the initial connection instead of failing immediately")
	flags.DurationVar(&c.PollingInterval, "ragmaticPollingInterval", time.Second,
		"the tick period for the enqueue and process loops")
	flags.IntVar(&c.BatchSize, "ragmaticBatchSize", 5,
		"the maximum number of jobs claimed or enqueued per tick")
	flags.IntVar(&c.MaxRetries, "ragmaticMaxRetries", 3,
		"the number of retries for retryable job errors before failing")
	flags.DurationVar(&c.InitialRetryDelay, "ragmaticInitialRetryDelay", time.Second,
		"the seed delay for a retried job's exponential backoff")
	flags.DurationVar(&c.StalledJobTimeout, "ragmaticStalledJobTimeout", time.Minute,
		"the grace period before a processing job is reclaimable")
	flags.BoolVar(&c.SkipEmbeddingIndexSetup, "ragmaticSkipEmbeddingIndexSetup", false,
		"suppress ivfflat embedding-index creation at install time")
}

// Preflight validates the configuration before it is used to Create a
// pipeline.
func (c *Config) Preflight() error {
	if c.ConnectString == "" {
		return errors.New("ragmaticConnectString unset")
	}
	if c.MaxPoolConns <= 0 {
		c.MaxPoolConns = 10
	}
	if c.BatchSize < 0 {
		return errors.New("ragmaticBatchSize must not be negative")
	}
	if c.MaxRetries < 0 {
		return errors.New("ragmaticMaxRetries must not be negative")
	}
	return nil
}

// Options renders c as the Option slice accepted by Create, letting a
// flag-bound Config feed the same functional-options constructor used by
// direct callers.
func (c Config) Options() []Option {
	return []Option{
		WithMaxPoolConns(c.MaxPoolConns),
		WithWaitForStartup(c.WaitForStartup),
		WithPollingInterval(c.PollingInterval),
		WithBatchSize(c.BatchSize),
		WithMaxRetries(c.MaxRetries),
		WithInitialRetryDelay(c.InitialRetryDelay),
		WithStalledJobTimeout(c.StalledJobTimeout),
		WithSkipEmbeddingIndexSetup(c.SkipEmbeddingIndexSetup),
	}
}
