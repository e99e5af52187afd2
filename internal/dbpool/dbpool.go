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

// Package dbpool opens the pgxpool.Pool that every other RAGmatic package
// shares, retrying on startup errors the way the teacher's
// internal/util/stdpool package does for its SQL targets.
package dbpool

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/pkg/errors"

	"github.com/BarnacleLabs/RAGmatic/internal/stopper"
)

// Options configures Open.
type Options struct {
	// MaxConns bounds the pool's live connection count. Zero uses the
	// pgxpool default.
	MaxConns int32
	// WaitForStartup retries a failed initial ping instead of returning
	// an error, the way OpenMySQLAsTarget does for a database that is
	// still coming up alongside the caller in the same compose stack.
	WaitForStartup bool
	// StartupRetryInterval is how long to wait between ping retries.
	// Defaults to 10 seconds, matching the teacher's hard-coded interval.
	StartupRetryInterval time.Duration
}

// Open parses connectString, builds a pgxpool.Pool, and verifies
// connectivity before returning. The returned pool is registered with
// ctx so that it is closed automatically when ctx stops.
func Open(ctx *stopper.Context, connectString string, opts Options) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connectString)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse database connection string")
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	interval := opts.StartupRetryInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not construct connection pool")
	}

	ctx.Go(func() error {
		<-ctx.Stopping()
		pool.Close()
		return nil
	})

ping:
	if err := pool.Ping(ctx); err != nil {
		if opts.WaitForStartup {
			log.WithError(err).Info("waiting for database to become ready")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(interval):
				goto ping
			}
		}
		return nil, errors.Wrap(err, "could not ping the database")
	}

	var version string
	if err := pool.QueryRow(context.Background(), "SHOW server_version").Scan(&version); err != nil {
		log.WithError(err).Debug("could not query server_version")
	} else {
		log.WithField("version", version).Info("connected to database")
	}

	return pool, nil
}
