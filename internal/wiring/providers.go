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

// Package wiring's provider functions, one per Components field, in the
// naming convention of the teacher's internal/source/logical/provider.go
// (ProvideBaseConfig, ProvideStagingPool, ProvideTargetPool, ...).
package wiring

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/BarnacleLabs/RAGmatic/internal/admin"
	"github.com/BarnacleLabs/RAGmatic/internal/dbpool"
	"github.com/BarnacleLabs/RAGmatic/internal/diag"
	"github.com/BarnacleLabs/RAGmatic/internal/ident"
	"github.com/BarnacleLabs/RAGmatic/internal/schema"
	"github.com/BarnacleLabs/RAGmatic/internal/stopper"
	"github.com/BarnacleLabs/RAGmatic/internal/worker"
)

// ProvideNamespace derives the pipeline namespace from its config.
func ProvideNamespace(cfg PipelineConfig) (ident.Namespace, error) {
	return ident.NamespaceFor(cfg.Schema.PipelineName)
}

// ProvidePool opens the shared connection pool, per internal/dbpool.
func ProvidePool(ctx *stopper.Context, cfg PipelineConfig) (*pgxpool.Pool, error) {
	return dbpool.Open(ctx, cfg.ConnectString, dbpool.Options{
		MaxConns:       cfg.MaxConns,
		WaitForStartup: cfg.WaitForStartup,
	})
}

// ProvideInstaller constructs the installer bound to pool.
func ProvideInstaller(pool *pgxpool.Pool) *schema.Installer {
	return schema.New(pool)
}

// ProvideSchemaConfig passes the caller's schema.Config through.
func ProvideSchemaConfig(cfg PipelineConfig) schema.Config {
	return cfg.Schema
}

// ProvideInstalledConfig runs the installer and returns the normalized,
// persisted Config -- the step that must happen before anything else
// touches the namespace.
func ProvideInstalledConfig(ctx *stopper.Context, in *schema.Installer, ns ident.Namespace, cfg schema.Config) (schema.Config, error) {
	installed, err := in.Install(ctx, ns, cfg)
	return installed, errors.Wrap(err, "could not install pipeline")
}

// ProvideAdmin constructs the admin surface for the installed pipeline.
// Admin, like internal/queue.Queue, stores bare table names and
// namespace-qualifies them itself.
func ProvideAdmin(pool *pgxpool.Pool, ns ident.Namespace, in *schema.Installer, installed schema.Config) *admin.Admin {
	return &admin.Admin{
		Pool:           pool,
		NS:             ns,
		Installer:      in,
		ShadowTable:    installed.ShadowTable,
		ChunksTable:    installed.ChunksTable,
		WorkQueueTable: installed.WorkQueueTable,
		SourceFullName: installed.SourceFullName(),
	}
}

// ProvideDiagnostics constructs the health-check registry and registers
// the connection pool's own Ping, per spec.md §E's diagnostics supplement.
func ProvideDiagnostics(pool *pgxpool.Pool) *diag.Diagnostics {
	d := diag.New()
	d.Register("pool", func(ctx context.Context) error {
		return errors.Wrap(pool.Ping(ctx), "pool ping failed")
	})
	return d
}

// ProvideWorker constructs the worker for the installed pipeline.
func ProvideWorker(pool *pgxpool.Pool, ns ident.Namespace, installed schema.Config, cfg PipelineConfig) *worker.Worker {
	return worker.New(
		installed.PipelineName,
		pool,
		ns,
		installed.SourceFullName(),
		installed.ShadowTable,
		installed.ChunksTable,
		installed.EmbeddingDimension,
		cfg.Chunker,
		cfg.Embedder,
		cfg.Hasher,
		cfg.Worker,
	)
}
