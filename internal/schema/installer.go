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

// Package schema implements the installer of spec.md §4.1: it
// idempotently provisions a pipeline's namespace, attaches the
// source-side trigger, and reconciles orphans left behind by a dropped
// and recreated source table. The approach -- a single transaction of
// CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT EXISTS statements --
// follows the teacher's CreateSink / CreateResolvedTable, generalized
// from a fixed two-table layout to the five-artifact namespace this
// engine needs.
package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/BarnacleLabs/RAGmatic/internal/ident"
)

// Installer provisions and tears down pipeline namespaces.
type Installer struct {
	Pool *pgxpool.Pool
}

// New returns an Installer bound to pool.
func New(pool *pgxpool.Pool) *Installer {
	return &Installer{Pool: pool}
}

// Install idempotently provisions ns per spec.md §4.1 and returns the
// fully-normalized Config that was persisted. Re-running Install with an
// unchanged cfg is a no-op beyond the reconciliation pass; divergent
// configs across runs are the caller's responsibility, per spec.md §4.1.
func (in *Installer) Install(ctx context.Context, ns ident.Namespace, cfg Config) (Config, error) {
	cfg = cfg.normalized()
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid installer configuration")
	}

	tx, err := in.Pool.Begin(ctx)
	if err != nil {
		return Config{}, errors.Wrap(err, "could not begin install transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := ensureVectorExtension(ctx, tx); err != nil {
		return Config{}, err
	}
	if err := ensureNamespace(ctx, tx, ns); err != nil {
		return Config{}, err
	}
	if err := ensureConfigTable(ctx, tx, ns, cfg); err != nil {
		return Config{}, err
	}
	if err := ensureShadowTable(ctx, tx, ns, cfg); err != nil {
		return Config{}, err
	}
	if err := ensureChunksTable(ctx, tx, ns, cfg); err != nil {
		return Config{}, err
	}
	if err := ensureWorkQueueTable(ctx, tx, ns, cfg); err != nil {
		return Config{}, err
	}
	if err := ensureTrigger(ctx, tx, ns, cfg); err != nil {
		return Config{}, err
	}
	if !cfg.SkipEmbeddingIndexSetup {
		if err := ensureVectorIndex(ctx, tx, ns, cfg); err != nil {
			return Config{}, err
		}
	}
	if err := reconcile(ctx, tx, ns, cfg); err != nil {
		return Config{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Config{}, errors.Wrap(err, "could not commit install transaction")
	}
	return cfg, nil
}

func ensureVectorExtension(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	return errors.Wrap(err, "could not ensure vector extension")
}

func ensureNamespace(ctx context.Context, tx pgx.Tx, ns ident.Namespace) error {
	_, err := tx.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, ident.Quote(ns.Raw())))
	return errors.Wrap(err, "could not create namespace")
}

func ensureConfigTable(ctx context.Context, tx pgx.Tx, ns ident.Namespace, cfg Config) error {
	stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`, ns.Qualified(ident.DefaultConfigTable))
	if _, err := tx.Exec(ctx, stmt); err != nil {
		return errors.Wrap(err, "could not create config table")
	}
	for k, v := range cfg.asMap() {
		upsert := fmt.Sprintf(`
INSERT INTO %s (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, ns.Qualified(ident.DefaultConfigTable))
		if _, err := tx.Exec(ctx, upsert, k, v); err != nil {
			return errors.Wrapf(err, "could not persist config key %q", k)
		}
	}
	return nil
}

func ensureShadowTable(ctx context.Context, tx pgx.Tx, ns ident.Namespace, cfg Config) error {
	stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id           BIGSERIAL PRIMARY KEY,
	doc_id       %[3]s NOT NULL REFERENCES %[2]s (id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED,
	vector_clock BIGINT NOT NULL DEFAULT 1,
	UNIQUE (doc_id)
)`, ns.Qualified(cfg.ShadowTable), cfg.sourceFullName(), cfg.IDKind.String())
	if _, err := tx.Exec(ctx, stmt); err != nil {
		return errors.Wrap(err, "could not create shadow table")
	}
	idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (vector_clock)`,
		ident.Quote(ns.Raw()+"_"+cfg.ShadowTable+"_clock_idx"), ns.Qualified(cfg.ShadowTable))
	_, err := tx.Exec(ctx, idx)
	return errors.Wrap(err, "could not create shadow clock index")
}

func ensureChunksTable(ctx context.Context, tx pgx.Tx, ns ident.Namespace, cfg Config) error {
	stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id           BIGSERIAL PRIMARY KEY,
	doc_id       %[3]s NOT NULL REFERENCES %[2]s (id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED,
	vector_clock BIGINT NOT NULL,
	index        INT NOT NULL,
	chunk_hash   TEXT NOT NULL,
	text         TEXT,
	blob         BYTEA,
	json         JSONB,
	metadata     JSONB,
	embedding    vector(%[4]d) NOT NULL
)`, ns.Qualified(cfg.ChunksTable), cfg.sourceFullName(), cfg.IDKind.String(), cfg.EmbeddingDimension)
	if _, err := tx.Exec(ctx, stmt); err != nil {
		return errors.Wrap(err, "could not create chunks table")
	}

	indexes := []struct{ name, cols string }{
		{"_doc_idx", "(doc_id)"},
		{"_hash_idx", "(chunk_hash)"},
		{"_clock_idx", "(vector_clock)"},
		{"_doc_clock_idx", "(doc_id, vector_clock)"},
		{"_doc_index_idx", "(doc_id, index)"},
	}
	for _, idx := range indexes {
		stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s %s`,
			ident.Quote(ns.Raw()+"_"+cfg.ChunksTable+idx.name), ns.Qualified(cfg.ChunksTable), idx.cols)
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(err, "could not create chunks index %s", idx.name)
		}
	}
	return nil
}

func ensureWorkQueueTable(ctx context.Context, tx pgx.Tx, ns ident.Namespace, cfg Config) error {
	stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id                   BIGSERIAL PRIMARY KEY,
	doc_id               %[2]s NOT NULL,
	vector_clock         BIGINT NOT NULL,
	status               TEXT NOT NULL DEFAULT 'pending',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	processing_started_at TIMESTAMPTZ,
	completed_at         TIMESTAMPTZ,
	worker_id            TEXT,
	error                TEXT,
	retry_count          INT NOT NULL DEFAULT 0,
	retry_after          TIMESTAMPTZ,
	UNIQUE (doc_id, vector_clock)
)`, ns.Qualified(cfg.WorkQueueTable), cfg.IDKind.String())
	if _, err := tx.Exec(ctx, stmt); err != nil {
		return errors.Wrap(err, "could not create work queue table")
	}

	indexes := []struct{ name, cols string }{
		{"_status_idx", "(status)"},
		{"_doc_idx", "(doc_id)"},
		{"_clock_idx", "(vector_clock)"},
		{"_status_started_idx", "(status, processing_started_at)"},
		{"_status_retry_after_idx", "(status, retry_after)"},
		{"_doc_clock_desc_idx", "(doc_id, vector_clock DESC)"},
	}
	for _, idx := range indexes {
		stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s %s`,
			ident.Quote(ns.Raw()+"_"+cfg.WorkQueueTable+idx.name), ns.Qualified(cfg.WorkQueueTable), idx.cols)
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(err, "could not create work queue index %s", idx.name)
		}
	}
	return nil
}

// ensureTrigger installs the trigger function of spec.md §4.1 step 8: an
// AFTER INSERT OR UPDATE FOR EACH ROW trigger on the source table that
// inserts shadow(doc_id, clock=1) on insert and bumps vector_clock by one
// on update.
func ensureTrigger(ctx context.Context, tx pgx.Tx, ns ident.Namespace, cfg Config) error {
	fn := ns.Raw() + "_shadow_bump"
	stmt := fmt.Sprintf(`
CREATE OR REPLACE FUNCTION %[1]s() RETURNS TRIGGER AS $$
BEGIN
	IF TG_OP = 'INSERT' THEN
		INSERT INTO %[2]s (doc_id, vector_clock) VALUES (NEW.id, 1)
		ON CONFLICT (doc_id) DO NOTHING;
	ELSIF TG_OP = 'UPDATE' THEN
		UPDATE %[2]s SET vector_clock = vector_clock + 1 WHERE doc_id = NEW.id;
	END IF;
	RETURN NEW;
END;
$$ LANGUAGE plpgsql`, ident.Quote(fn), ns.Qualified(cfg.ShadowTable))
	if _, err := tx.Exec(ctx, stmt); err != nil {
		return errors.Wrap(err, "could not create trigger function")
	}

	trigger := ns.Raw() + "_shadow_bump_trigger"
	dropStmt := fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`, ident.Quote(trigger), cfg.sourceFullName())
	if _, err := tx.Exec(ctx, dropStmt); err != nil {
		return errors.Wrap(err, "could not drop pre-existing trigger")
	}
	createStmt := fmt.Sprintf(`
CREATE TRIGGER %s
AFTER INSERT OR UPDATE ON %s
FOR EACH ROW EXECUTE FUNCTION %s()`, ident.Quote(trigger), cfg.sourceFullName(), ident.Quote(fn))
	if _, err := tx.Exec(ctx, createStmt); err != nil {
		return errors.Wrap(err, "could not attach trigger")
	}
	return nil
}

// ensureVectorIndex creates the cosine-distance ivfflat index, tolerating
// the "not enough rows" failure the way
// 98c4550c_fbrzx-airplane-chat/internal/vectorstore's ensureSchema does
// for a freshly created, empty table.
func ensureVectorIndex(ctx context.Context, tx pgx.Tx, ns ident.Namespace, cfg Config) error {
	idxName := ns.Raw() + "_" + cfg.ChunksTable + "_embedding_idx"
	stmt := fmt.Sprintf(`
DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_indexes WHERE schemaname = %s AND indexname = %s
	) THEN
		EXECUTE 'CREATE INDEX ' || quote_ident(%s) || ' ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)';
	END IF;
END
$$`, quoteLiteral(ns.Raw()), quoteLiteral(idxName), quoteLiteral(idxName), ns.Qualified(cfg.ChunksTable))

	// Run inside a savepoint so that a failure here does not abort the
	// surrounding install transaction.
	sp, err := tx.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "could not open vector index savepoint")
	}
	if _, err := sp.Exec(ctx, stmt); err != nil {
		_ = sp.Rollback(ctx)
		log.WithError(err).Warn("could not create embedding vector index; will retry on next install")
		return nil
	}
	return errors.Wrap(sp.Commit(ctx), "could not release vector index savepoint")
}

// reconcile implements spec.md §4.1 step 10: it tolerates a prior
// source-table drop+recreate by dropping orphaned shadow/chunk rows,
// truncating the work queue, and backfilling shadow rows for any source
// rows that lack one.
func reconcile(ctx context.Context, tx pgx.Tx, ns ident.Namespace, cfg Config) error {
	src := cfg.sourceFullName()

	del := fmt.Sprintf(`DELETE FROM %s WHERE doc_id NOT IN (SELECT id FROM %s)`, ns.Qualified(cfg.ShadowTable), src)
	if _, err := tx.Exec(ctx, del); err != nil {
		return errors.Wrap(err, "could not reconcile orphaned shadow rows")
	}

	del = fmt.Sprintf(`DELETE FROM %s WHERE doc_id NOT IN (SELECT id FROM %s)`, ns.Qualified(cfg.ChunksTable), src)
	if _, err := tx.Exec(ctx, del); err != nil {
		return errors.Wrap(err, "could not reconcile orphaned chunk rows")
	}

	truncate := fmt.Sprintf(`TRUNCATE TABLE %s`, ns.Qualified(cfg.WorkQueueTable))
	if _, err := tx.Exec(ctx, truncate); err != nil {
		return errors.Wrap(err, "could not truncate work queue during reconciliation")
	}

	backfill := fmt.Sprintf(`
INSERT INTO %s (doc_id, vector_clock)
SELECT id, 1 FROM %s src
WHERE NOT EXISTS (SELECT 1 FROM %s sh WHERE sh.doc_id = src.id)`,
		ns.Qualified(cfg.ShadowTable), src, ns.Qualified(cfg.ShadowTable))
	if _, err := tx.Exec(ctx, backfill); err != nil {
		return errors.Wrap(err, "could not backfill shadow rows")
	}
	return nil
}

// quoteLiteral single-quotes s for use as a SQL string literal inside a
// dynamically built statement, doubling embedded quotes.
func quoteLiteral(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
		} else {
			out = append(out, s[i])
		}
	}
	out = append(out, '\'')
	return string(out)
}
