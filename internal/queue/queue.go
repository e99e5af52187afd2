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

// Package queue implements the work-queue enqueuer (spec.md §4.3) and the
// claim protocol (spec.md §4.4). The FOR UPDATE SKIP LOCKED dequeue, the
// exponential backoff on retry, and the stale-processing reclaim are
// modeled on c906fbee_emergent-company-emergent's
// ChunkEmbeddingJobsService (Dequeue / MarkFailed / RecoverStaleJobs),
// adapted from bun/database-sql to pgx and from a single-table job queue
// to the (doc_id, vector_clock) keyed queue this engine needs.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BarnacleLabs/RAGmatic/internal/clock"
	"github.com/BarnacleLabs/RAGmatic/internal/ident"
	"github.com/BarnacleLabs/RAGmatic/internal/types"
)

// Status is a work queue record's lifecycle state, per spec.md §3.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Job is one work queue record.
type Job struct {
	ID                  int64
	DocID               any
	VectorClock         clock.Value
	Status              Status
	CreatedAt           time.Time
	ProcessingStartedAt *time.Time
	CompletedAt         *time.Time
	WorkerID            *string
	Error               *string
	RetryCount          int
}

// ClockValue implements types.ClockOf.
func (j Job) ClockValue() clock.Value { return j.VectorClock }

// Backoff implements spec.md §7's retry delay formula:
// min(initialRetryDelayMs × 2^attempt, 3 000 000 ms).
func Backoff(initialDelay time.Duration, attempt int, maxDelay time.Duration) time.Duration {
	if maxDelay <= 0 {
		maxDelay = 3_000_000 * time.Millisecond
	}
	d := initialDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	return d
}

// Queue operates the work_queue table for one pipeline namespace.
type Queue struct {
	Pool        types.StagingQuerier
	Begin       types.Begin
	NS          ident.Namespace
	ShadowTable string
	ChunksTable string
	Table       string
}

func (q Queue) table() string  { return q.NS.Qualified(q.Table) }
func (q Queue) shadow() string { return q.NS.Qualified(q.ShadowTable) }
func (q Queue) chunks() string { return q.NS.Qualified(q.ChunksTable) }

// Enqueue implements spec.md §4.3: compute the outdated set, exclude
// already-queued (doc_id, clock) pairs, order most-stale first, and
// insert up to batchSize rows, tolerating a race with another worker's
// concurrent enqueue via ON CONFLICT DO NOTHING on the uniqueness
// constraint.
func (q Queue) Enqueue(ctx context.Context, batchSize int) (int64, error) {
	stmt := fmt.Sprintf(`
WITH outdated AS (
	SELECT sh.doc_id, sh.vector_clock AS shadow_clock,
	       COALESCE((SELECT max(c.vector_clock) FROM %[2]s c WHERE c.doc_id = sh.doc_id), 0) AS chunk_clock
	FROM %[1]s sh
),
candidates AS (
	SELECT doc_id, shadow_clock
	FROM outdated
	WHERE shadow_clock > chunk_clock
	  AND NOT EXISTS (
		SELECT 1 FROM %[3]s wq WHERE wq.doc_id = outdated.doc_id AND wq.vector_clock = outdated.shadow_clock
	  )
	ORDER BY (shadow_clock - chunk_clock) DESC, shadow_clock ASC
	LIMIT $1
)
INSERT INTO %[3]s (doc_id, vector_clock, status)
SELECT doc_id, shadow_clock, 'pending' FROM candidates
ON CONFLICT (doc_id, vector_clock) DO NOTHING`, q.shadow(), q.chunks(), q.table())

	tag, err := q.Pool.Exec(ctx, stmt, batchSize)
	if err != nil {
		return 0, errors.Wrap(err, "could not enqueue pending jobs")
	}
	return tag.RowsAffected(), nil
}

// Claim implements spec.md §4.4's claim protocol: inside a READ
// COMMITTED transaction, SELECT FOR UPDATE SKIP LOCKED the pending-or-
// stalled rows, then UPDATE them to processing with a WHERE clause that
// re-checks the same predicate, atomically guaranteeing at-most-one
// owner per job. The second return value is the number of claimed rows
// that were reclaimed from a stalled 'processing' state rather than
// claimed fresh from 'pending', for the stall-recovery metric.
func (q Queue) Claim(ctx context.Context, workerID string, batchSize int, stalledTimeout time.Duration) ([]Job, int, error) {
	tx, err := q.Begin.Begin(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "could not begin claim transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stmt := fmt.Sprintf(`
WITH cte AS (
	SELECT id, status AS old_status FROM %[1]s
	WHERE (status = 'pending' AND (retry_after IS NULL OR retry_after <= now()))
	   OR (status = 'processing' AND processing_started_at < now() - $1::interval)
	ORDER BY created_at ASC
	FOR UPDATE SKIP LOCKED
	LIMIT $2
)
UPDATE %[1]s wq
SET status = 'processing', processing_started_at = now(), worker_id = $3
FROM cte
WHERE wq.id = cte.id
  AND (wq.status = 'pending' AND (wq.retry_after IS NULL OR wq.retry_after <= now())
       OR (wq.status = 'processing' AND wq.processing_started_at < now() - $1::interval))
RETURNING wq.id, wq.doc_id, wq.vector_clock, wq.status, wq.created_at,
          wq.processing_started_at, wq.completed_at, wq.worker_id, wq.error, wq.retry_count,
          cte.old_status`,
		q.table())

	rows, err := tx.Query(ctx, stmt, stalledTimeout.String(), batchSize, workerID)
	if err != nil {
		return nil, 0, errors.Wrap(err, "could not claim jobs")
	}
	jobs, reclaimed, err := scanClaimedJobs(rows)
	rows.Close()
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, errors.Wrap(err, "could not commit claim transaction")
	}
	return jobs, reclaimed, nil
}

func scanClaimedJobs(rows pgx.Rows) ([]Job, int, error) {
	var jobs []Job
	var reclaimed int
	for rows.Next() {
		var j Job
		var oldStatus Status
		if err := rows.Scan(&j.ID, &j.DocID, &j.VectorClock, &j.Status, &j.CreatedAt,
			&j.ProcessingStartedAt, &j.CompletedAt, &j.WorkerID, &j.Error, &j.RetryCount, &oldStatus); err != nil {
			return nil, 0, errors.Wrap(err, "could not scan claimed job")
		}
		if oldStatus == StatusProcessing {
			reclaimed++
		}
		jobs = append(jobs, j)
	}
	return jobs, reclaimed, errors.Wrap(rows.Err(), "could not iterate claimed jobs")
}

// MarkSkipped transitions a job to skipped with reason, per spec.md §4.4.
func (q Queue) MarkSkipped(ctx context.Context, jobID int64, reason string) error {
	stmt := fmt.Sprintf(`UPDATE %s SET status = 'skipped', error = $2, completed_at = now() WHERE id = $1`, q.table())
	_, err := q.Pool.Exec(ctx, stmt, jobID, reason)
	return errors.Wrap(err, "could not mark job skipped")
}

// MarkRetry returns a job to pending with an incremented retry_count and
// a cleared lease, per spec.md §7. delay is the backoff computed by the
// caller (normally via Backoff) and is stored as retry_after, so Claim
// will not reclaim the row again until it elapses.
func (q Queue) MarkRetry(ctx context.Context, jobID int64, errMsg string, delay time.Duration) error {
	stmt := fmt.Sprintf(`
UPDATE %s
SET status = 'pending', error = $2, retry_count = retry_count + 1,
    worker_id = NULL, processing_started_at = NULL, retry_after = now() + $3::interval
WHERE id = $1`, q.table())
	_, err := q.Pool.Exec(ctx, stmt, jobID, errMsg, delay.String())
	return errors.Wrap(err, "could not return job to pending")
}

// MarkFailed transitions a job to the terminal failed state, per spec.md §4.4.
func (q Queue) MarkFailed(ctx context.Context, jobID int64, errMsg string) error {
	stmt := fmt.Sprintf(`UPDATE %s SET status = 'failed', error = $2, completed_at = now() WHERE id = $1`, q.table())
	_, err := q.Pool.Exec(ctx, stmt, jobID, errMsg)
	return errors.Wrap(err, "could not mark job failed")
}

// CountPending implements spec.md §4.6 count-remaining.
func (q Queue) CountPending(ctx context.Context) (int64, error) {
	stmt := fmt.Sprintf(`SELECT count(*) FROM %s WHERE status = 'pending'`, q.table())
	var n int64
	err := q.Pool.QueryRow(ctx, stmt).Scan(&n)
	return n, errors.Wrap(err, "could not count pending jobs")
}

// Stats is the per-status work-queue breakdown of spec.md §E's Stats
// supplement, grounded on c906fbee_emergent-company-emergent's
// ChunkEmbeddingQueueStats.
type Stats struct {
	Pending    int64
	Processing int64
	Completed  int64
	Failed     int64
	Skipped    int64
}

// Stats implements spec.md §E's Handle.Stats: a superset of CountPending
// reporting every status's count in one query.
func (q Queue) Stats(ctx context.Context) (Stats, error) {
	stmt := fmt.Sprintf(`SELECT
	count(*) FILTER (WHERE status = 'pending'),
	count(*) FILTER (WHERE status = 'processing'),
	count(*) FILTER (WHERE status = 'completed'),
	count(*) FILTER (WHERE status = 'failed'),
	count(*) FILTER (WHERE status = 'skipped')
FROM %s`, q.table())
	var s Stats
	err := q.Pool.QueryRow(ctx, stmt).Scan(&s.Pending, &s.Processing, &s.Completed, &s.Failed, &s.Skipped)
	return s, errors.Wrap(err, "could not read queue stats")
}

// LatestClock returns the highest vector_clock queued for doc_id, used by
// the preemption check of spec.md §4.5 step 1.
func (q Queue) LatestClock(ctx context.Context, docID any) (clock.Value, bool, error) {
	stmt := fmt.Sprintf(`SELECT max(vector_clock) FROM %s WHERE doc_id = $1`, q.table())
	var v *int64
	if err := q.Pool.QueryRow(ctx, stmt, docID).Scan(&v); err != nil {
		return 0, false, errors.Wrap(err, "could not read latest queued clock")
	}
	if v == nil {
		return 0, false, nil
	}
	return clock.Value(*v), true, nil
}
