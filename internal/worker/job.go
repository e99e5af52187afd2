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

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/BarnacleLabs/RAGmatic/internal/clock"
	"github.com/BarnacleLabs/RAGmatic/internal/metrics"
	"github.com/BarnacleLabs/RAGmatic/internal/queue"
	"github.com/BarnacleLabs/RAGmatic/internal/ragerr"
	"github.com/BarnacleLabs/RAGmatic/internal/types"
)

// processJob runs the per-job protocol of spec.md §4.5 to completion for
// one claimed job, implementing each numbered step as its own method so
// that the happy path reads as a single straight-line sequence, the way
// the teacher's resolver.process composes its flush closure from named
// sub-steps.
func (w *Worker) processJob(ctx context.Context, job queue.Job) error {
	// Step 1: preemption check.
	latest, ok, err := w.queue.LatestClock(ctx, job.DocID)
	if err != nil {
		return w.handleJobError(ctx, job, err)
	}
	if ok && latest > job.VectorClock {
		metrics.JobSkippedTotal.WithLabelValues(w.Pipeline).Inc()
		return w.queue.MarkSkipped(ctx, job.ID, "newer job found")
	}

	// Step 2: load row.
	row, found, err := w.loadRow(ctx, job.DocID)
	if err != nil {
		return w.handleJobError(ctx, job, err)
	}
	if !found {
		metrics.JobSkippedTotal.WithLabelValues(w.Pipeline).Inc()
		return w.queue.MarkSkipped(ctx, job.ID, ragerr.ErrDocumentDeleted.Error())
	}

	// Step 3: chunk.
	chunks, err := w.Chunker.Chunk(ctx, row)
	if err != nil {
		return w.handleJobError(ctx, job, errors.Wrap(err, "chunk callback failed"))
	}

	// Step 4: hash.
	keys := make([]string, len(chunks))
	for i, c := range chunks {
		keys[i] = hashKey(w.Hasher.Hash(c), i)
	}

	// Step 5: open job transaction and run the commit-or-skip protocol.
	status, err := w.commitJob(ctx, job, row.DocID, chunks, keys)
	if err != nil {
		return w.handleJobError(ctx, job, err)
	}
	switch status {
	case queue.StatusCompleted:
		metrics.JobCompletedTotal.WithLabelValues(w.Pipeline).Inc()
	case queue.StatusSkipped:
		metrics.JobSkippedTotal.WithLabelValues(w.Pipeline).Inc()
	}
	return nil
}

// commitJob implements spec.md §4.5 step 5: it diffs the stored chunk set
// against the freshly computed one, embeds only the new chunks, swaps the
// chunk set, and attempts the atomic completion gate, all inside one
// transaction.
func (w *Worker) commitJob(ctx context.Context, job queue.Job, docID any, chunks []types.Chunk, keys []string) (queue.Status, error) {
	tx, err := w.Pool.Begin(ctx)
	if err != nil {
		return "", errors.Wrap(err, "could not begin job transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing := map[string]bool{}
	rows, err := tx.Query(ctx, fmt.Sprintf(`SELECT chunk_hash FROM %s WHERE doc_id = $1`, w.NS.Qualified(w.chunksTable)), docID)
	if err != nil {
		return "", errors.Wrap(err, "could not read existing chunk hashes")
	}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			rows.Close()
			return "", errors.Wrap(err, "could not scan existing chunk hash")
		}
		existing[h] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return "", errors.Wrap(err, "could not iterate existing chunk hashes")
	}
	rows.Close()

	newIndices, toDelete := diffChunks(existing, keys)

	for _, i := range newIndices {
		c := chunks[i]
		key := keys[i]
		metrics.EmbedCallsTotal.WithLabelValues(w.Pipeline).Inc()
		result, err := w.Embedder.Embed(ctx, c, i)
		if err != nil {
			return "", err
		}
		if len(result.Embedding) != w.embeddingDimension {
			return "", ragerr.Permanentf("embedding dimension mismatch: expected %d got %d", w.embeddingDimension, len(result.Embedding))
		}
		for _, f := range result.Embedding {
			if isNonFinite(f) {
				return "", ragerr.Permanentf("embedding contains a non-finite value")
			}
		}
		if err := w.insertChunk(ctx, tx, docID, job.VectorClock, i, key, c, result); err != nil {
			return "", err
		}
	}

	if len(toDelete) > 0 {
		del := fmt.Sprintf(`DELETE FROM %s WHERE doc_id = $1 AND chunk_hash = ANY($2)`, w.NS.Qualified(w.chunksTable))
		if _, err := tx.Exec(ctx, del, docID, toDelete); err != nil {
			return "", errors.Wrap(err, "could not delete superseded chunks")
		}
	}

	bump := fmt.Sprintf(`UPDATE %s SET vector_clock = $2 WHERE doc_id = $1`, w.NS.Qualified(w.chunksTable))
	if _, err := tx.Exec(ctx, bump, docID, int64(job.VectorClock)); err != nil {
		return "", errors.Wrap(err, "could not advance surviving chunk clocks")
	}

	gate := fmt.Sprintf(`
UPDATE %[1]s
SET status = 'completed', completed_at = now()
WHERE doc_id = $1 AND vector_clock = $2 AND worker_id = $3
  AND $2 = (SELECT vector_clock FROM %[2]s WHERE doc_id = $1)
RETURNING id`, w.NS.Qualified(w.queue.Table), w.NS.Qualified(w.shadowTable))

	var gatedID int64
	gateErr := tx.QueryRow(ctx, gate, docID, int64(job.VectorClock), w.ID).Scan(&gatedID)
	if gateErr != nil && !errors.Is(gateErr, pgx.ErrNoRows) {
		return "", errors.Wrap(gateErr, "could not run completion gate")
	}
	if gateErr != nil {
		// Step 5f: the gate returned zero rows. Roll back and inspect the
		// shadow to decide between skipped and leave-untouched.
		_ = tx.Rollback(ctx)
		shadowClock, serr := w.currentShadowClock(ctx, docID)
		if serr != nil {
			return "", serr
		}
		if shadowClock > job.VectorClock {
			return queue.StatusSkipped, w.queue.MarkSkipped(ctx, job.ID, "vector clock no longer latest")
		}
		// Another worker's claim superseded ours; leave the row untouched.
		return queue.StatusProcessing, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return "", errors.Wrap(err, "could not commit job transaction")
	}
	return queue.StatusCompleted, nil
}

// insertChunk inserts one newly embedded chunk, per spec.md §3's chunk
// record shape: exactly one of text/blob/json payload plus optional
// siblings, and the embedding vector. Grounded on
// 98c4550c_fbrzx-airplane-chat's UpsertDocumentChunks, which uses
// pgvector.NewVector to pass a []float32 as a vector column argument.
func (w *Worker) insertChunk(ctx context.Context, tx pgx.Tx, docID any, clockValue clock.Value, index int, key string, c types.Chunk, result types.EmbedResult) error {
	text := c.Text
	if result.Text != nil {
		text = *result.Text
	}
	blob := c.Blob
	if result.Blob != nil {
		blob = result.Blob
	}
	payload := c.JSON
	if result.JSON != nil {
		payload = result.JSON
	}

	stmt := fmt.Sprintf(`
INSERT INTO %s (doc_id, vector_clock, index, chunk_hash, text, blob, json, metadata, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, w.NS.Qualified(w.chunksTable))

	var metadataJSON []byte
	if len(c.Metadata) > 0 {
		encoded, err := json.Marshal(c.Metadata)
		if err != nil {
			return errors.Wrap(err, "could not encode chunk metadata")
		}
		metadataJSON = encoded
	}

	var textArg, blobArg, jsonArg any
	if c.Kind == types.PayloadText || text != "" {
		textArg = text
	}
	if c.Kind == types.PayloadBlob || len(blob) > 0 {
		blobArg = blob
	}
	if c.Kind == types.PayloadJSON || len(payload) > 0 {
		jsonArg = payload
	}

	_, err := tx.Exec(ctx, stmt, docID, int64(clockValue), index, key, textArg, blobArg, jsonArg, metadataJSON,
		pgvector.NewVector(result.Embedding))
	return errors.Wrap(err, "could not insert chunk")
}

func (w *Worker) currentShadowClock(ctx context.Context, docID any) (clock.Value, error) {
	var current int64
	stmt := fmt.Sprintf(`SELECT vector_clock FROM %s WHERE doc_id = $1`, w.NS.Qualified(w.shadowTable))
	err := w.Pool.QueryRow(ctx, stmt, docID).Scan(&current)
	return clock.Value(current), errors.Wrap(err, "could not read current shadow clock")
}

// handleJobError implements spec.md §7's propagation policy: a retryable
// failure returns the job to pending with an incremented retry_count;
// otherwise (permanent, or retries exhausted) the job fails.
func (w *Worker) handleJobError(ctx context.Context, job queue.Job, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if ragerr.IsRetryable(err) && job.RetryCount < w.Config.MaxRetries {
		metrics.JobRetriedTotal.WithLabelValues(w.Pipeline).Inc()
		delay := queue.Backoff(w.Config.InitialRetryDelay, job.RetryCount, w.Config.MaxRetryDelay)
		return w.queue.MarkRetry(ctx, job.ID, err.Error(), delay)
	}
	metrics.JobFailedTotal.WithLabelValues(w.Pipeline).Inc()
	return w.queue.MarkFailed(ctx, job.ID, err.Error())
}

func isNonFinite(f float32) bool {
	return f != f || f > math.MaxFloat32 || f < -math.MaxFloat32
}
