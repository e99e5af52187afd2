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

// Package worker implements the long-running engine of spec.md §4.4-4.5:
// the enqueue loop, the process loop's claim protocol, and the per-job
// chunk/embed/commit pipeline. The loop shape -- a ticker-driven run()
// guarded by a stop channel, with a semaphore-bounded fan-out over a
// claimed batch -- is grounded on
// c462c546_emergent-company-emergent's ChunkEmbeddingWorker
// (Start/Stop/run/processBatch). The completion-gate transaction is
// grounded on the teacher's internal/source/logical/serial_events.go
// transactional event-boundary idiom.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/BarnacleLabs/RAGmatic/internal/ident"
	"github.com/BarnacleLabs/RAGmatic/internal/metrics"
	"github.com/BarnacleLabs/RAGmatic/internal/notify"
	"github.com/BarnacleLabs/RAGmatic/internal/queue"
	"github.com/BarnacleLabs/RAGmatic/internal/stopper"
	"github.com/BarnacleLabs/RAGmatic/internal/types"
)

// Worker is one polling process's view of a pipeline. Many Workers,
// across many processes, may point at the same pipeline namespace
// concurrently; see spec.md §5.
type Worker struct {
	ID string

	Pipeline string
	Pool     *pgxpool.Pool
	NS       ident.Namespace
	Config   Config

	Chunker  types.Chunker
	Embedder types.Embedder
	Hasher   types.Hasher

	sourceFullName     string
	shadowTable        string
	chunksTable        string
	embeddingDimension int

	queue queue.Queue

	mu      sync.Mutex
	running bool
	paused  bool
	wake    notify.Var[int]

	stopper *stopper.Context
}

// New constructs a Worker for pipeline over pool/ns. sourceFullName is the
// schema-qualified, quoted source table reference; shadowTable and
// chunksTable are the bare (unqualified) table names produced by
// internal/schema's normalized Config -- this Worker namespace-qualifies
// them itself, the same way internal/queue.Queue does.
func New(pipeline string, pool *pgxpool.Pool, ns ident.Namespace, sourceFullName, shadowTable, chunksTable string, embeddingDimension int, chunker types.Chunker, embedder types.Embedder, hasher types.Hasher, cfg Config) *Worker {
	if hasher == nil {
		hasher = types.HasherFunc(DefaultHash)
	}
	w := &Worker{
		ID:                 uuid.NewString(),
		Pipeline:           pipeline,
		Pool:               pool,
		NS:                 ns,
		Config:             cfg.normalized(),
		Chunker:            chunker,
		Embedder:           embedder,
		Hasher:             hasher,
		sourceFullName:     sourceFullName,
		shadowTable:        shadowTable,
		chunksTable:        chunksTable,
		embeddingDimension: embeddingDimension,
	}
	w.queue = queue.Queue{
		Pool:        pool,
		Begin:       pool,
		NS:          ns,
		ShadowTable: shadowTable,
		ChunksTable: chunksTable,
		Table:       ident.DefaultWorkQueueTable,
	}
	return w
}

// Start launches the enqueue loop and the process loop, per spec.md §4.4.
// It is a no-op if the worker is already running.
func (w *Worker) Start(parent context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopper = stopper.WithContext(parent)
	w.mu.Unlock()

	logger := w.log()
	logger.WithField("worker_id", w.ID).Info("starting worker")

	w.stopper.Go(func() error {
		w.enqueueLoop(w.stopper)
		return nil
	})
	w.stopper.Go(func() error {
		w.processLoop(w.stopper)
		return nil
	})
	return nil
}

// Stop implements spec.md §5's cancellation model: it cancels the timers
// and awaits the in-flight tick to finish, then releases the pool.
func (w *Worker) Stop(timeout time.Duration) []error {
	w.mu.Lock()
	running := w.running
	w.running = false
	s := w.stopper
	w.mu.Unlock()

	var errs []error
	if running && s != nil {
		errs = s.Stop(timeout)
	}
	w.Pool.Close()
	return errs
}

// Pause suspends both loops until Resume is called, without tearing down
// the connection pool, per spec.md §5's pause/stop distinction.
func (w *Worker) Pause() {
	w.mu.Lock()
	w.paused = true
	w.mu.Unlock()
}

// Resume reverses Pause.
func (w *Worker) Resume() {
	w.mu.Lock()
	w.paused = false
	w.mu.Unlock()
	w.wake.Set(1)
}

func (w *Worker) isPaused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paused
}

func (w *Worker) log() *log.Entry {
	logger := w.Config.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return logger.WithFields(log.Fields{"pipeline": w.Pipeline, "worker_id": w.ID})
}

// enqueueLoop is the first of the two cooperatively scheduled periodic
// loops of spec.md §5: it never overlaps with itself, a new tick is
// scheduled only after the previous tick completes.
func (w *Worker) enqueueLoop(ctx *stopper.Context) {
	ticker := time.NewTicker(w.Config.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Stopping():
			return
		case <-ticker.C:
			if w.isPaused() {
				continue
			}
			n, err := w.queue.Enqueue(ctx, w.Config.BatchSize)
			if err != nil {
				w.log().WithError(err).Warn("enqueue tick failed")
				continue
			}
			if n > 0 {
				metrics.EnqueuedTotal.WithLabelValues(w.Pipeline).Add(float64(n))
				w.wake.Set(1)
			}
		}
	}
}

// processLoop is the second periodic loop: it claims and processes jobs.
func (w *Worker) processLoop(ctx *stopper.Context) {
	ticker := time.NewTicker(w.Config.PollingInterval)
	defer ticker.Stop()

	_, wakeup := w.wake.Get()

	for {
		select {
		case <-ctx.Stopping():
			return
		case <-ticker.C:
			w.tick(ctx)
		case <-wakeup:
			_, wakeup = w.wake.Get()
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx *stopper.Context) {
	if w.isPaused() {
		return
	}
	if err := w.processBatch(ctx); err != nil {
		w.log().WithError(err).Warn("process tick failed")
	}
}

// processBatch claims up to Config.BatchSize jobs and processes them
// concurrently, bounded by a semaphore the way
// ChunkEmbeddingWorker.processBatch bounds its fan-out.
func (w *Worker) processBatch(ctx context.Context) error {
	jobs, reclaimed, err := w.queue.Claim(ctx, w.ID, w.Config.BatchSize, w.Config.StalledJobTimeout)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}
	metrics.ClaimedTotal.WithLabelValues(w.Pipeline).Add(float64(len(jobs)))
	if reclaimed > 0 {
		metrics.StallsRecoveredTotal.WithLabelValues(w.Pipeline).Add(float64(reclaimed))
	}

	sem := make(chan struct{}, len(jobs))
	var wg sync.WaitGroup
	for _, job := range jobs {
		sem <- struct{}{}
		wg.Add(1)
		go func(j queue.Job) {
			defer wg.Done()
			defer func() { <-sem }()
			start := time.Now()
			if err := w.processJob(ctx, j); err != nil {
				w.log().WithError(err).WithField("doc_id", j.DocID).Warn("process job failed")
			}
			metrics.JobDuration.WithLabelValues(w.Pipeline).Observe(time.Since(start).Seconds())
		}(job)
	}
	wg.Wait()
	return nil
}
