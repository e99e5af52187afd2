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

package ragmatic

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/BarnacleLabs/RAGmatic/internal/ident"
	"github.com/BarnacleLabs/RAGmatic/internal/queue"
	"github.com/BarnacleLabs/RAGmatic/internal/schema"
	"github.com/BarnacleLabs/RAGmatic/internal/stopper"
	"github.com/BarnacleLabs/RAGmatic/internal/wiring"
)

// Stats is the per-status work-queue breakdown returned by Handle.Stats.
type Stats = queue.Stats

var (
	handlesMu sync.Mutex
	handles   = map[string]*Handle{}
)

// Handle is a live, installed pipeline: the lifecycle and admin operations
// of spec.md §6, bound to the Components Create assembled for it.
type Handle struct {
	Name string

	ns   ident.Namespace
	comp *wiring.Components
}

// Create installs pipeline name over sourceTable and returns its handle,
// per spec.md §6. Repeated calls with the same name are idempotent and
// return the same handle within this process, per spec.md §9's
// per-process handle cache note -- the one piece of global state this
// package keeps.
func Create(
	ctx context.Context,
	connectString, name, sourceTable string,
	embeddingDimension int,
	chunker Chunker,
	embedder Embedder,
	opts ...Option,
) (*Handle, error) {
	handlesMu.Lock()
	if h, ok := handles[name]; ok {
		handlesMu.Unlock()
		return h, nil
	}
	handlesMu.Unlock()

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sc := stopper.WithContext(ctx)
	pc := wiring.PipelineConfig{
		ConnectString:  connectString,
		MaxConns:       o.maxPoolConns,
		WaitForStartup: o.waitForStartup,
		Schema: schema.Config{
			PipelineName:            name,
			SourceSchema:            o.sourceSchema,
			SourceTable:             sourceTable,
			IDKind:                  o.idKind,
			EmbeddingDimension:      embeddingDimension,
			SkipEmbeddingIndexSetup: o.skipEmbeddingIndexSetup,
		},
		Chunker:  chunker,
		Embedder: embedder,
		Hasher:   o.hasher,
		Worker:   o.workerConfig,
	}

	comp, err := wiring.BuildComponents(sc, pc)
	if err != nil {
		sc.Stop(0)
		return nil, err
	}

	h := &Handle{Name: name, ns: comp.NS, comp: comp}

	handlesMu.Lock()
	handles[name] = h
	handlesMu.Unlock()

	return h, nil
}

// Start launches the worker's enqueue and process loops.
func (h *Handle) Start(ctx context.Context) error {
	return h.comp.Worker.Start(ctx)
}

// Stop cancels the loops' timers, awaits the in-flight tick, and releases
// the connection pool, per spec.md §5.
func (h *Handle) Stop(timeout time.Duration) []error {
	return h.comp.Worker.Stop(timeout)
}

// Pause suspends both loops without releasing the connection pool.
func (h *Handle) Pause() { h.comp.Worker.Pause() }

// Resume reverses Pause.
func (h *Handle) Resume() { h.comp.Worker.Resume() }

// ReprocessAll implements spec.md §4.6 reprocess-all.
func (h *Handle) ReprocessAll(ctx context.Context) error {
	return h.comp.Admin.ReprocessAll(ctx)
}

// CountRemainingDocuments implements spec.md §4.6 count-remaining.
func (h *Handle) CountRemainingDocuments(ctx context.Context) (int64, error) {
	return h.comp.Admin.CountRemainingDocuments(ctx)
}

// Destroy implements spec.md §4.6 destroy: it drops the pipeline's
// namespace and evicts it from the per-process handle cache, so a later
// Create with the same name installs fresh.
func (h *Handle) Destroy(ctx context.Context) error {
	if err := h.comp.Admin.Destroy(ctx); err != nil {
		return err
	}
	handlesMu.Lock()
	delete(handles, h.Name)
	handlesMu.Unlock()
	return nil
}

// GetConfig implements spec.md §4.6 get-config.
func (h *Handle) GetConfig(ctx context.Context) (map[string]string, error) {
	return h.comp.Admin.GetConfig(ctx)
}

// Stats implements spec.md §E's Stats supplement: a superset of
// CountRemainingDocuments reporting every work-queue status's count.
func (h *Handle) Stats(ctx context.Context) (Stats, error) {
	return h.comp.Admin.Stats(ctx)
}

// Ping implements spec.md §E's diagnostics supplement: it runs every
// registered health check and reports the first failure found, if any.
func (h *Handle) Ping(ctx context.Context) error {
	for name, err := range h.comp.Diagnostics.RunAll(ctx) {
		if err != nil {
			return errors.Wrapf(err, "diagnostic %q failed", name)
		}
	}
	return nil
}
