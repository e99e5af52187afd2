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

// Package diag implements the health-check registry of spec.md §E's
// diagnostics supplement: components register a named Ping-style check,
// and Handle.Ping runs them all. The per-component check shape mirrors
// steveyegge-beads' rpc.Client.Ping single-call health probe, generalized
// from one hardcoded check to a name-keyed registry so the connection
// pool, and any component added later, can register its own.
package diag

import (
	"context"
	"sync"
)

// Func is one component's health check.
type Func func(ctx context.Context) error

// Diagnostics is a registry of named health checks.
type Diagnostics struct {
	mu    sync.Mutex
	funcs map[string]Func
}

// New returns an empty registry.
func New() *Diagnostics {
	return &Diagnostics{funcs: map[string]Func{}}
}

// Register adds a named health check, replacing any check already
// registered under name.
func (d *Diagnostics) Register(name string, fn Func) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.funcs[name] = fn
}

// RunAll executes every registered check and returns each one's result,
// keyed by name.
func (d *Diagnostics) RunAll(ctx context.Context) map[string]error {
	d.mu.Lock()
	funcs := make(map[string]Func, len(d.funcs))
	for name, fn := range d.funcs {
		funcs[name] = fn
	}
	d.mu.Unlock()

	out := make(map[string]error, len(funcs))
	for name, fn := range funcs {
		out[name] = fn(ctx)
	}
	return out
}
