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

// Package admin implements the four operations of spec.md §4.6, composed
// from internal/schema (destroy/get-config) and internal/queue
// (count-remaining) plus internal/shadowtbl (reprocess-all). No single
// teacher file owns an equivalent "admin operations" surface; the
// destroy operation's DROP SCHEMA CASCADE mirrors the DDL-hook cleanup
// idea sketched in the teacher's installer notes.
package admin

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BarnacleLabs/RAGmatic/internal/ident"
	"github.com/BarnacleLabs/RAGmatic/internal/queue"
	"github.com/BarnacleLabs/RAGmatic/internal/schema"
	"github.com/BarnacleLabs/RAGmatic/internal/shadowtbl"
)

// Admin operates the administrative surface for one installed pipeline.
type Admin struct {
	Pool           *pgxpool.Pool
	NS             ident.Namespace
	Installer      *schema.Installer
	ShadowTable    string
	ChunksTable    string
	WorkQueueTable string
	SourceFullName string
}

// CountRemainingDocuments implements spec.md §4.6 count-remaining.
func (a *Admin) CountRemainingDocuments(ctx context.Context) (int64, error) {
	q := queue.Queue{Pool: a.Pool, NS: a.NS, Table: a.WorkQueueTable}
	return q.CountPending(ctx)
}

// Stats implements spec.md §E's Handle.Stats, a superset of
// CountRemainingDocuments reporting every work-queue status's count.
func (a *Admin) Stats(ctx context.Context) (queue.Stats, error) {
	q := queue.Queue{Pool: a.Pool, NS: a.NS, Table: a.WorkQueueTable}
	return q.Stats(ctx)
}

// ReprocessAll implements spec.md §4.6 reprocess-all.
func (a *Admin) ReprocessAll(ctx context.Context) error {
	return shadowtbl.ReprocessAll(ctx, a.Pool, a.NS, a.ShadowTable, a.SourceFullName)
}

// Destroy implements spec.md §4.6 destroy.
func (a *Admin) Destroy(ctx context.Context) error {
	return a.Installer.Destroy(ctx, a.NS, a.SourceFullName)
}

// GetConfig implements spec.md §4.6 get-config.
func (a *Admin) GetConfig(ctx context.Context) (map[string]string, error) {
	return a.Installer.GetConfig(ctx, a.NS)
}
