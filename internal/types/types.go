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

// Package types contains the data types and interfaces that define the
// major functional blocks of RAGmatic. Placing them here, rather than in
// the packages that implement them, makes it easy to compose the engine's
// pieces without import cycles -- the same reason the teacher keeps an
// analogous internal/types package.
package types

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BarnacleLabs/RAGmatic/internal/clock"
)

// StagingQuerier is implemented by pgxpool.Pool, pgxpool.Conn, pgxpool.Tx,
// pgx.Conn, and pgx.Tx. It is the minimal surface every RAGmatic component
// needs from a database connection, mirrored from the teacher's
// internal/types.StagingQuerier so that installer, worker, and admin code
// can all accept either a pool or an open transaction interchangeably.
type StagingQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...interface{}) pgx.Row
}

var (
	_ StagingQuerier = (*pgxpool.Conn)(nil)
	_ StagingQuerier = (*pgxpool.Pool)(nil)
	_ StagingQuerier = (pgx.Tx)(nil)
	_ StagingQuerier = (*pgx.Conn)(nil)
)

// Begin is implemented by pool-like StagingQueriers that can open a
// transaction. pgx.Tx also implements it; on a pgx.Tx, Begin opens a
// savepoint rather than a new transaction.
type Begin interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// IDKind enumerates the supported scalar types for a source table's id
// column, per spec.md §3 "Source row (external)".
type IDKind int

const (
	// IDKindUnknown is the zero value and is never a valid configuration.
	IDKindUnknown IDKind = iota
	IDKindInteger
	IDKindBigInteger
	IDKindUUID
	IDKindText
)

// String renders the SQL column type used for doc_id / id columns of this
// kind.
func (k IDKind) String() string {
	switch k {
	case IDKindInteger:
		return "INTEGER"
	case IDKindBigInteger:
		return "NUMERIC"
	case IDKindUUID:
		return "UUID"
	case IDKindText:
		return "TEXT"
	default:
		return "UNKNOWN"
	}
}

// Row is a single source-table row, keyed by its id column, as handed to a
// Chunker.
type Row struct {
	DocID   any
	Columns map[string]any
}

// PayloadKind tags which of the mutually-exclusive payload fields of a
// Chunk is populated, implementing the tagged-variant design note of
// spec.md §9.
type PayloadKind int

const (
	PayloadText PayloadKind = iota
	PayloadBlob
	PayloadJSON
)

// Chunk is one element of a row's decomposition, as produced by a Chunker
// and, once embedded, as stored in the chunks table.
type Chunk struct {
	Index    int
	Kind     PayloadKind
	Text     string
	Blob     []byte
	JSON     []byte // raw JSON document
	Metadata map[string]any

	// Embedding is populated by an Embedder; nil until then.
	Embedding []float32
}

// TextChunk builds a PayloadText Chunk at index, the common case of a
// Chunker that splits a row into plain-text spans.
func TextChunk(index int, text string, metadata map[string]any) Chunk {
	return Chunk{Index: index, Kind: PayloadText, Text: text, Metadata: metadata}
}

// BlobChunk builds a PayloadBlob Chunk at index, for a Chunker that
// decomposes a row into opaque byte spans (e.g. image regions, audio
// slices) rather than text.
func BlobChunk(index int, blob []byte, metadata map[string]any) Chunk {
	return Chunk{Index: index, Kind: PayloadBlob, Blob: blob, Metadata: metadata}
}

// JSONChunk builds a PayloadJSON Chunk at index from a raw JSON document.
func JSONChunk(index int, json []byte, metadata map[string]any) Chunk {
	return Chunk{Index: index, Kind: PayloadJSON, JSON: json, Metadata: metadata}
}

// Chunker decomposes a source Row into an ordered sequence of Chunks. It
// must be pure and deterministic in ordering for the same Row, per
// spec.md §4.5 step 3.
type Chunker interface {
	Chunk(ctx context.Context, row Row) ([]Chunk, error)
}

// ChunkerFunc adapts a plain function to a Chunker.
type ChunkerFunc func(ctx context.Context, row Row) ([]Chunk, error)

// Chunk implements Chunker.
func (f ChunkerFunc) Chunk(ctx context.Context, row Row) ([]Chunk, error) { return f(ctx, row) }

// EmbedResult is what an Embedder returns for one Chunk: the embedding
// vector plus optional passthrough payload to store alongside it.
type EmbedResult struct {
	Embedding []float32
	Text      *string
	Blob      []byte
	JSON      []byte
}

// Embedder computes the embedding vector for a single chunk. Implementations
// may return a PermanentError (see internal/ragerr) to signal that the
// failure should not be retried.
type Embedder interface {
	Embed(ctx context.Context, chunk Chunk, index int) (EmbedResult, error)
}

// EmbedderFunc adapts a plain function to an Embedder.
type EmbedderFunc func(ctx context.Context, chunk Chunk, index int) (EmbedResult, error)

// Embed implements Embedder.
func (f EmbedderFunc) Embed(ctx context.Context, chunk Chunk, index int) (EmbedResult, error) {
	return f(ctx, chunk, index)
}

// Hasher computes the content hash used to deduplicate chunks across
// embedding passes (spec.md §4.5 step 4). It must be stable across process
// restarts.
type Hasher interface {
	Hash(chunk Chunk) string
}

// HasherFunc adapts a plain function to a Hasher.
type HasherFunc func(chunk Chunk) string

// Hash implements Hasher.
func (f HasherFunc) Hash(chunk Chunk) string { return f(chunk) }

// ClockOf is satisfied by anything that carries a single clock.Value,
// such as the work-queue row projection queue.Job.
type ClockOf interface {
	ClockValue() clock.Value
}
