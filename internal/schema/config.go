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

package schema

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/BarnacleLabs/RAGmatic/internal/ident"
	"github.com/BarnacleLabs/RAGmatic/internal/types"
)

// SchemaVersion is stamped into the config table so a future installer
// revision can detect and migrate an older namespace layout.
const SchemaVersion = "1"

// Config is the installer's input, per spec.md §4.1. Table-name overrides
// default to the ident package's DefaultXxxTable constants.
type Config struct {
	PipelineName string

	SourceSchema string
	SourceTable  string
	IDKind       types.IDKind

	EmbeddingDimension int

	ShadowTable    string
	ChunksTable    string
	WorkQueueTable string

	SkipEmbeddingIndexSetup bool
}

// normalized returns a copy of c with table-name defaults filled in.
func (c Config) normalized() Config {
	if c.ShadowTable == "" {
		c.ShadowTable = ident.DefaultShadowTable
	}
	if c.ChunksTable == "" {
		c.ChunksTable = ident.DefaultChunksTable
	}
	if c.WorkQueueTable == "" {
		c.WorkQueueTable = ident.DefaultWorkQueueTable
	}
	return c
}

// Validate rejects configurations that the installer cannot act on.
func (c Config) Validate() error {
	if c.PipelineName == "" {
		return errors.New("pipeline name must not be empty")
	}
	if c.SourceTable == "" {
		return errors.New("source table must not be empty")
	}
	if c.IDKind == types.IDKindUnknown {
		return errors.New("id kind must be specified")
	}
	if c.EmbeddingDimension <= 0 {
		return errors.New("embedding dimension must be positive")
	}
	return nil
}

// sourceFullName returns the source table, schema-qualified if a schema
// was given, mirroring the teacher's resolvedFullTableName helper.
func (c Config) sourceFullName() string {
	if c.SourceSchema == "" {
		return ident.Quote(c.SourceTable)
	}
	return fmt.Sprintf("%s.%s", ident.Quote(c.SourceSchema), ident.Quote(c.SourceTable))
}

// SourceFullName exposes sourceFullName to other packages wiring a
// Components graph off an installed Config.
func (c Config) SourceFullName() string {
	return c.sourceFullName()
}

// asMap is the config record persisted at install, per spec.md §3 "Config
// record", and returned verbatim by the get-config admin operation.
func (c Config) asMap() map[string]string {
	return map[string]string{
		"source_schema":              c.SourceSchema,
		"source_table":               c.SourceTable,
		"id_kind":                    c.IDKind.String(),
		"embedding_dimension":        fmt.Sprintf("%d", c.EmbeddingDimension),
		"shadow_table":               c.ShadowTable,
		"chunks_table":               c.ChunksTable,
		"work_queue_table":           c.WorkQueueTable,
		"schema_version":             SchemaVersion,
		"skip_embedding_index_setup": fmt.Sprintf("%t", c.SkipEmbeddingIndexSetup),
	}
}
