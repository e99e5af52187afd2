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

package wiring

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BarnacleLabs/RAGmatic/internal/admin"
	"github.com/BarnacleLabs/RAGmatic/internal/diag"
	"github.com/BarnacleLabs/RAGmatic/internal/ident"
	"github.com/BarnacleLabs/RAGmatic/internal/schema"
	"github.com/BarnacleLabs/RAGmatic/internal/types"
	"github.com/BarnacleLabs/RAGmatic/internal/worker"
)

// PipelineConfig is the complete input needed to assemble one pipeline's
// Components: connection info, installer configuration, and the three
// user callbacks of spec.md §6.
type PipelineConfig struct {
	ConnectString  string
	MaxConns       int32
	WaitForStartup bool

	Schema schema.Config

	Chunker  types.Chunker
	Embedder types.Embedder
	Hasher   types.Hasher

	Worker worker.Config
}

// Components is everything a running pipeline handle needs: the pool
// that owns it, the namespace it lives in, and the installer/admin/worker
// trio that act on it.
type Components struct {
	NS          ident.Namespace
	Pool        *pgxpool.Pool
	Installer   *schema.Installer
	Admin       *admin.Admin
	Worker      *worker.Worker
	Diagnostics *diag.Diagnostics
}
