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

//go:build wireinject
// +build wireinject

// Package wiring assembles one pipeline's components -- connection pool,
// installer, admin surface, and worker -- from a PipelineConfig. The
// provider-set shape is grounded on the teacher's
// internal/source/logical/provider.go (wire.NewSet of ProvideXxx
// functions). This file is the wire-injector input; wire_gen.go is its
// hand-expanded equivalent, since no `go generate` step runs in this
// environment.
package wiring

import (
	"github.com/google/wire"

	"github.com/BarnacleLabs/RAGmatic/internal/stopper"
)

// Set enumerates the providers that make up a Components value.
var Set = wire.NewSet(
	ProvideNamespace,
	ProvidePool,
	ProvideInstaller,
	ProvideSchemaConfig,
	ProvideInstalledConfig,
	ProvideAdmin,
	ProvideWorker,
	ProvideDiagnostics,
	wire.Struct(new(Components), "*"),
)

// BuildComponents is the wire injector for Components. It is never
// compiled in normal builds (see the wireinject build tag above); its
// hand-expanded form lives in wire_gen.go.
func BuildComponents(ctx *stopper.Context, cfg PipelineConfig) (*Components, error) {
	panic(wire.Build(Set))
}
