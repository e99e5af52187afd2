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

// Package ident provides the naming rules that turn a user-supplied
// pipeline name into a SQL namespace and the handful of identifiers
// derived from it.
package ident

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Sanitize replaces every run of non-alphanumeric characters in name with a
// single underscore. It never returns an empty string for a non-empty input.
func Sanitize(name string) string {
	return nonAlnum.ReplaceAllString(name, "_")
}

// Namespace is the schema/database that exclusively owns a pipeline's
// tables, in the form ragmatic_<sanitized pipeline name>.
type Namespace string

// NamespaceFor derives the Namespace for a pipeline name.
func NamespaceFor(pipeline string) (Namespace, error) {
	if strings.TrimSpace(pipeline) == "" {
		return "", errors.New("pipeline name must not be empty")
	}
	return Namespace(fmt.Sprintf("ragmatic_%s", Sanitize(pipeline))), nil
}

// Quote renders ident as a double-quoted SQL identifier, doubling any
// embedded quote characters. Callers should never interpolate raw,
// unquoted identifiers into SQL text.
func Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Qualified renders a namespace-qualified, quoted table reference.
func (n Namespace) Qualified(table string) string {
	return Quote(string(n)) + "." + Quote(table)
}

// Raw returns the unquoted namespace name.
func (n Namespace) Raw() string {
	return string(n)
}

// Table names, fixed per namespace and never user-configurable beyond the
// optional overrides accepted by the installer.
const (
	DefaultConfigTable    = "config"
	DefaultShadowTable    = "shadow"
	DefaultChunksTable    = "chunks"
	DefaultWorkQueueTable = "work_queue"
)
