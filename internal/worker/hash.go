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
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/BarnacleLabs/RAGmatic/internal/types"
)

// DefaultHash implements the default userHash of spec.md §4.5 step 4:
// hex-md5 over the stringified non-blob fields, concatenated with
// hex-md5 over the blob's bytes when present.
func DefaultHash(c types.Chunk) string {
	var sb strings.Builder
	switch c.Kind {
	case types.PayloadText:
		sb.WriteString(c.Text)
	case types.PayloadJSON:
		sb.Write(c.JSON)
	}
	if len(c.Metadata) > 0 {
		keys := make([]string, 0, len(c.Metadata))
		for k := range c.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "%s=%v;", k, c.Metadata[k])
		}
	}
	fieldSum := md5.Sum([]byte(sb.String()))
	digest := hex.EncodeToString(fieldSum[:])

	if c.Kind == types.PayloadBlob || len(c.Blob) > 0 {
		blobSum := md5.Sum(c.Blob)
		digest += hex.EncodeToString(blobSum[:])
	}
	return digest
}

// hashKey forms the composite dedup key kᵢ = hᵢ || "-" || i of spec.md §4.5 step 4.
func hashKey(hash string, index int) string {
	return fmt.Sprintf("%s-%d", hash, index)
}

// diffChunks compares the stored chunk keys against the freshly computed
// ones, per spec.md §4.5 step 5b/5c: newIndices are the positions in keys
// that commitJob must embed (not already present in existing), and
// toDelete are the stored hashes no longer wanted. Pure map arithmetic,
// no I/O, so the embed/commit transaction only ever touches rows it has
// already decided to touch.
func diffChunks(existing map[string]bool, keys []string) (newIndices []int, toDelete []string) {
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}
	for i, k := range keys {
		if !existing[k] {
			newIndices = append(newIndices, i)
		}
	}
	for h := range existing {
		if !wanted[h] {
			toDelete = append(toDelete, h)
		}
	}
	sort.Strings(toDelete)
	return newIndices, toDelete
}
