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

import "github.com/BarnacleLabs/RAGmatic/internal/types"

// Row, Chunk, and the three callback interfaces of spec.md §6 are aliased
// from internal/types so a caller in another module can name them without
// importing an internal package.
type (
	Row         = types.Row
	Chunk       = types.Chunk
	PayloadKind = types.PayloadKind
	EmbedResult = types.EmbedResult

	Chunker      = types.Chunker
	ChunkerFunc  = types.ChunkerFunc
	Embedder     = types.Embedder
	EmbedderFunc = types.EmbedderFunc
	Hasher       = types.Hasher
	HasherFunc   = types.HasherFunc
	IDKind       = types.IDKind
)

const (
	PayloadText = types.PayloadText
	PayloadBlob = types.PayloadBlob
	PayloadJSON = types.PayloadJSON

	IDKindInteger    = types.IDKindInteger
	IDKindBigInteger = types.IDKindBigInteger
	IDKindUUID       = types.IDKindUUID
	IDKindText       = types.IDKindText
)

// TextChunk builds a PayloadText Chunk at index, for a Chunker that
// splits a row into plain-text spans.
func TextChunk(index int, text string, metadata map[string]any) Chunk {
	return types.TextChunk(index, text, metadata)
}

// BlobChunk builds a PayloadBlob Chunk at index, for a Chunker that
// decomposes a row into opaque byte spans (e.g. image regions, audio
// slices) rather than text.
func BlobChunk(index int, blob []byte, metadata map[string]any) Chunk {
	return types.BlobChunk(index, blob, metadata)
}

// JSONChunk builds a PayloadJSON Chunk at index from a raw JSON document.
func JSONChunk(index int, json []byte, metadata map[string]any) Chunk {
	return types.JSONChunk(index, json, metadata)
}
