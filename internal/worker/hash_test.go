package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BarnacleLabs/RAGmatic/internal/types"
)

func TestDefaultHashStableForIdenticalChunks(t *testing.T) {
	a := types.Chunk{Kind: types.PayloadText, Text: "a b"}
	b := types.Chunk{Kind: types.PayloadText, Text: "a b"}
	assert.Equal(t, DefaultHash(a), DefaultHash(b))
}

func TestDefaultHashDiffersForDifferentText(t *testing.T) {
	a := types.Chunk{Kind: types.PayloadText, Text: "a b"}
	b := types.Chunk{Kind: types.PayloadText, Text: "a b c"}
	assert.NotEqual(t, DefaultHash(a), DefaultHash(b))
}

func TestDefaultHashIncludesBlobBytes(t *testing.T) {
	a := types.Chunk{Kind: types.PayloadBlob, Blob: []byte{1, 2, 3}}
	b := types.Chunk{Kind: types.PayloadBlob, Blob: []byte{4, 5, 6}}
	assert.NotEqual(t, DefaultHash(a), DefaultHash(b))
}

func TestHashKeyCombinesHashAndIndex(t *testing.T) {
	assert.Equal(t, "abc-0", hashKey("abc", 0))
	assert.Equal(t, "abc-1", hashKey("abc", 1))
}

func TestIsNonFinite(t *testing.T) {
	assert.False(t, isNonFinite(0.5))
	var nan float32
	nan = nan / nan
	assert.True(t, isNonFinite(nan))
}

func TestDiffChunksEmbedsOnlyUnseenKeys(t *testing.T) {
	existing := map[string]bool{"a-0": true, "b-1": true}
	keys := []string{"a-0", "c-2"}
	newIndices, toDelete := diffChunks(existing, keys)
	assert.Equal(t, []int{1}, newIndices)
	assert.Equal(t, []string{"b-1"}, toDelete)
}

func TestDiffChunksNoChangeIsDry(t *testing.T) {
	existing := map[string]bool{"a-0": true, "b-1": true}
	keys := []string{"a-0", "b-1"}
	newIndices, toDelete := diffChunks(existing, keys)
	assert.Nil(t, newIndices)
	assert.Nil(t, toDelete)
}

func TestDiffChunksAllNewWhenNothingStored(t *testing.T) {
	keys := []string{"a-0", "b-1"}
	newIndices, toDelete := diffChunks(map[string]bool{}, keys)
	assert.Equal(t, []int{0, 1}, newIndices)
	assert.Nil(t, toDelete)
}

func TestDiffChunksDeletesEverythingWhenDocEmptied(t *testing.T) {
	existing := map[string]bool{"a-0": true, "b-1": true}
	newIndices, toDelete := diffChunks(existing, nil)
	assert.Nil(t, newIndices)
	assert.Equal(t, []string{"a-0", "b-1"}, toDelete)
}
