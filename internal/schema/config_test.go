package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarnacleLabs/RAGmatic/internal/ident"
	"github.com/BarnacleLabs/RAGmatic/internal/types"
)

func TestNormalizedFillsTableDefaults(t *testing.T) {
	cfg := Config{
		PipelineName:       "docs",
		SourceTable:        "articles",
		IDKind:             types.IDKindBigInteger,
		EmbeddingDimension: 1536,
	}.normalized()

	assert.Equal(t, ident.DefaultShadowTable, cfg.ShadowTable)
	assert.Equal(t, ident.DefaultChunksTable, cfg.ChunksTable)
	assert.Equal(t, ident.DefaultWorkQueueTable, cfg.WorkQueueTable)
}

func TestValidateRejectsMissingFields(t *testing.T) {
	cases := []Config{
		{},
		{PipelineName: "p"},
		{PipelineName: "p", SourceTable: "t"},
		{PipelineName: "p", SourceTable: "t", IDKind: types.IDKindUUID},
	}
	for _, c := range cases {
		assert.Error(t, c.Validate())
	}

	valid := Config{
		PipelineName:       "p",
		SourceTable:        "t",
		IDKind:             types.IDKindUUID,
		EmbeddingDimension: 8,
	}
	assert.NoError(t, valid.Validate())
}

func TestSourceFullNameQualifiesWhenSchemaGiven(t *testing.T) {
	c := Config{SourceTable: "articles"}
	assert.Equal(t, `"articles"`, c.sourceFullName())

	c.SourceSchema = "public"
	assert.Equal(t, `"public"."articles"`, c.sourceFullName())
}

func TestAsMapRoundTripsConfig(t *testing.T) {
	cfg := Config{
		PipelineName:       "docs",
		SourceSchema:       "public",
		SourceTable:        "articles",
		IDKind:             types.IDKindInteger,
		EmbeddingDimension: 4,
	}.normalized()

	m := cfg.asMap()
	require.Equal(t, "articles", m["source_table"])
	require.Equal(t, "INTEGER", m["id_kind"])
	require.Equal(t, "4", m["embedding_dimension"])
	require.Equal(t, SchemaVersion, m["schema_version"])
	require.Equal(t, "false", m["skip_embedding_index_setup"])
}
