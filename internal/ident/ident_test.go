package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"my-pipeline":   "my_pipeline",
		"my.pipeline.1": "my_pipeline_1",
		"plain":         "plain",
		"a--b":          "a_b",
	}
	for in, want := range cases {
		assert.Equal(t, want, Sanitize(in), "input %q", in)
	}
}

func TestNamespaceFor(t *testing.T) {
	ns, err := NamespaceFor("my-pipeline")
	require.NoError(t, err)
	assert.Equal(t, Namespace("ragmatic_my_pipeline"), ns)

	_, err = NamespaceFor("   ")
	require.Error(t, err)
}

func TestQuoteDoublesEmbeddedQuotes(t *testing.T) {
	assert.Equal(t, `"foo"`, Quote("foo"))
	assert.Equal(t, `"fo""o"`, Quote(`fo"o`))
}

func TestQualified(t *testing.T) {
	ns, err := NamespaceFor("demo")
	require.NoError(t, err)
	assert.Equal(t, `"ragmatic_demo"."chunks"`, ns.Qualified("chunks"))
}
