package diag

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRunAllReportsEachRegisteredCheck(t *testing.T) {
	d := New()
	d.Register("ok", func(ctx context.Context) error { return nil })
	d.Register("bad", func(ctx context.Context) error { return errors.New("boom") })

	results := d.RunAll(context.Background())
	assert.NoError(t, results["ok"])
	assert.EqualError(t, results["bad"], "boom")
}

func TestRegisterReplacesExistingCheck(t *testing.T) {
	d := New()
	d.Register("x", func(ctx context.Context) error { return errors.New("first") })
	d.Register("x", func(ctx context.Context) error { return nil })

	results := d.RunAll(context.Background())
	assert.Len(t, results, 1)
	assert.NoError(t, results["x"])
}
