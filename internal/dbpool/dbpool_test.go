package dbpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BarnacleLabs/RAGmatic/internal/stopper"
)

func TestOpenRejectsMalformedConnectString(t *testing.T) {
	ctx := stopper.WithContext(context.Background())
	defer ctx.Stop(0)

	_, err := Open(ctx, "://not-a-url", Options{})
	assert.Error(t, err)
}
