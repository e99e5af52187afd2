package ragerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermanentClassification(t *testing.T) {
	err := Permanent(errors.New("bad dimension"))
	assert.True(t, IsPermanent(err))
	assert.False(t, IsRetryable(err))
}

func TestRetryableClassification(t *testing.T) {
	err := Retryable(errors.New("connection reset"))
	assert.True(t, IsRetryable(err))
	assert.False(t, IsPermanent(err))
}

func TestUnannouncedErrorDefaultsRetryable(t *testing.T) {
	err := errors.New("some flaky embedder error")
	assert.True(t, IsRetryable(err))
	assert.False(t, IsPermanent(err))
}

func TestSupersededIsNotClassifiedAsRetryOrPermanent(t *testing.T) {
	assert.False(t, IsPermanent(ErrSuperseded))
	assert.False(t, IsRetryable(ErrSuperseded))
}

func TestNilErrorIsNeitherPermanentNorRetryable(t *testing.T) {
	assert.False(t, IsPermanent(nil))
	assert.False(t, IsRetryable(nil))
}
