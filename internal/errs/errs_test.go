package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(CodeAlreadyDecided, "decide order abc", errors.New("status confirmed"))

	assert.ErrorIs(t, err, ErrAlreadyDecided)
	assert.NotErrorIs(t, err, ErrOrderNotFound)
	assert.ErrorIs(t, fmt.Errorf("outer: %w", err), ErrAlreadyDecided)
}

func TestRetryableOnlyForStoreUnavailable(t *testing.T) {
	assert.True(t, Retryable(Unavailable("commit", errors.New("conn reset"))))
	assert.False(t, Retryable(ErrAlreadyDecided))
	assert.False(t, Retryable(ErrUnauthorized))
	assert.False(t, Retryable(errors.New("plain")))
}

func TestUnavailableKeepsDomainErrors(t *testing.T) {
	assert.Nil(t, Unavailable("noop", nil))

	wrapped := Unavailable("read order", fmt.Errorf("tx: %w", ErrOrderNotFound))
	assert.Equal(t, CodeOrderNotFound, CodeOf(wrapped))

	raw := Unavailable("read order", errors.New("disk full"))
	assert.Equal(t, CodeStoreUnavailable, CodeOf(raw))
	assert.Contains(t, raw.Error(), "read order")
}
