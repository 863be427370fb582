package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestHasCodeWalksChain(t *testing.T) {
	base := errors.New("dial tcp: refused")
	inner := Wrap(base, CodeUnavailable, "upstream down")
	outer := Wrap(fmt.Errorf("fetch: %w", inner), CodeInternal, "ballot fetch failed")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeUnavailable))
	assert.False(t, HasCode(outer, CodeValidation))
	assert.True(t, Is(outer, CodeUnavailable))
	assert.ErrorIs(t, outer, base)
}

func TestErrorIsMatchesCodeAndMessage(t *testing.T) {
	err := Wrap(errors.New("x"), CodeValidation, "digital key required")

	require.ErrorIs(t, err, New(CodeValidation, "digital key required"))
	require.ErrorIs(t, err, &Error{Code: CodeValidation})
	require.NotErrorIs(t, err, New(CodeValidation, "other"))
	require.NotErrorIs(t, err, New(CodeForbidden, "digital key required"))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(New(CodeNotFound, "ballot not found")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
