package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := New(CodeInputValidation, "No data to download.")
	assert.True(t, errors.Is(err, ErrInputValidation))
	assert.False(t, errors.Is(err, ErrAPICallFailed))

	wrapped := fmt.Errorf("export: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInputValidation))
	assert.True(t, HasCode(wrapped, CodeInputValidation))
}

func TestWrapKeepsExistingCode(t *testing.T) {
	inner := New(CodeAuthenticationRequired, "Please log in first.")
	err := Wrap(inner, CodeInternal, "fetch contacts")
	assert.True(t, HasCode(err, CodeAuthenticationRequired))
	assert.Equal(t, "fetch contacts", err.Error())

	plain := Wrap(errors.New("boom"), CodeInternal, "")
	assert.True(t, HasCode(plain, CodeInternal))
	assert.Equal(t, "boom", plain.Error())
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Please log in first.", UserMessage(fmt.Errorf("call: %w", New(CodeAuthenticationRequired, "Please log in first."))))
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
}
