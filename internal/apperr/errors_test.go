package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := New(KindConversion, "Audio conversion failed")
	wrapped := fmt.Errorf("stage: %w", base)

	assert.Equal(t, KindConversion, KindOf(base))
	assert.Equal(t, KindConversion, KindOf(wrapped))
	assert.Equal(t, KindUnhandled, KindOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindClientInput))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindConversion))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindToolNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindGeneration))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindUnhandled))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap(KindConversion, cause, "Audio conversion failed").WithDetails("Invalid data found")

	assert.Equal(t, "Audio conversion failed: exit status 1", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "Invalid data found", err.Details)

	verbose := fmt.Sprintf("%+v", err)
	assert.Contains(t, verbose, "[conversion] Audio conversion failed")
	assert.Contains(t, verbose, "details: Invalid data found")
	assert.Contains(t, verbose, "TestWrapKeepsCause")
}

func TestUnhandled(t *testing.T) {
	known := New(KindGeneration, "LLM failed")
	assert.Same(t, known, Unhandled(known))

	err := Unhandled(errors.New("boom"))
	assert.Equal(t, KindUnhandled, err.Kind)
	assert.Equal(t, "boom", err.Message)
	assert.Equal(t, "boom", err.Error())
}
