package extractor

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInternal(t *testing.T) {
	ex := New("secret-token")

	h := http.Header{}
	assert.False(t, ex.IsInternal(h))

	h.Set(XServiceToken, "wrong")
	assert.False(t, ex.IsInternal(h))

	h.Set(XServiceToken, "secret-token")
	assert.True(t, ex.IsInternal(h))
}

func TestIsInternal_EmptyConfiguredTokenRejectsAll(t *testing.T) {
	ex := New("")

	h := http.Header{}
	assert.False(t, ex.IsInternal(h))

	// An empty supplied token must not match an empty configured one.
	h.Set(XServiceToken, "")
	assert.False(t, ex.IsInternal(h))
}

func TestHeaderAccessors(t *testing.T) {
	ex := New("secret")

	h := http.Header{}
	h.Set(XUserID, "user-1")
	h.Set(XRequestID, "req-1")
	h.Add(XForwardedFor, "10.0.0.1")
	h.Add(XForwardedFor, "10.0.0.2")

	assert.Equal(t, "user-1", ex.GetUserID(h))
	assert.Equal(t, "req-1", ex.GetRequestID(h))
	assert.Equal(t, "10.0.0.1,10.0.0.2", ex.GetXForwardedFor(h))
}
