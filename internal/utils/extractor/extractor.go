package extractor

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Extractor reads caller identity from request headers. The edge proxy
// validates credentials and forwards the user id; services behind it trust
// these headers plus the internal service token.
type Extractor interface {
	GetUserID(h http.Header) string
	GetRequestID(h http.Header) string
	GetXForwardedFor(h http.Header) string
	IsInternal(h http.Header) bool
}

type extractor struct {
	serviceToken string
}

func New(serviceToken string) Extractor {
	return &extractor{serviceToken: serviceToken}
}

func (t *extractor) GetUserID(h http.Header) string {
	return h.Get(XUserID)
}

func (t *extractor) GetRequestID(h http.Header) string {
	return h.Get(XRequestID)
}

func (t *extractor) GetXForwardedFor(h http.Header) string {
	values := h.Values(XForwardedFor)
	if len(values) == 0 {
		return ""
	}
	return strings.Join(values, ",")
}

// IsInternal reports whether the request carries the shared service token.
// Privileged operations (no-owner reads, report completion) require it.
func (t *extractor) IsInternal(h http.Header) bool {
	if t.serviceToken == "" {
		return false
	}
	supplied := h.Get(XServiceToken)
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(t.serviceToken)) == 1
}
