package extractor

const (
	XUserID       = "X-User-Id"
	XRequestID    = "X-Request-Id"
	XServiceToken = "X-Service-Token"
	XForwardedFor = "X-Forwarded-For"
)
