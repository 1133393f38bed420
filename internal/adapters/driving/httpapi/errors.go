// Package httpapi serves the act registry and the pipeline controls over
// HTTP. Errors are RFC 7807 problem documents; mutating routes need a
// bearer token issued by POST /auth/login.
package httpapi

import "errors"

// Errors returned by New when a required port is missing.
var (
	ErrMissingActService = errors.New("httpapi: act service is required")
	ErrMissingIngestor   = errors.New("httpapi: ingestor is required")
	ErrMissingAuditor    = errors.New("httpapi: run auditor is required")
	ErrMissingTokens     = errors.New("httpapi: token issuer is required")
)
