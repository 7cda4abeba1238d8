// Package integrations provides the shared HTTP plumbing for third-party APIs.
//
// # Overview
//
// folio talks to one external API, GitHub, which lives in the [github]
// subpackage. This package holds what such clients have in common: a JSON
// [Client] with default headers, status-code classification, and retries
// through [httputil.Retry].
//
// # Errors
//
// Responses are mapped onto sentinel errors so callers can branch without
// inspecting status codes:
//   - [ErrNotFound]: 404
//   - [ErrUnauthorized]: 401 and 403, e.g. a revoked token
//   - [ErrNetwork]: transport failures, 429 and 5xx (retried)
package integrations
