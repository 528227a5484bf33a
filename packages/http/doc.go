// Package http provides the HTTP transport behind hitshell's request engine.
//
// It wraps the standard library's http package with additional features:
//   - A shared, mutable configuration (base address, authenticator, cookie jar)
//   - Request building from command parameters (query, form, raw body, multipart)
//   - Asynchronous execution with abortable handles
//   - Request signing, basic, bearer, AWS SigV4 and digest authentication
//   - Redirect, proxy and TLS verification settings
package http
