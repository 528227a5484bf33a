// Package capture extracts values from HTTP responses.
//
// It supports reading values from:
//   - Response body (gjson paths, with [N] index notation)
//   - Response headers
//   - Response status code and duration
//
// The response.query function and the assertion evaluator both resolve
// their subjects through an Extractor.
package capture
