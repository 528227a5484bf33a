// Package assertions checks the last response from the shell.
//
// Supported checks:
//   - Status code (response.expect status == 200)
//   - Headers (response.expect "header Content-Type" contains json)
//   - Body paths (response.expect user.id exists)
//   - Length and type checks (response.expect items length 3)
//   - JSON Schema validation from a file or inline document (response.validate)
package assertions
