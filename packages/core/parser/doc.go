// Package parser provides parsing functionality for hitshell command input.
//
// A program is a newline-separated sequence of statements. Each statement is
// a function call followed by whitespace-separated parameters:
//
//	echo "hello"
//	servers.add local http://localhost:8080
//	http.get /users page=2 sort='name desc'
//
// The parser handles:
//   - Built-in calls, resolved against the built-in names passed to the parser
//   - provider.function calls
//   - Quoted strings (single or double, escapes, doubled quotes, line breaks)
//   - Numbers, always widened to float64
//   - key=value pairs
//   - Bare tokens such as paths and URLs, which need no quoting
//   - Comment lines starting with #
//
// Input that ends before a statement is complete produces partial
// diagnostics, which callers use to keep buffering lines.
package parser
