// Package builtin provides the built-in functions of the hitshell language.
//
// Built-ins are called without a provider prefix:
//
//	echo "hi"
//	uuid
//	random 1 6
//	base64 "user:pass"
//	alias get http.get
//	help servers
//
// Pure helpers (uuid, timestamp, hashing, encoding, random values) live in
// functions.go; built-ins that touch the session (quit, help, alias,
// history, stats) are bound to a Session in session.go.
package builtin
