// Package env handles .env files and ${VAR} expansion for hitshell.
//
// It provides functionality for:
//   - Loading environment files (.env, .env.local, etc.)
//   - Expanding ${VAR} and ${VAR:-default} references in configuration values
//   - Looking up variables for the env built-in
package env
