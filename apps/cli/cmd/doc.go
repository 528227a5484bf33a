// Package cmd implements the hitshell CLI commands using Cobra.
//
// Running hitshell without a subcommand starts the interactive shell.
//
// Available commands:
//   - run: Execute script files of shell commands, optionally on change
//   - validate: Check scripts for errors without running them
//   - functions: List the built-ins and provider functions
//   - import: Convert curl, Insomnia, OpenAPI and Postman requests to scripts
//   - init: Create a starter hitshell.yaml
//   - version: Show hitshell version information
//   - completion: Generate shell completion scripts
//
// Every command that starts a shell shares the configuration flags:
// config file, .env file, proxy, TLS verification, rate limit and the
// server bookmark and history stores.
package cmd
