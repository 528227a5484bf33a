// Package output renders what the shell prints.
//
// Console serializes writes from the REPL and from requests completing in
// the background, so a response never lands in the middle of the prompt.
// Format turns function results into display text, pretty-printing JSON
// bodies. JSONFormatter collects script outcomes for the machine-readable
// report written by the run command.
package output
