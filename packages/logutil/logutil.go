// Package logutil provides prefixed debug loggers whose output can be
// redirected for the whole process at once.
package logutil

import (
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	out     io.Writer = io.Discard
	loggers []*log.Logger
	file    *os.File
)

// Discard is a Logger that ignores all loggings.
var Discard = log.New(io.Discard, "", 0)

// GetLogger returns a logger with the given prefix. Its output follows
// later calls to SetOutput and SetOutputFile.
func GetLogger(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	logger := log.New(out, prefix, log.LstdFlags)
	loggers = append(loggers, logger)
	return logger
}

// SetOutput redirects all loggers to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	setOutput(w)
}

func setOutput(w io.Writer) {
	out = w
	for _, logger := range loggers {
		logger.SetOutput(w)
	}
	if file != nil && file != w {
		file.Close()
		file = nil
	}
}

// SetOutputFile redirects all loggers to the named file, opened for
// appending. An empty name discards output again.
func SetOutputFile(name string) error {
	mu.Lock()
	defer mu.Unlock()
	if name == "" {
		setOutput(io.Discard)
		return nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	setOutput(f)
	file = f
	return nil
}
