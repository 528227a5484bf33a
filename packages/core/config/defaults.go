package config

import (
	"os"
	"path/filepath"
)

// DefaultMaxRedirects mirrors the transport's redirect limit.
const DefaultMaxRedirects = 10

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:         0,
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    DefaultMaxRedirects,
		ValidateSSL:     BoolPtr(true),
		HistoryFile:     defaultHistoryFile(),
		NoColor:         BoolPtr(false),
	}
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".hitshell_history.db")
}

// Starter is the file written by hitshell init.
const Starter = `# hitshell configuration
servers:
  - name: local
    address: http://localhost:8080
defaultServer: local

headers:
  Accept: application/json

# auth:
#   publicKey: ${HITSHELL_PUBLIC_KEY}
#   privateKey: ${HITSHELL_PRIVATE_KEY}

# 0 waits until the request completes or is cancelled
timeout: 0
followRedirects: true
validateSSL: true
# rateLimit: 5
# serversDB: servers.db
`
