package global

import (
	"os"
	"strings"
)

// Resolves and sanitizes the local hostname for use in keys and headers
func LoadHostname() (name string) {
	name, err := os.Hostname()
	if err != nil || name == "" {
		name = "unknown"
	}
	name = SanitizeHostname(name)
	Hostname = name
	PID = os.Getpid()
	return
}

// Lowercases and strips path/separator characters
func SanitizeHostname(raw string) (clean string) {
	clean = strings.ToLower(strings.TrimSpace(raw))
	clean = strings.NewReplacer(" ", "-", "/", "-", ":", "-").Replace(clean)
	if clean == "" {
		clean = "unknown"
	}
	return
}
