package instance

import (
	"os"
	"strings"
)

// GetID identifies this process in worker locks and logs. WNW_INSTANCE_ID
// wins, then the hostname.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("WNW_INSTANCE_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "instance-0"
}
