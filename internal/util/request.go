package util

import (
	"net"

	"github.com/google/uuid"
)

// GenerateConnectionID returns a short id for tagging a connection's log lines
func GenerateConnectionID() string {
	id := uuid.New().String()
	return id[:8]
}

// RemoteIP strips the port from a connection's remote address
func RemoteIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
