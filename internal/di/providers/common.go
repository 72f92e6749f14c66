package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second
)

// Version is the build version stamped into the binary. It flows to the
// instance record, the OpenAPI document, and the mDNS TXT records.
type Version string
