package sdk

import "os"

// DefaultAddr is used when CELERIX_RECORDS_ADDR is not set.
const DefaultAddr = "localhost:8000"

// New returns a client for the daemon named by CELERIX_RECORDS_ADDR, or
// DefaultAddr when the variable is empty.
func New(opts ...Option) *Client {
	addr := os.Getenv("CELERIX_RECORDS_ADDR")
	if addr == "" {
		addr = DefaultAddr
	}
	return Connect(addr, opts...)
}
