package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Retry configuration struct
// --------------------------------------------------------------------------

// RetryOptions holds all retry and streaming flow-control parameters. The
// values are resolved once at client construction and are immutable for
// the life of a client instance.
type RetryOptions struct {
	// Enabled toggles retries globally. When false, failed calls surface
	// their first error and range reads are not resumed.
	Enabled bool

	// MaxRetries caps the number of retry attempts after the first try.
	MaxRetries int
	// InitialBackoffMillis is the first retry delay. Subsequent delays
	// double, with jitter, up to MaxBackoffMillis.
	InitialBackoffMillis int
	// MaxBackoffMillis caps a single retry delay.
	MaxBackoffMillis int
	// MaxElapsedBackoffMillis caps the total time spent on one logical
	// call including all retries. Zero disables the elapsed budget.
	MaxElapsedBackoffMillis int
	// AttemptTimeoutMillis bounds a single unary attempt. Zero disables
	// the per-attempt timeout. Streaming attempts are bounded by
	// ReadPartialRowTimeoutMillis instead.
	AttemptTimeoutMillis int

	// StreamingBatchSize is the number of response chunks the server may
	// send before the client must grant more credit (range scans).
	StreamingBatchSize int
	// StreamingBufferSize is the capacity of the client-side chunk buffer
	// (range scans). Must be at least StreamingBatchSize.
	StreamingBufferSize int
	// ReadPartialRowTimeoutMillis bounds the wait for the next chunk of a
	// streaming read before the read fails with DeadlineExceeded.
	ReadPartialRowTimeoutMillis int
	// MaxScanTimeoutRetries is the number of consecutive per-chunk
	// timeouts a resumable scan absorbs before giving up.
	MaxScanTimeoutRetries int
}

// Default retry parameters. The backoff starts aggressively low because
// most transient failures clear within milliseconds; the elapsed budget is
// what actually bounds a call.
const (
	DefaultMaxRetries                  = 10
	DefaultInitialBackoffMillis        = 5
	DefaultMaxBackoffMillis            = 30_000
	DefaultMaxElapsedBackoffMillis     = 60_000
	DefaultAttemptTimeoutMillis        = 10_000
	DefaultStreamingBatchSize          = 30
	DefaultStreamingBufferSize         = 60
	DefaultReadPartialRowTimeoutMillis = 60_000
	DefaultMaxScanTimeoutRetries       = 3
)

// DefaultRetryOptions returns the retry configuration used when the caller
// does not override individual values.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		Enabled:                     true,
		MaxRetries:                  DefaultMaxRetries,
		InitialBackoffMillis:        DefaultInitialBackoffMillis,
		MaxBackoffMillis:            DefaultMaxBackoffMillis,
		MaxElapsedBackoffMillis:     DefaultMaxElapsedBackoffMillis,
		AttemptTimeoutMillis:        DefaultAttemptTimeoutMillis,
		StreamingBatchSize:          DefaultStreamingBatchSize,
		StreamingBufferSize:         DefaultStreamingBufferSize,
		ReadPartialRowTimeoutMillis: DefaultReadPartialRowTimeoutMillis,
		MaxScanTimeoutRetries:       DefaultMaxScanTimeoutRetries,
	}
}

// InitialBackoff returns the initial backoff as a duration.
func (r RetryOptions) InitialBackoff() time.Duration {
	return time.Duration(r.InitialBackoffMillis) * time.Millisecond
}

// MaxBackoff returns the backoff ceiling as a duration.
func (r RetryOptions) MaxBackoff() time.Duration {
	return time.Duration(r.MaxBackoffMillis) * time.Millisecond
}

// MaxElapsedBackoff returns the elapsed budget as a duration.
func (r RetryOptions) MaxElapsedBackoff() time.Duration {
	return time.Duration(r.MaxElapsedBackoffMillis) * time.Millisecond
}

// AttemptTimeout returns the per-attempt timeout as a duration.
func (r RetryOptions) AttemptTimeout() time.Duration {
	return time.Duration(r.AttemptTimeoutMillis) * time.Millisecond
}

// ReadPartialRowTimeout returns the per-chunk timeout as a duration.
func (r RetryOptions) ReadPartialRowTimeout() time.Duration {
	return time.Duration(r.ReadPartialRowTimeoutMillis) * time.Millisecond
}

// Validate checks the retry options for consistency.
func (r RetryOptions) Validate() error {
	if r.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", r.MaxRetries)
	}
	if r.InitialBackoffMillis <= 0 {
		return fmt.Errorf("initial backoff must be positive, got %d ms", r.InitialBackoffMillis)
	}
	if r.MaxBackoffMillis < r.InitialBackoffMillis {
		return fmt.Errorf("max backoff (%d ms) must not be below the initial backoff (%d ms)",
			r.MaxBackoffMillis, r.InitialBackoffMillis)
	}
	if r.StreamingBatchSize <= 0 {
		return fmt.Errorf("streaming batch size must be positive, got %d", r.StreamingBatchSize)
	}
	if r.StreamingBufferSize < r.StreamingBatchSize {
		return fmt.Errorf("streaming buffer size (%d) must be at least the batch size (%d)",
			r.StreamingBufferSize, r.StreamingBatchSize)
	}
	if r.ReadPartialRowTimeoutMillis <= 0 {
		return fmt.Errorf("partial row timeout must be positive, got %d ms", r.ReadPartialRowTimeoutMillis)
	}
	if r.MaxScanTimeoutRetries < 0 {
		return fmt.Errorf("max scan timeout retries must not be negative, got %d", r.MaxScanTimeoutRetries)
	}
	return nil
}

// --------------------------------------------------------------------------
// Transport configuration structs
// --------------------------------------------------------------------------

// SocketConf holds buffer sizes applied to stream sockets.
type SocketConf struct {
	WriteBufferSize int // In bytes, 0 leaves the OS default
	ReadBufferSize  int // In bytes, 0 leaves the OS default
}

// TCPConf holds TCP-specific socket options.
type TCPConf struct {
	TCPKeepAliveSec int  // Keep-alive interval in seconds, 0 disables
	TCPLingerSec    int  // Linger time in seconds, 0 leaves the OS default
	TCPNoDelay      bool // Disables Nagle's algorithm when true
}

// ClientTransportConfig holds the connection pool parameters.
type ClientTransportConfig struct {
	// Endpoints lists the server addresses. Calls are placed round-robin
	// over all connections of all endpoints.
	Endpoints []string
	// ConnectionsPerEndpoint is the initial pool size per endpoint. The
	// pool can grow at runtime (EnsureChannelCount) but never shrinks.
	ConnectionsPerEndpoint int
	// SocketConf applies to all stream transports.
	SocketConf SocketConf
	// TCPConf applies to the tcp transport only.
	TCPConf TCPConf
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters for the row-store client.
type ClientConfig struct {
	// Table is the name of the table all requests address.
	Table string

	// TimeoutSecond bounds single connect and frame-write operations on
	// the transport. It does not bound logical calls; see Retry for that.
	TimeoutSecond int

	// Transport holds the connection pool parameters.
	Transport ClientTransportConfig

	// Retry holds the retry and streaming flow-control parameters.
	Retry RetryOptions

	// Logging configuration
	LogLevel string
}

// Validate checks the configuration for consistency.
func (c *ClientConfig) Validate() error {
	if c.Table == "" {
		return fmt.Errorf("table name must not be empty")
	}
	if len(c.Transport.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint must be configured")
	}
	return c.Retry.Validate()
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-26s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Table", c.Table)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Connections Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	// Retry settings
	addSection("Retry")
	addField("Enabled", strconv.FormatBool(c.Retry.Enabled))
	addField("Max Retries", strconv.Itoa(c.Retry.MaxRetries))
	addField("Initial Backoff", fmt.Sprintf("%d ms", c.Retry.InitialBackoffMillis))
	addField("Max Backoff", fmt.Sprintf("%d ms", c.Retry.MaxBackoffMillis))
	addField("Max Elapsed Backoff", fmt.Sprintf("%d ms", c.Retry.MaxElapsedBackoffMillis))
	addField("Attempt Timeout", fmt.Sprintf("%d ms", c.Retry.AttemptTimeoutMillis))

	// Streaming settings
	addSection("Streaming")
	addField("Batch Size", strconv.Itoa(c.Retry.StreamingBatchSize))
	addField("Buffer Size", strconv.Itoa(c.Retry.StreamingBufferSize))
	addField("Partial Row Timeout", fmt.Sprintf("%d ms", c.Retry.ReadPartialRowTimeoutMillis))
	addField("Max Scan Timeout Retries", strconv.Itoa(c.Retry.MaxScanTimeoutRetries))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
