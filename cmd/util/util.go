package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dRow/rpc/common"
	"github.com/ValentinKolb/dRow/rpc/serializer"
	"github.com/ValentinKolb/dRow/rpc/transport"
	"github.com/ValentinKolb/dRow/rpc/transport/tcp"
	"github.com/ValentinKolb/dRow/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "table"
	cmd.PersistentFlags().String(key, "default", WrapString("The table all requests address"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds for single connect and write operations on the transport"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("The level at which logs will be output (debug, info, warn, error)"))

	key = "transport-endpoints"
	cmd.PersistentFlags().String(key, "localhost:8080", WrapString("The address of the dRow server. Multiple endpoints can be specified as a comma-separated list, calls are balanced over all of them"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the write buffer for the transport (in KB)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the read buffer for the transport (in KB)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY for the transport (only for tcp)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval for the transport (in seconds, only for tcp)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The linger time for the transport (in seconds, only for tcp)"))

	key = "retry"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to retry failed requests and resume broken scans"))

	key = "retry-max"
	cmd.PersistentFlags().Int(key, common.DefaultMaxRetries, WrapString("How many times to retry a failed request"))

	key = "retry-initial-backoff"
	cmd.PersistentFlags().Int(key, common.DefaultInitialBackoffMillis, WrapString("The first retry delay (in ms), later delays double up to the max backoff"))

	key = "retry-max-backoff"
	cmd.PersistentFlags().Int(key, common.DefaultMaxBackoffMillis, WrapString("The upper bound for a single retry delay (in ms)"))

	key = "retry-max-elapsed"
	cmd.PersistentFlags().Int(key, common.DefaultMaxElapsedBackoffMillis, WrapString("The total time budget for one request including all retries (in ms, 0 disables the budget)"))

	key = "retry-attempt-timeout"
	cmd.PersistentFlags().Int(key, common.DefaultAttemptTimeoutMillis, WrapString("The timeout for a single attempt (in ms, 0 disables it)"))

	key = "scan-batch-size"
	cmd.PersistentFlags().Int(key, common.DefaultStreamingBatchSize, WrapString("How many response chunks the server may send before it must wait for the client"))

	key = "scan-buffer-size"
	cmd.PersistentFlags().Int(key, common.DefaultStreamingBufferSize, WrapString("The capacity of the client-side chunk buffer"))

	key = "scan-partial-timeout"
	cmd.PersistentFlags().Int(key, common.DefaultReadPartialRowTimeoutMillis, WrapString("How long to wait for the next chunk of a scan (in ms)"))

	key = "scan-timeout-retries"
	cmd.PersistentFlags().Int(key, common.DefaultMaxScanTimeoutRetries, WrapString("How many consecutive chunk timeouts a scan absorbs before giving up"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("drow")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	conf := &common.ClientConfig{
		Table:         viper.GetString("table"),
		TimeoutSecond: viper.GetInt("timeout"),
		LogLevel:      viper.GetString("log-level"),
		Transport: common.ClientTransportConfig{
			Endpoints:              strings.Split(viper.GetString("transport-endpoints"), ","),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			SocketConf: common.SocketConf{
				WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
			},
			TCPConf: common.TCPConf{
				TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
				TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			},
		},
		Retry: common.RetryOptions{
			Enabled:                     viper.GetBool("retry"),
			MaxRetries:                  viper.GetInt("retry-max"),
			InitialBackoffMillis:        viper.GetInt("retry-initial-backoff"),
			MaxBackoffMillis:            viper.GetInt("retry-max-backoff"),
			MaxElapsedBackoffMillis:     viper.GetInt("retry-max-elapsed"),
			AttemptTimeoutMillis:        viper.GetInt("retry-attempt-timeout"),
			StreamingBatchSize:          viper.GetInt("scan-batch-size"),
			StreamingBufferSize:         viper.GetInt("scan-buffer-size"),
			ReadPartialRowTimeoutMillis: viper.GetInt("scan-partial-timeout"),
			MaxScanTimeoutRetries:       viper.GetInt("scan-timeout-retries"),
		},
	}

	return conf
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// GetTransport creates transport based on configuration
func GetTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
