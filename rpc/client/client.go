package client

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/dRow/lib/obs"
	"github.com/ValentinKolb/dRow/lib/table"
	"github.com/ValentinKolb/dRow/rpc/common"
	"github.com/ValentinKolb/dRow/rpc/serializer"
	"github.com/ValentinKolb/dRow/rpc/transport"
	"github.com/grafana/dskit/backoff"
)

// Streaming parameters for point lookups: a single expected row needs no
// batching, a small buffer keeps latency minimal.
const (
	pointLookupBatchSize  = 1
	pointLookupBufferSize = 10
)

// --------------------------------------------------------------------------
// Client Construction
// --------------------------------------------------------------------------

// RPCTableClient implements table.ITableClient on top of a pooled client
// transport. Every blocking interface method has an asynchronous
// counterpart returning a Future. The client is safe for concurrent use.
type RPCTableClient struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
	exec       *retryExecutor
	observer   *obs.Observer

	channelTarget int
	expanding     atomic.Bool
}

// NewRPCTableClient creates a new client for the table named in config.
// The function takes a config, a transport and a serializer as parameters.
// It connects the transport and returns the ready-to-use client.
func NewRPCTableClient(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCTableClient, error) {

	// Validate the configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	observer := obs.NewObserver()
	c := &RPCTableClient{
		config:        config,
		transport:     transport,
		serializer:    serializer,
		exec:          newRetryExecutor(config.Retry, observer),
		observer:      observer,
		channelTarget: len(config.Transport.Endpoints) * max(1, config.Transport.ConnectionsPerEndpoint),
	}
	return c, nil
}

// Close releases the transport and stops the event observer. The client
// must not be used afterwards.
func (c *RPCTableClient) Close() error {
	err := c.transport.Close()
	c.observer.Close()
	return err
}

// --------------------------------------------------------------------------
// Connection Pool Upkeep
// --------------------------------------------------------------------------

// ensureChannels asynchronously grows the connection pool back to its
// configured size. It never blocks the call that triggered it, runs at most
// once concurrently, and reports failures to the observer instead of the
// caller: a shrunken pool degrades throughput but does not fail calls.
func (c *RPCTableClient) ensureChannels() {
	if !c.expanding.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.expanding.Store(false)
		if err := c.transport.EnsureChannelCount(c.channelTarget); err != nil {
			c.observer.Emit(obs.Event{
				Kind:   obs.KindPoolExpansionFailed,
				Detail: fmt.Sprintf("target %d connections", c.channelTarget),
				Err:    err,
			})
		}
	}()
}

// --------------------------------------------------------------------------
// Scanner Construction
// --------------------------------------------------------------------------

// streamingParams selects the flow-control parameters for a read: point
// lookups (or scans limited to one row) run with minimal credit, range
// scans with the configured batch and buffer sizes.
func (c *RPCTableClient) streamingParams(query table.ReadQuery) (batch, buffer int) {
	if query.IsGet() || query.Limit == 1 {
		return pointLookupBatchSize, pointLookupBufferSize
	}
	return c.config.Retry.StreamingBatchSize, c.config.Retry.StreamingBufferSize
}

// openScanner wires a query to a scanner: a resuming one when retries are
// enabled, otherwise a plain reader shell. The token cancels the scan and
// every network call it issues.
func (c *RPCTableClient) openScanner(ctx context.Context, query table.ReadQuery, token *CancelToken) (table.IResultScanner, error) {
	if err := query.Validate(); err != nil {
		return nil, common.WrapStatus(common.StatusInvalidArgument, "invalid read query", err)
	}
	c.ensureChannels()

	// The scan context ends with the token so that backoff sleeps and call
	// watchers unblock on Close
	scanCtx, cancel := context.WithCancel(ctx)
	token.AddListener(cancel)

	batch, buffer := c.streamingParams(query)
	req := common.NewReadRowsRequest(c.config.Table, query)

	reader, err := c.openStream(scanCtx, req, token, batch, buffer)
	if err != nil {
		token.Cancel()
		return nil, err
	}

	if !c.config.Retry.Enabled {
		return &streamingResultScanner{
			reader:   reader,
			token:    token,
			observer: c.observer,
		}, nil
	}

	return &resumingResultScanner{
		client: c,
		ctx:    scanCtx,
		token:  token,
		query:  query,
		limit:  query.Limit,
		batch:  batch,
		buffer: buffer,
		reader: reader,
		boff: backoff.New(scanCtx, backoff.Config{
			MinBackoff: c.config.Retry.InitialBackoff(),
			MaxBackoff: c.config.Retry.MaxBackoff(),
			MaxRetries: c.config.Retry.MaxRetries,
		}),
		state: scanStreaming,
	}, nil
}
