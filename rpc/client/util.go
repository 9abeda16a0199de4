package client

import (
	"context"

	"github.com/ValentinKolb/dRow/lib/table"
	"github.com/ValentinKolb/dRow/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// --------------------------------------------------------------------------
// Unary Invocation
// --------------------------------------------------------------------------

// unaryListener collects the single response of a unary call. done is
// closed after the terminal event; the transport guarantees at most one.
type unaryListener struct {
	payload []byte
	err     error
	done    chan struct{}
}

func newUnaryListener() *unaryListener {
	return &unaryListener{done: make(chan struct{})}
}

func (l *unaryListener) OnChunk(payload []byte) {
	if l.payload == nil {
		l.payload = payload
	}
}

func (l *unaryListener) OnComplete() {
	close(l.done)
}

func (l *unaryListener) OnError(err error) {
	l.err = err
	close(l.done)
}

// invokeUnary performs one attempt of a unary request: serialize, send,
// await the single response, decode. It checks that the response is not an
// error message and that its type matches the request. The attempt is
// bounded by the per-attempt timeout and aborted when ctx or the token
// fires.
func (c *RPCTableClient) invokeUnary(ctx context.Context, req *common.Message, token *CancelToken) (*common.Message, error) {
	if t := c.config.Retry.AttemptTimeout(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	// Serialize the request
	payload, err := c.serializer.Serialize(*req)
	if err != nil {
		return nil, common.WrapStatus(common.StatusInvalidArgument, "failed to serialize request", err)
	}

	// Issue the call with credit for exactly one response frame
	call, err := c.transport.NewCall()
	if err != nil {
		return nil, err
	}
	if token != nil {
		token.AddListener(call.Cancel)
	}
	recv := newUnaryListener()
	if err := call.Start(payload, 1, recv); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		call.Cancel()
		return nil, common.FromError(ctx.Err())
	case <-recv.done:
	}
	if recv.err != nil {
		return nil, recv.err
	}
	if recv.payload == nil {
		return nil, common.NewStatus(common.StatusInternal, "response stream closed without a message")
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := c.serializer.Deserialize(recv.payload, resp); err != nil {
		return nil, common.WrapStatus(common.StatusInternal, "failed to decode response", err)
	}

	// Check if the response is an error response
	if resp.MsgType == common.MsgTError || resp.Err != "" {
		return nil, common.NewStatus(common.StatusCode(resp.Code), resp.Err)
	}

	// Check if the type of the response is the expected type. Operations
	// without a response payload are acknowledged with a plain success.
	if resp.MsgType != req.MsgType && resp.MsgType != common.MsgTSuccess {
		return nil, common.NewStatusf(common.StatusInternal,
			"unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	return resp, nil
}

// --------------------------------------------------------------------------
// Stream Invocation
// --------------------------------------------------------------------------

// openStream issues a streaming request and returns its reader. The live
// call is cancelled when the token fires or ctx ends, which unblocks any
// pull waiting on the reader.
func (c *RPCTableClient) openStream(ctx context.Context, req *common.Message, token *CancelToken, batch, buffer int) (*responseQueueReader, error) {
	payload, err := c.serializer.Serialize(*req)
	if err != nil {
		return nil, common.WrapStatus(common.StatusInvalidArgument, "failed to serialize request", err)
	}

	call, err := c.transport.NewCall()
	if err != nil {
		return nil, err
	}
	reader := newResponseQueueReader(call, c.serializer, batch, buffer, c.config.Retry.ReadPartialRowTimeout())
	reader.stopWatch = context.AfterFunc(ctx, call.Cancel)
	token.AddListener(call.Cancel)

	if err := call.Start(payload, uint32(batch), reader); err != nil {
		reader.Close()
		return nil, err
	}
	return reader, nil
}

// collectSamples is one attempt of a key sampling call: it drains the whole
// sample stream into memory.
func (c *RPCTableClient) collectSamples(ctx context.Context, req *common.Message, token *CancelToken) ([]table.SampleRowKey, error) {
	reader, err := c.openStream(ctx, req, token,
		c.config.Retry.StreamingBatchSize, c.config.Retry.StreamingBufferSize)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var samples []table.SampleRowKey
	for {
		msg, ok, err := reader.NextMessage()
		if err != nil {
			return nil, err
		}
		if !ok {
			return samples, nil
		}
		if msg.MsgType != common.MsgTSamples {
			return nil, common.NewStatusf(common.StatusInternal,
				"unexpected message type %s in key sample stream", msg.MsgType)
		}
		samples = append(samples, msg.Samples...)
	}
}
