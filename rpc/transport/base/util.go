package base

import (
	"encoding/binary"
	"io"
	"net"
)

// Frame kinds. Open, credit and cancel frames travel from client to server,
// chunk, final and error frames from server to client.
const (
	frameOpen   byte = iota + 1 // Starts a call, credit carries the initial window
	frameCredit                 // Grants additional response frames
	frameCancel                 // Abandons a call
	frameChunk                  // One response payload
	frameFinal                  // Clean end of the response stream
	frameError                  // Aborts the call, meta carries the status code
)

// frameHeaderSize is the fixed size of the frame header in bytes
const frameHeaderSize = 21

// frame is one decoded wire frame
type frame struct {
	requestID uint64
	kind      byte
	meta      uint32
	credit    uint32
	payload   []byte
}

// frameKindName returns a human readable name for log messages
func frameKindName(kind byte) string {
	switch kind {
	case frameOpen:
		return "open"
	case frameCredit:
		return "credit"
	case frameCancel:
		return "cancel"
	case frameChunk:
		return "chunk"
	case frameFinal:
		return "final"
	case frameError:
		return "error"
	default:
		return "unknown"
	}
}

// writeFrame writes a frame to the connection with the format:
// - 8 bytes: requestID (uint64, big endian)
// - 1 byte:  frame kind
// - 4 bytes: meta (uint32, big endian), carries the status code of error frames
// - 4 bytes: credit (uint32, big endian), carries flow control grants
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func writeFrame(conn net.Conn, requestID uint64, kind byte, meta, credit uint32, data []byte) error {
	// Create the fixed size header
	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint64(header[:8], requestID)
	header[8] = kind
	binary.BigEndian.PutUint32(header[9:13], meta)
	binary.BigEndian.PutUint32(header[13:17], credit)
	binary.BigEndian.PutUint32(header[17:21], uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads a single frame from the connection. The payload slice is
// freshly allocated and safe to hand to another goroutine.
func readFrame(conn net.Conn) (frame, error) {
	var f frame

	// Read header
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(conn, header); err != nil {
		return f, err
	}

	// Parse header
	f.requestID = binary.BigEndian.Uint64(header[:8])
	f.kind = header[8]
	f.meta = binary.BigEndian.Uint32(header[9:13])
	f.credit = binary.BigEndian.Uint32(header[13:17])
	contentLength := binary.BigEndian.Uint32(header[17:21])

	// If no data, return frame without payload
	if contentLength == 0 {
		return f, nil
	}

	// Read data
	f.payload = make([]byte, contentLength)
	if _, err := io.ReadFull(conn, f.payload); err != nil {
		return f, err
	}

	return f, nil
}
