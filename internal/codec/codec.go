// Package codec implements the native-messaging wire format used between
// the bridge daemon and the router: a 32-bit native-endian length prefix
// followed by a UTF-8 JSON payload (spec §4.A, §6).
package codec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/surfbridge/surf/internal/bridgeerr"
)

// MaxFrameSize is the largest inbound frame accepted, in bytes. Larger
// payloads (screenshots, network bodies) must be split by the caller
// into follow-up tool calls or cache-handle references instead.
const MaxFrameSize = 1 << 20 // 1 MiB

var nativeOrder binary.ByteOrder = binary.NativeEndian

// Writer serialises framed writes so a length prefix and its payload are
// never interleaved with another writer's frame, even under concurrent
// callers.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteMessage writes one frame atomically: the whole length+payload is
// assembled in one buffer and handed to a single Write call so a
// pipe-level partial write can't interleave with a concurrent sender.
func (w *Writer) WriteMessage(payload []byte) error {
	if len(payload) > MaxFrameSize {
		return bridgeerr.New(bridgeerr.Transport, fmt.Sprintf("frame too large: %d bytes", len(payload)))
	}
	buf := make([]byte, 4+len(payload))
	nativeOrder.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.w.Write(buf)
	if err != nil {
		return bridgeerr.Wrap(bridgeerr.Transport, "write frame", err)
	}
	return nil
}

// Reader reads frames from a byte stream. It must never be wrapped
// around a line-buffered reader: stdin here is a raw byte stream.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// ReadMessage blocks until a full frame is available. It returns io.EOF
// verbatim on a clean close before any bytes of a new frame arrive, and
// a Transport error for a partial frame, an oversized declared length,
// or any other read failure.
func (r *Reader) ReadMessage() ([]byte, error) {
	var lenBuf [4]byte
	n, err := io.ReadFull(r.r, lenBuf[:])
	if err != nil {
		if n == 0 && err == io.EOF {
			return nil, io.EOF
		}
		return nil, bridgeerr.Wrap(bridgeerr.Transport, "read frame length", err)
	}

	size := nativeOrder.Uint32(lenBuf[:])
	if size > MaxFrameSize {
		return nil, bridgeerr.New(bridgeerr.Transport, fmt.Sprintf("declared frame size %d exceeds limit", size))
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Transport, "read frame payload", err)
	}
	return payload, nil
}
