package codec

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteMessage([]byte(`{"hello":"world"}`)))

	r := NewReader(&buf)
	msg, err := r.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, `{"hello":"world"}`, string(msg))
}

func TestReadMessageEOFOnCleanClose(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.ReadMessage()
	require.ErrorIs(t, err, io.EOF)
}

func TestReadMessagePartialFrameIsProtocolError(t *testing.T) {
	var buf bytes.Buffer
	// Declare 10 bytes of payload but only write 3.
	lenBuf := make([]byte, 4)
	nativeOrder.PutUint32(lenBuf, 10)
	buf.Write(lenBuf)
	buf.Write([]byte{1, 2, 3})

	r := NewReader(&buf)
	_, err := r.ReadMessage()
	require.Error(t, err)
	require.NotErrorIs(t, err, io.EOF)
}

func TestFrameAtExactLimitAccepted(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	payload := bytes.Repeat([]byte("a"), MaxFrameSize)
	require.NoError(t, w.WriteMessage(payload))

	r := NewReader(&buf)
	msg, err := r.ReadMessage()
	require.NoError(t, err)
	require.Len(t, msg, MaxFrameSize)
}

func TestFrameOneByteOverLimitRejected(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	payload := bytes.Repeat([]byte("a"), MaxFrameSize+1)
	err := w.WriteMessage(payload)
	require.Error(t, err)
}

func TestWriteMessageNoInterleaving(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.WriteMessage([]byte(`{"x":1}`))
		}()
	}
	wg.Wait()

	r := NewReader(&buf)
	count := 0
	for {
		msg, err := r.ReadMessage()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Equal(t, `{"x":1}`, string(msg))
		count++
	}
	require.Equal(t, 20, count)
}
