package diagstatus

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHealthzAndStatsRespond(t *testing.T) {
	stats := NewStats()
	stats.RequestsTotal.Add(5)
	stats.RequestsFailed.Add(1)

	s, err := New("127.0.0.1:0", stats)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	base := "http://" + s.Addr()

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(base + "/stats")
	require.NoError(t, err)
	defer resp2.Body.Close()
	body, err := io.ReadAll(resp2.Body)
	require.NoError(t, err)

	var snap statsSnapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	require.Equal(t, uint64(5), snap.RequestsTotal)
	require.Equal(t, uint64(1), snap.RequestsFailed)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
