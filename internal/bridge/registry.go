package bridge

import (
	"sync"
	"time"
)

// pendingRequest is the daemon-side bookkeeping entry for one in-flight
// upstream request, per spec §3 "Pending request".
type pendingRequest struct {
	upstreamID string
	conn       *clientConn
	originalID string
	tool       string
	deadline   time.Time
	timer      *time.Timer
	release    func() // site-queue release, held until reply delivery or timeout
}

// registry maps upstream-id to pendingRequest. Hold times are bounded to
// a single map operation, per §5.
type registry struct {
	mu      sync.Mutex
	entries map[string]*pendingRequest
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*pendingRequest)}
}

func (r *registry) put(p *pendingRequest) {
	r.mu.Lock()
	r.entries[p.upstreamID] = p
	r.mu.Unlock()
}

func (r *registry) take(upstreamID string) (*pendingRequest, bool) {
	r.mu.Lock()
	p, ok := r.entries[upstreamID]
	if ok {
		delete(r.entries, upstreamID)
	}
	r.mu.Unlock()
	return p, ok
}

// attachRelease sets the site-queue release func on the still-pending
// entry for upstreamID, returning false without attaching it if the
// entry already finished (timed out, or its connection closed) while the
// caller was waiting for its queue turn — the caller must then release
// the queue slot itself.
func (r *registry) attachRelease(upstreamID string, release func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[upstreamID]
	if !ok {
		return false
	}
	p.release = release
	return true
}

func (r *registry) remove(upstreamID string) {
	r.mu.Lock()
	delete(r.entries, upstreamID)
	r.mu.Unlock()
}

// purgeConn drops every entry belonging to conn, so a late upstream reply
// for a now-closed connection is discarded silently (§4.C fault model).
func (r *registry) purgeConn(conn *clientConn) {
	r.mu.Lock()
	var released []*pendingRequest
	for id, p := range r.entries {
		if p.conn == conn {
			if p.timer != nil {
				p.timer.Stop()
			}
			delete(r.entries, id)
			released = append(released, p)
		}
	}
	r.mu.Unlock()
	for _, p := range released {
		if p.release != nil {
			p.release()
		}
	}
}

// drainAll removes and returns every pending entry, used when the
// upstream pipe EOFs and every in-flight request must be aborted.
func (r *registry) drainAll() []*pendingRequest {
	r.mu.Lock()
	out := make([]*pendingRequest, 0, len(r.entries))
	for id, p := range r.entries {
		out = append(out, p)
		delete(r.entries, id)
	}
	r.mu.Unlock()
	return out
}
