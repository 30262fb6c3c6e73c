package bridge

import "sync"

// siteQueues holds one FIFO per site-key for tools that cannot run
// concurrently on the same third-party site (§4.C "AI serialisation").
// Entering the queue is a suspension point; only the head of each queue
// proceeds.
type siteQueues struct {
	mu    sync.Mutex
	queue map[string]chan struct{} // acts as a ticket: buffered 1, holder releases by sending
}

func newSiteQueues() *siteQueues {
	return &siteQueues{queue: make(map[string]chan struct{})}
}

// acquire blocks until it is this caller's turn for key, returning a
// release func. The first caller for a never-seen key proceeds
// immediately.
func (s *siteQueues) acquire(key string) func() {
	s.mu.Lock()
	ch, ok := s.queue[key]
	if !ok {
		ch = make(chan struct{}, 1)
		ch <- struct{}{}
		s.queue[key] = ch
	}
	s.mu.Unlock()

	<-ch
	return func() { ch <- struct{}{} }
}

// siteKeyFor derives the serialisation key for a request: the explicit
// "site" argument when the tool supplies one, falling back to the tab
// id, and finally the tool name itself so unrelated AI-site tools never
// collide with each other's queue.
func siteKeyFor(tool, tabID, site string) string {
	if site != "" {
		return site
	}
	if tabID != "" {
		return tool + ":" + tabID
	}
	return tool
}
