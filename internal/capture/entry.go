// Package capture implements the append-only, content-addressed network
// capture log described in spec §4.B/§3/§6: requests.jsonl plus
// deduplicated body files under bodies/, with TTL-and-size-bounded
// cleanup.
package capture

import "time"

// Entry is one line of requests.jsonl.
type Entry struct {
	ID              string            `json:"id"` // timestamp-random
	Timestamp       time.Time         `json:"timestamp"`
	URL             string            `json:"url"`
	Method          string            `json:"method"`
	Status          int               `json:"status"`
	ContentType     string            `json:"contentType,omitempty"`
	RequestHeaders  map[string]string `json:"requestHeaders,omitempty"`
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty"`
	RequestBodyHash string            `json:"requestBodyHash,omitempty"`
	ResponseBodyHash string           `json:"responseBodyHash,omitempty"`
}

// BodyKind selects which side's body file to read/write.
type BodyKind string

const (
	Request  BodyKind = "req"
	Response BodyKind = "res"
)

// Stats is the aggregate returned by Store.Stats.
type Stats struct {
	EntryCount    int   `json:"entryCount"`
	BodyCount     int   `json:"bodyCount"`
	TotalBytes    int64 `json:"totalBytes"`
	OldestUnixMs  int64 `json:"oldestUnixMs,omitempty"`
	LastCleanupMs int64 `json:"lastCleanupMs,omitempty"`
}

// meta mirrors the on-disk .meta file.
type meta struct {
	LastCleanup int64 `json:"lastCleanup"`
}
