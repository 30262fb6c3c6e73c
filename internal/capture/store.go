package capture

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/obslog"
)

// Options tunes the store's TTL, size cap, and lock staleness bound.
type Options struct {
	TTL          time.Duration
	SizeCapBytes int64
	LockStale    time.Duration
}

func DefaultOptions() Options {
	return Options{TTL: 24 * time.Hour, SizeCapBytes: 200 * 1024 * 1024, LockStale: 5 * time.Second}
}

// Store owns the on-disk layout under a base directory, per spec §6:
//
//	requests.jsonl, bodies/<hash>.req|.res, .meta, .lock
//
// The base directory is injected rather than read from a package-global,
// per §9's design note on avoiding global mutable state.
type Store struct {
	base string
	opts Options

	mu sync.Mutex // serialises in-process cleanup/append races; cross-process safety is the lock file
}

func New(base string, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(base, "bodies"), 0o755); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Store, "create capture dirs", err)
	}
	return &Store{base: base, opts: opts}, nil
}

func (s *Store) requestsPath() string { return filepath.Join(s.base, "requests.jsonl") }
func (s *Store) metaPath() string     { return filepath.Join(s.base, ".meta") }
func (s *Store) lockPath() string     { return filepath.Join(s.base, ".lock") }
func (s *Store) bodyPath(hash string, kind BodyKind) string {
	return filepath.Join(s.base, "bodies", fmt.Sprintf("%s.%s", hash, kind))
}

// HashBody returns the content hash used to name a body file.
func HashBody(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// WriteBody stores b under its content hash for kind, deduplicating
// identical bodies into one file, and returns the hash to store on the
// Entry.
func (s *Store) WriteBody(b []byte, kind BodyKind) (string, error) {
	hash := HashBody(b)
	path := s.bodyPath(hash, kind)
	if _, err := os.Stat(path); err == nil {
		return hash, nil // already present, dedup hit
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return "", bridgeerr.Wrap(bridgeerr.Store, "write body", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", bridgeerr.Wrap(bridgeerr.Store, "rename body", err)
	}
	return hash, nil
}

// ReadBody returns the bytes of a previously-written body.
func (s *Store) ReadBody(hash string, kind BodyKind) ([]byte, error) {
	b, err := os.ReadFile(s.bodyPath(hash, kind))
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Store, "read body", err)
	}
	return b, nil
}

// Append adds entry to the log. It acquires the append lock when
// possible; when contested and not stale, it proceeds without the lock
// because the underlying append is a single small write, per §4.B/§9.
func (s *Store) Append(entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return bridgeerr.Wrap(bridgeerr.Store, "marshal entry", err)
	}
	line = append(line, '\n')

	release, _, lockErr := acquireLock(s.lockPath(), s.opts.LockStale)
	if lockErr != nil {
		obslog.For("capture").Sugar().Warnf("lock acquire error, appending unlocked: %v", lockErr)
	}
	if release != nil {
		defer release()
	}

	f, err := os.OpenFile(s.requestsPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return bridgeerr.Wrap(bridgeerr.Store, "open requests.jsonl", err)
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return bridgeerr.Wrap(bridgeerr.Store, "append entry", err)
	}
	return nil
}

// readAll streams requests.jsonl, skipping malformed lines rather than
// failing the whole read, per §4.B "reader skips malformed lines".
func (s *Store) readAll() ([]Entry, error) {
	f, err := os.Open(s.requestsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, bridgeerr.Wrap(bridgeerr.Store, "open requests.jsonl", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		var e Entry
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := json.Unmarshal(line, &e); err != nil {
			continue // malformed line, skip
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Query applies filter conjunctively, streaming and skipping malformed
// lines, then applies filter.Tail as a final slice.
func (s *Store) Query(filter Filter) ([]Entry, error) {
	entries, err := s.readAll()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if filter.Match(e) {
			out = append(out, e)
		}
	}
	return ApplyTail(out, filter.Tail), nil
}

// Stats returns the aggregate described in §4.B.
func (s *Store) Stats() (Stats, error) {
	entries, err := s.readAll()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{EntryCount: len(entries)}
	if len(entries) > 0 {
		oldest := entries[0].Timestamp
		for _, e := range entries {
			if e.Timestamp.Before(oldest) {
				oldest = e.Timestamp
			}
		}
		st.OldestUnixMs = oldest.UnixMilli()
	}

	bodiesDir := filepath.Join(s.base, "bodies")
	files, _ := os.ReadDir(bodiesDir)
	st.BodyCount = len(files)
	for _, fi := range files {
		info, err := fi.Info()
		if err == nil {
			st.TotalBytes += info.Size()
		}
	}

	if m, err := s.readMeta(); err == nil {
		st.LastCleanupMs = m.LastCleanup
	}
	return st, nil
}

// Clear removes entries matching filter (or all entries when filter is
// the zero value), and any body files left with no surviving referrer.
func (s *Store) Clear(filter Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return err
	}
	var keep []Entry
	for _, e := range entries {
		if !filter.Match(e) {
			keep = append(keep, e)
		}
	}
	return s.rewrite(keep)
}

// Cleanup performs the atomic rewrite described in §4.B: drop entries
// older than TTL, drop the oldest entries while the total on-disk size
// exceeds the cap, delete body files with no surviving referrer, then
// rename a temp file over requests.jsonl. Ordering matters: bodies are
// deleted after computing the surviving set and before the rename, so a
// crash leaves orphaned entries (readable, bodies missing) rather than
// dangling body files with no describing entry.
func (s *Store) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-s.opts.TTL)
	var survivors []Entry
	for _, e := range entries {
		if e.Timestamp.After(cutoff) {
			survivors = append(survivors, e)
		}
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Timestamp.Before(survivors[j].Timestamp)
	})

	totalBytes, sizes := s.bodySizes(survivors)
	for len(survivors) > 0 && totalBytes > s.opts.SizeCapBytes {
		dropped := survivors[0]
		survivors = survivors[1:]
		totalBytes -= sizes[dropped.ID]
	}

	surviving := make(map[string]bool, len(survivors)*2)
	for _, e := range survivors {
		if e.RequestBodyHash != "" {
			surviving[e.RequestBodyHash+"."+string(Request)] = true
		}
		if e.ResponseBodyHash != "" {
			surviving[e.ResponseBodyHash+"."+string(Response)] = true
		}
	}
	if err := s.deleteOrphanBodies(surviving); err != nil {
		return err
	}

	if err := s.rewrite(survivors); err != nil {
		return err
	}
	return s.writeMeta(meta{LastCleanup: time.Now().UnixMilli()})
}

func (s *Store) bodySizes(entries []Entry) (total int64, byEntry map[string]int64) {
	byEntry = make(map[string]int64, len(entries))
	for _, e := range entries {
		var sz int64
		if e.RequestBodyHash != "" {
			if info, err := os.Stat(s.bodyPath(e.RequestBodyHash, Request)); err == nil {
				sz += info.Size()
			}
		}
		if e.ResponseBodyHash != "" {
			if info, err := os.Stat(s.bodyPath(e.ResponseBodyHash, Response)); err == nil {
				sz += info.Size()
			}
		}
		byEntry[e.ID] = sz
		total += sz
	}
	return total, byEntry
}

func (s *Store) deleteOrphanBodies(surviving map[string]bool) error {
	dir := filepath.Join(s.base, "bodies")
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return bridgeerr.Wrap(bridgeerr.Store, "list bodies", err)
	}
	for _, fi := range files {
		name := fi.Name()
		ext := filepath.Ext(name)
		hash := name[:len(name)-len(ext)]
		kind := ext
		if len(kind) > 0 && kind[0] == '.' {
			kind = kind[1:]
		}
		if !surviving[hash+"."+kind] {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
	return nil
}

func (s *Store) rewrite(entries []Entry) error {
	tmp := s.requestsPath() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return bridgeerr.Wrap(bridgeerr.Store, "create temp log", err)
	}
	w := bufio.NewWriter(f)
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			_ = f.Close()
			return bridgeerr.Wrap(bridgeerr.Store, "marshal entry", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			_ = f.Close()
			return bridgeerr.Wrap(bridgeerr.Store, "write temp log", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return bridgeerr.Wrap(bridgeerr.Store, "flush temp log", err)
	}
	if err := f.Close(); err != nil {
		return bridgeerr.Wrap(bridgeerr.Store, "close temp log", err)
	}
	if err := os.Rename(tmp, s.requestsPath()); err != nil {
		return bridgeerr.Wrap(bridgeerr.Store, "rename temp log", err)
	}
	return nil
}

func (s *Store) readMeta() (meta, error) {
	data, err := os.ReadFile(s.metaPath())
	if err != nil {
		return meta{}, err
	}
	var m meta
	if err := json.Unmarshal(data, &m); err != nil {
		return meta{}, err
	}
	return m, nil
}

func (s *Store) writeMeta(m meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return bridgeerr.Wrap(bridgeerr.Store, "marshal meta", err)
	}
	if err := os.WriteFile(s.metaPath(), data, 0o644); err != nil {
		return bridgeerr.Wrap(bridgeerr.Store, "write meta", err)
	}
	return nil
}

// ShouldAutoCleanup reports whether more than an hour has elapsed since
// .meta's lastCleanup, per §3 "at most once per hour per process".
func (s *Store) ShouldAutoCleanup() bool {
	m, err := s.readMeta()
	if err != nil {
		return true
	}
	return time.Since(time.UnixMilli(m.LastCleanup)) > time.Hour
}
