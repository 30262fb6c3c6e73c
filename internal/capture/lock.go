package capture

import (
	"os"
	"time"
)

// acquireLock attempts to create the lock file exclusively. If it exists
// and is older than stale, it is treated as abandoned and removed before
// retrying once. If it exists and is fresh, acquireLock returns false,
// nil (no error) — the caller is expected to proceed without the lock,
// per spec §4.B/§9: small appends are atomic at the filesystem level, so
// an unlocked append is tolerated rather than blocked.
//
// TODO(windows): NTFS append semantics are weaker than POSIX O_APPEND;
// a Windows target should tighten this to always-wait instead of
// proceeding lock-less, per the §9 ambiguity note.
func acquireLock(path string, stale time.Duration) (release func(), ok bool, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err == nil {
		_ = f.Close()
		return func() { _ = os.Remove(path) }, true, nil
	}
	if !os.IsExist(err) {
		return nil, false, err
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return acquireLock(path, stale)
		}
		return nil, false, statErr
	}
	if time.Since(info.ModTime()) < stale {
		return nil, false, nil
	}

	_ = os.Remove(path)
	f, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, false, nil
	}
	_ = f.Close()
	return func() { _ = os.Remove(path) }, true, nil
}
