package store

import (
	"time"

	"golang.org/x/crypto/blake2b"
)

type knownWrite struct {
	digest  [blake2b.Size256]byte
	expires time.Time
}

// knownWrites remembers documents this store wrote recently, so the watch
// events caused by those writes are not mistaken for external changes. An
// entry only matches while it is fresh and the file still holds exactly the
// bytes that were written.
type knownWrites struct {
	ttl     time.Duration
	now     func() time.Time
	entries map[string]knownWrite
}

func newKnownWrites(ttl time.Duration, now func() time.Time) *knownWrites {
	return &knownWrites{ttl: ttl, now: now, entries: make(map[string]knownWrite)}
}

func (k *knownWrites) remember(path string, data []byte) {
	k.purge()
	k.entries[path] = knownWrite{digest: blake2b.Sum256(data), expires: k.now().Add(k.ttl)}
}

func (k *knownWrites) forget(path string) {
	delete(k.entries, path)
}

// matches reports whether data at path is a fresh write of our own.
func (k *knownWrites) matches(path string, data []byte) bool {
	k.purge()
	e, ok := k.entries[path]
	return ok && e.digest == blake2b.Sum256(data)
}

func (k *knownWrites) purge() {
	now := k.now()
	for p, e := range k.entries {
		if !now.Before(e.expires) {
			delete(k.entries, p)
		}
	}
}

func (k *knownWrites) len() int { return len(k.entries) }
