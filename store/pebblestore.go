package store

import (
	"errors"

	"github.com/cockroachdb/pebble"
)

// PebbleStore is the on-disk KV adapter for deployments that can afford a
// real embedded LSM engine (gateway/full nodes, not duty-cycle-limited
// edge devices). It implements the same KV interface as MemStore so the
// rest of the core is indifferent to which is wired in.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens (creating if absent) a pebble database at dir.
func OpenPebble(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Get(key []byte) ([]byte, error) {
	v, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, closer.Close()
}

func (p *PebbleStore) Put(key, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

func (p *PebbleStore) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func (p *PebbleStore) NewIterator(prefix []byte) Iterator {
	upper := prefixUpperBound(prefix)
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return &errIterator{err: err}
	}
	return &pebbleIterator{it: it, started: false}
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix, or nil if prefix is all 0xFF bytes (unbounded scan).
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

type pebbleIterator struct {
	it      *pebble.Iterator
	started bool
}

func (p *pebbleIterator) Next() bool {
	if !p.started {
		p.started = true
		return p.it.First()
	}
	return p.it.Next()
}

func (p *pebbleIterator) Key() []byte   { return p.it.Key() }
func (p *pebbleIterator) Value() []byte { return p.it.Value() }
func (p *pebbleIterator) Release()      { _ = p.it.Close() }
func (p *pebbleIterator) Error() error  { return p.it.Error() }

type errIterator struct{ err error }

func (e *errIterator) Next() bool     { return false }
func (e *errIterator) Key() []byte    { return nil }
func (e *errIterator) Value() []byte  { return nil }
func (e *errIterator) Release()       {}
func (e *errIterator) Error() error   { return e.err }
