/*
 * MIT License
 *
 * (C) Copyright [2025] Hewlett Packard Enterprise Development LP
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
 * THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
 * OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
 * ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
 * OTHER DEALINGS IN THE SOFTWARE.
 */

package tablestore

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Cray-HPE/hms-hpi/internal/model"
)

// ErrNotPresent is returned by Next when the cursor addresses no entry.
// During a walk it marks the end of the table.
var ErrNotPresent = errors.New("entry not present")

var ErrReservedID = errors.New("entry id is reserved")

// A version is an immutable copy of the table together with the update
// counter that describes it. Publishing a version publishes both at once,
// so a reader that sees any entry of a newer version is guaranteed to see
// a counter at least that new when it re-reads the descriptor.
type version[T any] struct {
	entries []T
	index   map[model.EntryID]int
	counter uint32
	updated time.Time
}

// Store is a table of entries with an update counter. Readers never block;
// writers serialize among themselves and publish a fresh version per
// mutation, bumping the counter only when the entries actually changed.
type Store[T any] struct {
	Now func() time.Time

	idOf  func(T) model.EntryID
	equal func(a, b T) bool
	mu    sync.Mutex
	cur   atomic.Pointer[version[T]]
}

func New[T any](idOf func(T) model.EntryID) *Store[T] {
	s := &Store[T]{
		Now:  time.Now,
		idOf: idOf,
		equal: func(a, b T) bool {
			return reflect.DeepEqual(a, b)
		},
	}
	s.cur.Store(&version[T]{index: map[model.EntryID]int{}})
	return s
}

// Counter returns the current update counter and the time of the last
// counted change.
func (s *Store[T]) Counter() (uint32, time.Time) {
	v := s.cur.Load()
	return v.counter, v.updated
}

func (s *Store[T]) Len() int {
	return len(s.cur.Load().entries)
}

// Next returns the entry at cursor and the cursor of the entry after it
// (LastEntry for the final entry). FirstEntry addresses the first entry.
func (s *Store[T]) Next(cursor model.EntryID) (T, model.EntryID, error) {
	var zero T
	v := s.cur.Load()
	ix := 0
	if cursor != model.FirstEntry {
		var ok bool
		ix, ok = v.index[cursor]
		if !ok {
			return zero, model.LastEntry, ErrNotPresent
		}
	}
	if ix >= len(v.entries) {
		return zero, model.LastEntry, ErrNotPresent
	}
	next := model.LastEntry
	if ix+1 < len(v.entries) {
		next = s.idOf(v.entries[ix+1])
	}
	return v.entries[ix], next, nil
}

func (s *Store[T]) Get(id model.EntryID) (T, bool) {
	var zero T
	v := s.cur.Load()
	ix, ok := v.index[id]
	if !ok {
		return zero, false
	}
	return v.entries[ix], true
}

// Entries returns one version of the table. Callers must not modify it.
func (s *Store[T]) Entries() []T {
	return s.cur.Load().entries
}

// Mutate applies fn to a private copy of the entries and publishes the
// result. fn reports whether it changed anything; nothing is published
// otherwise.
func (s *Store[T]) Mutate(fn func(entries []T) ([]T, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.cur.Load()
	work := make([]T, len(old.entries))
	copy(work, old.entries)
	work, changed := fn(work)
	if !changed {
		return nil
	}
	idx := make(map[model.EntryID]int, len(work))
	for ix, e := range work {
		id := s.idOf(e)
		if id == model.FirstEntry || id == model.LastEntry {
			return fmt.Errorf("%w: %d", ErrReservedID, id)
		}
		if _, dup := idx[id]; dup {
			return fmt.Errorf("duplicate entry id %d", id)
		}
		idx[id] = ix
	}
	s.cur.Store(&version[T]{
		entries: work,
		index:   idx,
		counter: old.counter + 1,
		updated: s.Now(),
	})
	return nil
}

// Upsert replaces the entry with the same id or appends a new one.
func (s *Store[T]) Upsert(e T) error {
	id := s.idOf(e)
	return s.Mutate(func(entries []T) ([]T, bool) {
		for ix := range entries {
			if s.idOf(entries[ix]) == id {
				if s.equal(entries[ix], e) {
					return entries, false
				}
				entries[ix] = e
				return entries, true
			}
		}
		return append(entries, e), true
	})
}

// Update edits the entry with the given id in place. fn returns whether it
// changed the entry. Update reports whether the entry exists.
func (s *Store[T]) Update(id model.EntryID, fn func(e *T) bool) (bool, error) {
	found := false
	err := s.Mutate(func(entries []T) ([]T, bool) {
		for ix := range entries {
			if s.idOf(entries[ix]) == id {
				found = true
				return entries, fn(&entries[ix])
			}
		}
		return entries, false
	})
	return found, err
}

func (s *Store[T]) Delete(id model.EntryID) (bool, error) {
	found := false
	err := s.Mutate(func(entries []T) ([]T, bool) {
		for ix := range entries {
			if s.idOf(entries[ix]) == id {
				found = true
				return append(entries[:ix], entries[ix+1:]...), true
			}
		}
		return entries, false
	})
	return found, err
}

// Replace swaps in a whole new table, counting a change only when it
// differs from the current one.
func (s *Store[T]) Replace(entries []T) error {
	return s.Mutate(func(cur []T) ([]T, bool) {
		if len(cur) == len(entries) {
			same := true
			for ix := range cur {
				if !s.equal(cur[ix], entries[ix]) {
					same = false
					break
				}
			}
			if same {
				return cur, false
			}
		}
		return append([]T(nil), entries...), true
	})
}
