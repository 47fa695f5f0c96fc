// Package store holds the one live profile document. Every read and write
// goes through the same mutex; subscribers are told after each change.
package store

import (
	"sync"

	"github.com/neubio/neubio/internal/document"
)

// Listener is called with a deep copy of the document after each change.
type Listener func(doc *document.Document)

type Store struct {
	mu        sync.Mutex
	doc       *document.Document
	listeners map[int]Listener
	nextID    int
}

// New returns a store owning doc. A nil doc starts from an empty document.
func New(doc *document.Document) *Store {
	if doc == nil {
		doc = &document.Document{}
	}
	return &Store{doc: doc, listeners: make(map[int]Listener)}
}

// Read runs fn with the live document. fn must not keep the pointer.
func (s *Store) Read(fn func(doc *document.Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.doc)
}

// Update runs fn against the live document. When fn returns nil the
// subscribers are notified; an error is passed through and nobody is told.
// fn is responsible for leaving the document unchanged when it fails.
func (s *Store) Update(fn func(doc *document.Document) error) error {
	s.mu.Lock()
	if err := fn(s.doc); err != nil {
		s.mu.Unlock()
		return err
	}
	snap, listeners := s.doc.Clone(), s.copyListeners()
	s.mu.Unlock()

	notify(listeners, snap)
	return nil
}

// Replace swaps in a whole new document (load, pull).
func (s *Store) Replace(doc *document.Document) {
	if doc == nil {
		doc = &document.Document{}
	}
	s.mu.Lock()
	s.doc = doc
	snap, listeners := doc.Clone(), s.copyListeners()
	s.mu.Unlock()

	notify(listeners, snap)
}

// Snapshot returns a deep copy safe to serialize outside the lock.
func (s *Store) Snapshot() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Subscribe registers fn and returns a func that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) copyListeners() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if l, ok := s.listeners[i]; ok {
			out = append(out, l)
		}
	}
	return out
}

func notify(listeners []Listener, doc *document.Document) {
	for _, l := range listeners {
		l(doc)
	}
}
