package document

import "sync"

// Store tracks open documents by URI for the LSP server.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

// Open registers a document under uri, replacing any previous entry.
func (s *Store) Open(uri, path, text string, version int32) *Document {
	doc := New(path, text)
	doc.SetVersion(version)
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

// Get returns the document for uri, if open.
func (s *Store) Get(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

// Close removes the document for uri and returns it, if it was open.
func (s *Store) Close(uri string) (*Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if ok {
		delete(s.docs, uri)
	}
	return doc, ok
}

// All returns a snapshot of the open documents keyed by URI.
func (s *Store) All() map[string]*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*Document, len(s.docs))
	for uri, doc := range s.docs {
		out[uri] = doc
	}
	return out
}

// Len returns the number of open documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
