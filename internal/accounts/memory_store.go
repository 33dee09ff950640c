package accounts

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore keeps account documents in process. It backs ACCOUNT_STORE=memory
// for local development.
type MemoryStore struct {
	mu     sync.Mutex
	docs   map[string]map[string]any
	merges int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]any)}
}

// Seed replaces the document for uid, as if created by signup.
func (s *MemoryStore) Seed(uid string, doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uid] = maps.Clone(doc)
}

// Document returns a copy of the raw document for uid, or nil.
func (s *MemoryStore) Document(uid string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uid]
	if !ok {
		return nil
	}
	return maps.Clone(doc)
}

// Merges reports how many merge-writes have been applied.
func (s *MemoryStore) Merges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merges
}

func (s *MemoryStore) Merge(ctx context.Context, uid string, patch Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uid]
	if !ok {
		doc = make(map[string]any, len(patch))
		s.docs[uid] = doc
	}
	maps.Copy(doc, patch.Document())
	s.merges++
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, uid string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uid]
	if !ok {
		return nil, ErrNotFound
	}
	acct := &Account{UID: uid}
	patch := Patch{}
	for _, field := range []Field{FieldUpgraded, FieldCustomerRef, FieldSubscriptionRef, FieldUpdatedAt} {
		if v, ok := doc[string(field)]; ok {
			patch[field] = v
		}
	}
	patch.Apply(acct)
	return acct, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}
