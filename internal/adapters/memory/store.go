// Package memory is an in-process document store used by tests and local
// runs. It keeps documents as JSON so it behaves like the CockroachDB store.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/store"
)

type Store struct {
	mu          sync.Mutex
	collections map[string]map[string][]byte
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{collections: make(map[string]map[string][]byte)}
}

func (s *Store) load(collection, id string) (store.JSONDoc, error) {
	raw, ok := s.collections[collection][id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "%s/%s", collection, id)
	}
	var doc store.JSONDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "decode document")
	}
	return doc, nil
}

func (s *Store) save(collection string, doc store.JSONDoc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encode document")
	}
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string][]byte)
		s.collections[collection] = coll
	}
	coll[doc.ID()] = raw
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(collection, id)
	if err != nil {
		return err
	}
	return doc.Decode(out)
}

func (s *Store) Create(ctx context.Context, collection string, v interface{}) (string, error) {
	doc, err := store.ToJSONDoc(v)
	if err != nil {
		return "", err
	}
	id := doc.ID()
	if id == "" {
		id = uuid.New().String()
		doc[store.IDField] = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.collections[collection][id]; exists {
		return "", errors.Wrapf(domain.ErrConflict, "%s/%s already exists", collection, id)
	}
	return id, s.save(collection, doc)
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(collection, id)
	if err != nil {
		return err
	}
	if err := doc.Merge(fields); err != nil {
		return err
	}
	doc[store.IDField] = id
	return s.save(collection, doc)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "%s/%s", collection, id)
	}
	delete(s.collections[collection], id)
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, filters []store.Filter, order []store.Order, out interface{}) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.collections[collection]))
	for id := range s.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]store.JSONDoc, 0, len(ids))
	for _, id := range ids {
		doc, err := s.load(collection, id)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		ok, err := store.Match(doc, filters)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		if ok {
			docs = append(docs, doc)
		}
	}
	s.mu.Unlock()

	store.SortDocs(docs, order)
	return store.DecodeAll(docs, out)
}

func (s *Store) ClaimSeat(ctx context.Context, tripID string, seat int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(domain.CollectionTrips, tripID)
	if err != nil {
		return err
	}
	if err := doc.ClaimSeat(seat); err != nil {
		return err
	}
	return s.save(domain.CollectionTrips, doc)
}

func (s *Store) ReleaseSeat(ctx context.Context, tripID string, seat int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(domain.CollectionTrips, tripID)
	if err != nil {
		return err
	}
	doc.ReleaseSeat(seat)
	return s.save(domain.CollectionTrips, doc)
}
