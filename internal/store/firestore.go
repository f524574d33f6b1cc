package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultFirestoreCollection holds one document per key.
const DefaultFirestoreCollection = "demobankStorage"

// firestoreEntry is the document shape for a stored value.
// NOTE: Field names must match Go struct field names (PascalCase) as that's how Firestore serializes them
type firestoreEntry struct {
	Value     []byte
	UpdatedAt time.Time
}

// FirestoreStore implements the Store interface using Firestore
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore creates a new Firestore-backed store
func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = DefaultFirestoreCollection
	}
	return &FirestoreStore{
		client:     client,
		collection: collection,
	}
}

// Get retrieves a value from Firestore
func (s *FirestoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := s.client.Collection(s.collection).Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}

	var entry firestoreEntry
	if err := doc.DataTo(&entry); err != nil {
		return nil, fmt.Errorf("failed to parse entry %q: %w", key, err)
	}
	return entry.Value, nil
}

// Set writes a value to Firestore
func (s *FirestoreStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.client.Collection(s.collection).Doc(key).Set(ctx, firestoreEntry{
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	})
	if status.Code(err) == codes.ResourceExhausted {
		return fmt.Errorf("set %q: %w: %v", key, ErrQuotaExceeded, err)
	}
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes a value from Firestore
func (s *FirestoreStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Collection(s.collection).Doc(key).Delete(ctx); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
