package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const firestoreCollection = "deal_state"

// stateDoc is the Firestore document holding one blob.
type stateDoc struct {
	Data      []byte    `firestore:"data"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// FirestoreStore keeps each blob in its own document. A document Set replaces
// the whole document in one write.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the firestore backend")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (c *FirestoreStore) Close() error {
	return c.client.Close()
}

func (c *FirestoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := c.client.Collection(firestoreCollection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get state %s: %w", key, err)
	}
	if !doc.Exists() {
		return nil, ErrNotFound
	}

	var sd stateDoc
	if err := doc.DataTo(&sd); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state %s: %w", key, err)
	}
	return sd.Data, nil
}

func (c *FirestoreStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := c.client.Collection(firestoreCollection).Doc(key).Set(ctx, stateDoc{
		Data:      data,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to set state %s: %w", key, err)
	}
	return nil
}
