package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"campusmart/internal/domain/entity"
	"campusmart/pkg/logger"
)

// FirestoreMessageWatcher turns a collection-group listener over offer messages into
// before/after change events.
type FirestoreMessageWatcher struct {
	client *firestore.Client
}

func NewFirestoreMessageWatcher(client *firestore.Client) *FirestoreMessageWatcher {
	return &FirestoreMessageWatcher{client: client}
}

// Watch blocks until ctx is done or the listener fails. The first snapshot only seeds
// the previous state of every offer; changes are reported from then on.
func (w *FirestoreMessageWatcher) Watch(ctx context.Context, fn func(entity.MessageChange)) error {
	it := w.client.CollectionGroup(messagesCollection).
		Where("isOffer", "==", true).
		Snapshots(ctx)
	defer it.Stop()

	last := make(map[string]*entity.Message)
	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return ctx.Err()
			}
			return storeError("Message listener failed", err)
		}

		for _, change := range snap.Changes {
			key := change.Doc.Ref.Path
			if change.Kind == firestore.DocumentRemoved {
				delete(last, key)
				continue
			}

			var msg entity.Message
			if err := change.Doc.DataTo(&msg); err != nil {
				logger.Warn("Skipping unreadable message %s: %v", key, err)
				continue
			}
			before := last[key]
			last[key] = &msg

			if change.Kind != firestore.DocumentModified {
				continue
			}
			fn(entity.MessageChange{
				ConversationID: change.Doc.Ref.Parent.Parent.ID,
				MessageID:      change.Doc.Ref.ID,
				Before:         before,
				After:          &msg,
			})
		}
	}
}
