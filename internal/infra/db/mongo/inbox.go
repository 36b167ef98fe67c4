package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const inboxCollection = "availability_inbox"

// Inbox remembers which broker events a consumer group has already applied,
// so redeliveries after a rebalance do not wipe the cache twice.
type Inbox struct {
	col      *mongo.Collection
	consumer string
	now      func() time.Time
}

func NewInbox(db *mongo.Database, consumer string) *Inbox {
	return &Inbox{col: db.Collection(inboxCollection), consumer: consumer, now: time.Now}
}

func (i *Inbox) EnsureIndexes(ctx context.Context) error {
	_, err := i.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "consumer", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("inbox index: %w", err)
	}
	return nil
}

// Seen records eventID and reports whether it had been recorded before.
func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	doc := bson.M{"event_id": eventID, "consumer": i.consumer, "received_at": i.now().UTC()}
	if _, err := i.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// Forget drops eventID so a failed event can be applied on redelivery.
func (i *Inbox) Forget(ctx context.Context, eventID string) error {
	_, err := i.col.DeleteOne(ctx, bson.M{"event_id": eventID, "consumer": i.consumer})
	return err
}
