package mongodb

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phrazzld/tasksync/internal/notification"
	"github.com/phrazzld/tasksync/internal/platform/logger"
	"github.com/phrazzld/tasksync/internal/redact"
	"github.com/phrazzld/tasksync/internal/store"
)

// NotificationCollection is the subset of *mongo.Collection used by
// MongoNotificationStore.
type NotificationCollection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

var _ NotificationCollection = (*mongo.Collection)(nil)

// MongoNotificationStore implements notification.Store.
type MongoNotificationStore struct {
	coll   NotificationCollection
	logger *slog.Logger
}

var _ notification.Store = (*MongoNotificationStore)(nil)

// NewMongoNotificationStore creates a MongoNotificationStore.
func NewMongoNotificationStore(coll NotificationCollection, log *slog.Logger) *MongoNotificationStore {
	if log == nil {
		log = slog.Default()
	}
	return &MongoNotificationStore{
		coll:   coll,
		logger: log.With("component", "mongo_notification_store"),
	}
}

// Save inserts n.
func (s *MongoNotificationStore) Save(ctx context.Context, n *notification.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.coll.InsertOne(ctx, n); err != nil {
		log.Error("failed to save notification",
			"notification_id", n.ID,
			"error", redact.Error(err))
		return store.NewStoreError("notification", "insert", "insert failed", MapError(err))
	}
	return nil
}

// List returns up to limit notifications, newest first.
func (s *MongoNotificationStore) List(ctx context.Context, limit int) ([]*notification.Notification, error) {
	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.find(ctx, "list", bson.D{}, opts)
}

// ListByTask returns all notifications for taskID, newest first.
func (s *MongoNotificationStore) ListByTask(ctx context.Context, taskID string) ([]*notification.Notification, error) {
	return s.find(ctx, "list_by_task", bson.M{"task_id": taskID}, options.Find().SetSort(newestFirst))
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}}

func (s *MongoNotificationStore) find(ctx context.Context, op string, filter interface{}, opts *options.FindOptions) ([]*notification.Notification, error) {
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, store.NewStoreError("notification", op, "query failed", MapError(err))
	}

	out := make([]*notification.Notification, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, store.NewStoreError("notification", op, "decode failed", MapError(err))
	}
	return out, nil
}

// MarkRead sets read=true on the notification with the given ID.
func (s *MongoNotificationStore) MarkRead(ctx context.Context, id string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return store.NewStoreError("notification", "mark_read", "update failed", MapError(err))
	}
	if res.MatchedCount == 0 {
		return store.NewStoreError("notification", "mark_read", "no such notification", store.ErrNotFound)
	}
	return nil
}

// CountUnread counts notifications with read=false.
func (s *MongoNotificationStore) CountUnread(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"read": false})
	if err != nil {
		return 0, store.NewStoreError("notification", "count_unread", "count failed", MapError(err))
	}
	return n, nil
}

// MarkAllRead sets read=true on every unread notification.
func (s *MongoNotificationStore) MarkAllRead(ctx context.Context) (int64, error) {
	res, err := s.coll.UpdateMany(ctx, bson.M{"read": false}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, store.NewStoreError("notification", "mark_all_read", "update failed", MapError(err))
	}
	return res.ModifiedCount, nil
}

// Delete removes the notification with the given ID.
func (s *MongoNotificationStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return store.NewStoreError("notification", "delete", "delete failed", MapError(err))
	}
	if res.DeletedCount == 0 {
		return store.NewStoreError("notification", "delete", "no such notification", store.ErrNotFound)
	}
	return nil
}

// ClearOlderThan removes notifications created before cutoff.
func (s *MongoNotificationStore) ClearOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	res, err := s.coll.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff.UTC()}})
	if err != nil {
		return 0, store.NewStoreError("notification", "clear", "delete failed", MapError(err))
	}

	log.Info("cleared old notifications", "cutoff", cutoff.UTC(), "deleted", res.DeletedCount)
	return res.DeletedCount, nil
}
