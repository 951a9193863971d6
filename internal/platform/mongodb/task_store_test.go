package mongodb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/platform/logger"
	"github.com/phrazzld/tasksync/internal/platform/mongodb"
	"github.com/phrazzld/tasksync/internal/store"
)

var errServerSelection = errors.New("server selection error: context deadline exceeded, current topology: { Type: Unknown }")

var duplicateKeyErr = mongo.WriteException{
	WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error collection: todo.tasks index: _id_"}},
}

// fakeCollection is an in-memory stand-in for *mongo.Collection.
type fakeCollection struct {
	docs    []bson.D
	err     error
	matched int64
	deleted int64

	lastFilter      interface{}
	lastDocument    interface{}
	lastReplacement interface{}
	lastUpdate      interface{}
	lastFindOpts    []*options.FindOptions
}

func (c *fakeCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	c.lastFilter = filter
	c.lastFindOpts = opts
	if c.err != nil {
		return nil, c.err
	}
	docs := make([]interface{}, len(c.docs))
	for i, d := range c.docs {
		docs[i] = d
	}
	return mongo.NewCursorFromDocuments(docs, nil, nil)
}

func (c *fakeCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	c.lastFilter = filter
	if c.err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, c.err, nil)
	}
	if len(c.docs) == 0 {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(c.docs[0], nil, nil)
}

func (c *fakeCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	c.lastDocument = document
	if c.err != nil {
		return nil, c.err
	}
	return &mongo.InsertOneResult{}, nil
}

func (c *fakeCollection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	c.lastFilter = filter
	c.lastReplacement = replacement
	if c.err != nil {
		return nil, c.err
	}
	return &mongo.UpdateResult{MatchedCount: c.matched, ModifiedCount: c.matched}, nil
}

func (c *fakeCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	c.lastFilter = filter
	c.lastUpdate = update
	if c.err != nil {
		return nil, c.err
	}
	return &mongo.UpdateResult{MatchedCount: c.matched, ModifiedCount: c.matched}, nil
}

func (c *fakeCollection) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	c.lastFilter = filter
	c.lastUpdate = update
	if c.err != nil {
		return nil, c.err
	}
	return &mongo.UpdateResult{MatchedCount: c.matched, ModifiedCount: c.matched}, nil
}

func (c *fakeCollection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.lastFilter = filter
	if c.err != nil {
		return nil, c.err
	}
	return &mongo.DeleteResult{DeletedCount: c.deleted}, nil
}

func (c *fakeCollection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.lastFilter = filter
	if c.err != nil {
		return nil, c.err
	}
	return &mongo.DeleteResult{DeletedCount: c.deleted}, nil
}

func (c *fakeCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	c.lastFilter = filter
	if c.err != nil {
		return 0, c.err
	}
	return int64(len(c.docs)), nil
}

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context, *readpref.ReadPref) error {
	return p.err
}

func taskDoc(id, description string, completed bool) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "description", Value: description},
		{Key: "isCompleted", Value: completed},
	}
}

func newStore(t *testing.T, coll *fakeCollection) *mongodb.MongoTaskStore {
	t.Helper()
	log, _ := logger.GetTestLogger(t)
	return mongodb.NewMongoTaskStore(coll, fakePinger{}, log)
}

func TestMongoTaskStore_FindAll(t *testing.T) {
	t.Run("returns tasks in collection order", func(t *testing.T) {
		coll := &fakeCollection{docs: []bson.D{
			taskDoc("t-2", "walk dog", true),
			taskDoc("t-1", "buy milk", false),
		}}

		tasks, err := newStore(t, coll).FindAll(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []*domain.Task{
			{ID: "t-2", Description: "walk dog", IsCompleted: true},
			{ID: "t-1", Description: "buy milk", IsCompleted: false},
		}, tasks)
	})

	t.Run("empty collection yields empty slice", func(t *testing.T) {
		tasks, err := newStore(t, &fakeCollection{}).FindAll(context.Background())

		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	})

	t.Run("query failure is store unavailable", func(t *testing.T) {
		tasks, err := newStore(t, &fakeCollection{err: errServerSelection}).FindAll(context.Background())

		assert.Nil(t, tasks)
		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "find_all", storeErr.Operation)
	})
}

func TestMongoTaskStore_FindByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		coll := &fakeCollection{docs: []bson.D{taskDoc("t-1", "buy milk", false)}}

		task, err := newStore(t, coll).FindByID(context.Background(), "t-1")

		require.NoError(t, err)
		assert.Equal(t, &domain.Task{ID: "t-1", Description: "buy milk"}, task)
		assert.Equal(t, bson.M{"_id": "t-1"}, coll.lastFilter)
	})

	t.Run("not found", func(t *testing.T) {
		task, err := newStore(t, &fakeCollection{}).FindByID(context.Background(), "missing")

		assert.Nil(t, task)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("store unavailable", func(t *testing.T) {
		task, err := newStore(t, &fakeCollection{err: errServerSelection}).FindByID(context.Background(), "t-1")

		assert.Nil(t, task)
		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
		assert.False(t, store.IsNotFoundError(err))
	})
}

func TestMongoTaskStore_Insert(t *testing.T) {
	task := &domain.Task{ID: "t-1", Description: "buy milk"}

	t.Run("inserts document", func(t *testing.T) {
		coll := &fakeCollection{}

		require.NoError(t, newStore(t, coll).Insert(context.Background(), task))
		assert.Same(t, task, coll.lastDocument)
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := newStore(t, &fakeCollection{err: duplicateKeyErr}).Insert(context.Background(), task)

		assert.ErrorIs(t, err, store.ErrTaskExists)
		assert.True(t, store.IsDuplicateError(err))
	})

	t.Run("invalid task is rejected before the store", func(t *testing.T) {
		coll := &fakeCollection{}

		err := newStore(t, coll).Insert(context.Background(), &domain.Task{ID: "t-1", Description: "  "})

		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.ErrorIs(t, err, domain.ErrEmptyDescription)
		assert.Nil(t, coll.lastDocument)
	})

	t.Run("store unavailable", func(t *testing.T) {
		err := newStore(t, &fakeCollection{err: errServerSelection}).Insert(context.Background(), task)

		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	})
}

func TestMongoTaskStore_Replace(t *testing.T) {
	task := &domain.Task{ID: "t-1", Description: "buy oat milk", IsCompleted: true}

	t.Run("replaces matching document", func(t *testing.T) {
		coll := &fakeCollection{matched: 1}

		require.NoError(t, newStore(t, coll).Replace(context.Background(), task))
		assert.Equal(t, bson.M{"_id": "t-1"}, coll.lastFilter)
		assert.Same(t, task, coll.lastReplacement)
	})

	t.Run("no match is not found", func(t *testing.T) {
		err := newStore(t, &fakeCollection{matched: 0}).Replace(context.Background(), task)

		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("store unavailable", func(t *testing.T) {
		err := newStore(t, &fakeCollection{err: errServerSelection}).Replace(context.Background(), task)

		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	})
}

func TestMongoTaskStore_Delete(t *testing.T) {
	t.Run("deletes matching document", func(t *testing.T) {
		coll := &fakeCollection{deleted: 1}

		require.NoError(t, newStore(t, coll).Delete(context.Background(), "t-1"))
		assert.Equal(t, bson.M{"_id": "t-1"}, coll.lastFilter)
	})

	t.Run("nothing deleted is not found", func(t *testing.T) {
		err := newStore(t, &fakeCollection{deleted: 0}).Delete(context.Background(), "missing")

		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("store unavailable", func(t *testing.T) {
		err := newStore(t, &fakeCollection{err: errServerSelection}).Delete(context.Background(), "t-1")

		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	})
}

func TestMongoTaskStore_Ping(t *testing.T) {
	log, _ := logger.GetTestLogger(t)

	ok := mongodb.NewMongoTaskStore(&fakeCollection{}, fakePinger{}, log)
	assert.NoError(t, ok.Ping(context.Background()))

	down := mongodb.NewMongoTaskStore(&fakeCollection{}, fakePinger{err: errServerSelection}, log)
	assert.ErrorIs(t, down.Ping(context.Background()), store.ErrStoreUnavailable)

	noPinger := mongodb.NewMongoTaskStore(&fakeCollection{}, nil, log)
	assert.NoError(t, noPinger.Ping(context.Background()))
}
