package notifications_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()

	url := os.Getenv("MONGODB_URL")
	if url == "" {
		t.Skip("MONGODB_URL not set")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(url))
	require.NoError(t, err)

	db := client.Database("notifykit_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx := context.Background()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestMongoStorage(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()

	s := notifications.NewMongoStorage(db)
	require.NoError(t, s.EnsureIndexes(ctx))

	n := newNotification(uuid.NewString())
	n.Metadata = map[string]any{"orderId": "o-1"}
	require.NoError(t, s.Insert(ctx, n))
	assert.ErrorIs(t, s.Insert(ctx, n), notifications.ErrNotificationExists)

	sentAt := time.Now()
	require.NoError(t, s.UpdateChannel(ctx, n.ID, notifications.ChannelEmail, notifications.ChannelUpdate{
		Status:   notifications.StatusSent,
		Attempts: notifications.Ptr(1),
		SentAt:   &sentAt,
		Error:    notifications.Ptr("previous"),
	}))
	require.NoError(t, s.UpdateChannel(ctx, n.ID, notifications.ChannelPush, notifications.ChannelUpdate{
		Status: notifications.StatusSkipped,
		Error:  notifications.Ptr("no devices registered"),
	}))

	got, err := s.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, notifications.StatusSent, got.Channels[notifications.ChannelEmail].Status)
	assert.Equal(t, "postmark", got.Channels[notifications.ChannelEmail].Provider)
	assert.Equal(t, notifications.StatusSkipped, got.Channels[notifications.ChannelPush].Status)
	assert.Equal(t, "o-1", got.Metadata["orderId"])

	err = s.UpdateChannel(ctx, n.ID, notifications.ChannelPush, notifications.ChannelUpdate{Status: notifications.StatusDelivered})
	assert.ErrorIs(t, err, notifications.ErrInvalidTransition)
	err = s.UpdateChannel(ctx, n.ID, notifications.ChannelPush, notifications.ChannelUpdate{
		Status: notifications.StatusPending,
		Error:  notifications.Ptr("late retry"),
	})
	assert.ErrorIs(t, err, notifications.ErrInvalidTransition, "only a reset reopens a skipped channel")

	require.NoError(t, s.UpdateChannel(ctx, n.ID, notifications.ChannelEmail, notifications.ResetUpdate()))
	got, err = s.Get(ctx, n.ID)
	require.NoError(t, err)
	email := got.Channels[notifications.ChannelEmail]
	assert.Equal(t, notifications.StatusPending, email.Status)
	assert.Empty(t, email.Error)
	assert.Nil(t, email.SentAt)
	assert.Equal(t, 1, email.Attempts)

	err = s.UpdateChannel(ctx, "missing", notifications.ChannelPush, notifications.ResetUpdate())
	assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
}

func TestMongoUserDirectory(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()

	oid := bson.NewObjectID()
	_, err := db.Collection(notifications.UsersCollection).InsertMany(ctx, []any{
		bson.D{{Key: "_id", Value: oid}, {Key: "email", Value: "a@example.com"}, {Key: "name", Value: "Ann"}},
		bson.D{{Key: "_id", Value: "u2"}, {Key: "devices", Value: bson.A{
			bson.D{{Key: "deviceId", Value: "d1"}, {Key: "token", Value: "t1"}, {Key: "platform", Value: "ios"}},
		}}},
	})
	require.NoError(t, err)

	d := notifications.NewMongoUserDirectory(db)

	u, err := d.GetUser(ctx, oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)
	assert.False(t, u.HasDevices())

	u, err = d.GetUser(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, u.Devices, 1)
	assert.Equal(t, "t1", u.Devices[0].Token)

	_, err = d.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, notifications.ErrUserNotFound)
}
