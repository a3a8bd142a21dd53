package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Default collection names.
const (
	NotificationsCollection = "notifications"
	UsersCollection         = "users"
)

// MongoStorage stores notifications as one document each, with channel
// state embedded under "channels.<name>". Channel updates are targeted $set
// writes guarded by the allowed source statuses, so concurrent writers to
// different channels never clobber each other.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage creates storage on the given database.
func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{coll: db.Collection(NotificationsCollection)}
}

// EnsureIndexes creates the indexes used by user timelines and status dashboards.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{
			{Key: "channels.push.status", Value: 1},
			{Key: "channels.email.status", Value: 1},
			{Key: "createdAt", Value: -1},
		}},
		{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "body", Value: "text"}}},
	})
	if err != nil {
		return errors.Join(ErrStorageFailure, fmt.Errorf("create indexes: %w", err))
	}
	return nil
}

func (s *MongoStorage) Insert(ctx context.Context, n Notification) error {
	if n.ID == "" {
		return errors.New("notification ID is required")
	}

	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}

	if _, err := s.coll.InsertOne(ctx, n); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrNotificationExists, n.ID)
		}
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

func (s *MongoStorage) Get(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return &n, nil
}

func (s *MongoStorage) UpdateChannel(ctx context.Context, id string, ch Channel, u ChannelUpdate) error {
	prefix := "channels." + string(ch) + "."
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: prefix + "status", Value: bson.D{{Key: "$in", Value: u.Sources()}}},
	}
	set, unset := channelUpdateDoc(prefix, u)
	set = append(set, bson.E{Key: "updatedAt", Value: time.Now().UTC()})

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: tell a missing document apart from a refused transition.
	n, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	current, ok := n.Channels[ch]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, ch)
	}
	return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, ch, current.Status, u.Status)
}

func channelUpdateDoc(prefix string, u ChannelUpdate) (set, unset bson.D) {
	set = bson.D{{Key: prefix + "status", Value: u.Status}}
	add := func(field string, v any) { set = append(set, bson.E{Key: prefix + field, Value: v}) }

	if u.Attempts != nil {
		add("attempts", *u.Attempts)
	}
	if u.Provider != nil {
		add("provider", *u.Provider)
	}
	if u.SentAt != nil {
		add("sentAt", u.SentAt.UTC())
	}
	if u.DeliveredAt != nil {
		add("deliveredAt", u.DeliveredAt.UTC())
	}
	if u.ReadAt != nil {
		add("readAt", u.ReadAt.UTC())
	}
	if u.Error != nil && !u.ClearError {
		add("error", *u.Error)
	}
	if u.MessageID != nil {
		add("messageId", *u.MessageID)
	}
	if u.DeviceCount != nil {
		add("deviceCount", *u.DeviceCount)
	}
	if u.SuccessCount != nil {
		add("successCount", *u.SuccessCount)
	}
	if u.FailureCount != nil {
		add("failureCount", *u.FailureCount)
	}

	if u.ClearError {
		unset = append(unset, bson.E{Key: prefix + "error", Value: ""})
	}
	if u.ClearSentAt {
		unset = append(unset, bson.E{Key: prefix + "sentAt", Value: ""})
	}
	return set, unset
}

// MongoUserDirectory reads recipients from the users collection. Ids may be
// stored either as strings or as ObjectIDs.
type MongoUserDirectory struct {
	coll *mongo.Collection
}

// NewMongoUserDirectory creates a directory on the given database.
func NewMongoUserDirectory(db *mongo.Database) *MongoUserDirectory {
	return &MongoUserDirectory{coll: db.Collection(UsersCollection)}
}

type mongoUser struct {
	Email   string   `bson:"email"`
	Name    string   `bson:"name"`
	Devices []Device `bson:"devices"`
}

func (d *MongoUserDirectory) GetUser(ctx context.Context, id string) (*User, error) {
	ids := bson.A{id}
	if oid, err := bson.ObjectIDFromHex(id); err == nil {
		ids = append(ids, oid)
	}

	var doc mongoUser
	err := d.coll.FindOne(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}

	return &User{ID: id, Email: doc.Email, Name: doc.Name, Devices: doc.Devices}, nil
}
