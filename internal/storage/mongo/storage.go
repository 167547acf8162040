package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/storage"
)

// Storage is a MongoDB-backed implementation of the storage interface
type Storage struct {
	client   *mongo.Client
	users    *mongo.Collection
	sessions *mongo.Collection
}

// New connects to MongoDB and ensures the indexes exist
func New(ctx context.Context, cfg Config) (*Storage, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := NewWithClient(client, cfg.Database)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewWithClient creates a storage over an existing client
func NewWithClient(client *mongo.Client, database string) *Storage {
	db := client.Database(database)
	return &Storage{
		client:   client,
		users:    db.Collection(usersCollection),
		sessions: db.Collection(sessionsCollection),
	}
}

// EnsureIndexes creates the unique indexes the store's atomicity relies on
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = s.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "gameName", Value: 1}, {Key: "openKey", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "openKey", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("gameSessions indexes: %w", err)
	}
	return nil
}

// Close disconnects the client
func (s *Storage) Close() error {
	return s.client.Disconnect(context.Background())
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	_, err := s.users.InsertOne(ctx, toUserDocument(user))
	if mongo.IsDuplicateKeyError(err) {
		return model.ErrUsernameTaken
	}
	return err
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.findUser(ctx, bson.D{{Key: "_id", Value: string(id)}})
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(ctx, bson.D{{Key: "username", Value: username}})
}

func (s *Storage) findUser(ctx context.Context, filter bson.D) (*model.User, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *Storage) ListUsers(ctx context.Context, filter model.UserFilter) ([]*model.User, error) {
	query := bson.D{}
	if filter.Role != "" {
		query = append(query, bson.E{Key: "role", Value: string(filter.Role)})
	}
	if filter.Approved != nil {
		query = append(query, bson.E{Key: "isApproved", Value: *filter.Approved})
	}
	if filter.ParentName != "" {
		query = append(query, bson.E{Key: "parentName", Value: filter.ParentName})
	}
	if filter.ParentContact != "" {
		query = append(query, bson.E{Key: "parentContact", Value: filter.ParentContact})
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.users.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	result := make([]*model.User, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.toModel())
	}
	return result, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	res, err := s.users.DeleteOne(ctx, bson.D{{Key: "_id", Value: string(id)}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (s *Storage) AppendEmotion(ctx context.Context, id model.UserID, entry model.EmotionLog) error {
	return s.pushToUser(ctx, id, "emotions", emotionDocument(entry))
}

func (s *Storage) AppendGamePlay(ctx context.Context, id model.UserID, entry model.GamePlay) error {
	return s.pushToUser(ctx, id, "gamePlays", gamePlayDocument(entry))
}

func (s *Storage) AppendSuggestedGame(ctx context.Context, id model.UserID, gameName string) error {
	return s.pushToUser(ctx, id, "suggestedGames", gameName)
}

func (s *Storage) pushToUser(ctx context.Context, id model.UserID, field string, value any) error {
	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: string(id)}},
		bson.D{{Key: "$push", Value: bson.D{{Key: field, Value: value}}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (s *Storage) ApproveTherapist(ctx context.Context, username string) (*model.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	err := s.users.FindOneAndUpdate(ctx,
		bson.D{{Key: "username", Value: username}, {Key: "role", Value: string(model.RoleTherapist)}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "isApproved", Value: true}}}},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrTherapistNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

// Session operations

func (s *Storage) RecordObservation(ctx context.Context, obs model.Observation, newSession *model.GameSession) (*model.GameSession, error) {
	filter := bson.D{
		{Key: "userId", Value: string(obs.UserID)},
		{Key: "gameName", Value: obs.GameName},
		{Key: "openKey", Value: obs.OpenKey()},
	}

	onInsert := bson.D{
		{Key: "_id", Value: string(newSession.ID)},
		{Key: "timestamp", Value: newSession.Timestamp},
	}
	if newSession.PlaythroughID != "" {
		onInsert = append(onInsert, bson.E{Key: "playthroughId", Value: newSession.PlaythroughID})
	}

	update := bson.D{
		{Key: "$setOnInsert", Value: onInsert},
		{Key: "$push", Value: bson.D{{Key: "questions", Value: questionDocument(obs.Question)}}},
	}
	if obs.FinalScore != nil {
		update = append(update, bson.E{Key: "$set", Value: bson.D{{Key: "finalScore", Value: *obs.FinalScore}}})
	}
	if obs.Completes() {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "openKey", Value: ""}}})
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc sessionDocument
	err := s.sessions.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent upsert inserted the open session first; it is
		// visible now, so the second attempt updates it.
		err = s.sessions.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *Storage) SaveSession(ctx context.Context, session *model.GameSession) error {
	_, err := s.sessions.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: string(session.ID)}},
		toSessionDocument(session),
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.GameSession, error) {
	var doc sessionDocument
	if err := s.sessions.FindOne(ctx, bson.D{{Key: "_id", Value: string(id)}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *Storage) ListSessionsForUser(ctx context.Context, userID model.UserID) ([]*model.GameSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.sessions.Find(ctx, bson.D{{Key: "userId", Value: string(userID)}}, opts)
	if err != nil {
		return nil, err
	}

	var docs []sessionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	result := make([]*model.GameSession, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.toModel())
	}
	return result, nil
}
