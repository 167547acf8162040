package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	profile, err := json.Marshal(toUserRecord(user))
	if err != nil {
		return err
	}

	keys := []string{usernameIndexKey(user.Username), userKey(user.ID), usersIndexKey()}
	created, err := createUserScript.Run(ctx, s.client, keys,
		string(user.ID), profile, string(user.Role), boolField(user.IsApproved), user.Username, timeScore(user.CreatedAt),
	).Int()
	if err != nil {
		return err
	}
	if created == 0 {
		return model.ErrUsernameTaken
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	pipe := s.client.Pipeline()
	fields := pipe.HGetAll(ctx, userKey(id))
	emotions := pipe.LRange(ctx, userEmotionsKey(id), 0, -1)
	plays := pipe.LRange(ctx, userGamePlaysKey(id), 0, -1)
	suggestions := pipe.LRange(ctx, userSuggestionsKey(id), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	if len(fields.Val()) == 0 {
		return nil, model.ErrUserNotFound
	}

	var rec userRecord
	if err := json.Unmarshal([]byte(fields.Val()["profile"]), &rec); err != nil {
		return nil, err
	}
	user := rec.toModel(fields.Val()["approved"] == "1")

	for _, raw := range emotions.Val() {
		var e emotionRecord
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		user.Emotions = append(user.Emotions, model.EmotionLog(e))
	}
	for _, raw := range plays.Val() {
		var p gamePlayRecord
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, err
		}
		user.GamePlays = append(user.GamePlays, model.GamePlay(p))
	}
	user.SuggestedGames = append(user.SuggestedGames, suggestions.Val()...)

	return user, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	id, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetUser(ctx, model.UserID(id))
}

func (s *Storage) ListUsers(ctx context.Context, filter model.UserFilter) ([]*model.User, error) {
	ids, err := s.client.ZRange(ctx, usersIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	result := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.GetUser(ctx, model.UserID(id))
		if errors.Is(err, model.ErrUserNotFound) {
			continue // deleted since the index was read
		}
		if err != nil {
			return nil, err
		}
		if filter.Matches(user) {
			result = append(result, user)
		}
	}
	return result, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	keys := []string{userKey(id), userEmotionsKey(id), userGamePlaysKey(id), userSuggestionsKey(id), usersIndexKey()}
	deleted, err := deleteUserScript.Run(ctx, s.client, keys, string(id), usernameIndexPrefix()).Int()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (s *Storage) AppendEmotion(ctx context.Context, id model.UserID, entry model.EmotionLog) error {
	data, err := json.Marshal(emotionRecord(entry))
	if err != nil {
		return err
	}
	return s.appendIfExists(ctx, id, userEmotionsKey(id), string(data))
}

func (s *Storage) AppendGamePlay(ctx context.Context, id model.UserID, entry model.GamePlay) error {
	data, err := json.Marshal(gamePlayRecord(entry))
	if err != nil {
		return err
	}
	return s.appendIfExists(ctx, id, userGamePlaysKey(id), string(data))
}

func (s *Storage) AppendSuggestedGame(ctx context.Context, id model.UserID, gameName string) error {
	return s.appendIfExists(ctx, id, userSuggestionsKey(id), gameName)
}

func (s *Storage) appendIfExists(ctx context.Context, id model.UserID, listKey, value string) error {
	appended, err := appendIfExistsScript.Run(ctx, s.client, []string{userKey(id), listKey}, value).Int()
	if err != nil {
		return err
	}
	if appended == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (s *Storage) ApproveTherapist(ctx context.Context, username string) (*model.User, error) {
	id, err := approveTherapistScript.Run(ctx, s.client, []string{usernameIndexKey(username)}, userKeyPrefix()).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrTherapistNotFound
		}
		return nil, err
	}
	return s.GetUser(ctx, model.UserID(id))
}

// Session operations

func (s *Storage) RecordObservation(ctx context.Context, obs model.Observation, newSession *model.GameSession) (*model.GameSession, error) {
	meta, err := json.Marshal(toSessionRecord(newSession))
	if err != nil {
		return nil, err
	}
	question, err := json.Marshal(questionRecord(obs.Question))
	if err != nil {
		return nil, err
	}

	finalScore := ""
	if obs.FinalScore != nil {
		finalScore = strconv.Itoa(*obs.FinalScore)
	}

	keys := []string{
		openSessionKey(obs.UserID, obs.GameName, obs.OpenKey()),
		sessionKey(newSession.ID),
		sessionQuestionsKey(newSession.ID),
		userSessionsIndexKey(newSession.UserID),
	}
	id, err := recordObservationScript.Run(ctx, s.client, keys,
		string(newSession.ID), meta, timeScore(newSession.Timestamp), question,
		finalScore, boolField(obs.Completes()), sessionKeyPrefix(), questionsSuffix,
	).Text()
	if err != nil {
		return nil, err
	}

	return s.GetSession(ctx, model.SessionID(id))
}

func (s *Storage) SaveSession(ctx context.Context, session *model.GameSession) error {
	meta, err := json.Marshal(toSessionRecord(session))
	if err != nil {
		return err
	}

	questions := make([]any, 0, len(session.Questions))
	for _, q := range session.Questions {
		data, err := json.Marshal(questionRecord(q))
		if err != nil {
			return err
		}
		questions = append(questions, string(data))
	}

	// MULTI/EXEC so readers never see a half-written session
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey(session.ID), "meta", meta)
		if session.FinalScore != nil {
			pipe.HSet(ctx, sessionKey(session.ID), "final_score", *session.FinalScore)
		} else {
			pipe.HDel(ctx, sessionKey(session.ID), "final_score")
		}
		pipe.Del(ctx, sessionQuestionsKey(session.ID))
		if len(questions) > 0 {
			pipe.RPush(ctx, sessionQuestionsKey(session.ID), questions...)
		}
		pipe.ZAdd(ctx, userSessionsIndexKey(session.UserID), redis.Z{
			Score:  timeScore(session.Timestamp),
			Member: string(session.ID),
		})
		return nil
	})
	return err
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.GameSession, error) {
	sessions, err := s.getSessions(ctx, []string{string(id)})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, model.ErrSessionNotFound
	}
	return sessions[0], nil
}

func (s *Storage) ListSessionsForUser(ctx context.Context, userID model.UserID) ([]*model.GameSession, error) {
	// Sorted set order is (score, member), which is (timestamp, id)
	ids, err := s.client.ZRange(ctx, userSessionsIndexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return s.getSessions(ctx, ids)
}

// getSessions loads sessions in the given order, skipping missing ids
func (s *Storage) getSessions(ctx context.Context, ids []string) ([]*model.GameSession, error) {
	result := make([]*model.GameSession, 0, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	pipe := s.client.Pipeline()
	hashes := make([]*redis.MapStringStringCmd, len(ids))
	lists := make([]*redis.StringSliceCmd, len(ids))
	for i, id := range ids {
		hashes[i] = pipe.HGetAll(ctx, sessionKey(model.SessionID(id)))
		lists[i] = pipe.LRange(ctx, sessionQuestionsKey(model.SessionID(id)), 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	for i := range ids {
		fields := hashes[i].Val()
		if fields["meta"] == "" {
			continue
		}
		session, err := decodeSession(fields, lists[i].Val())
		if err != nil {
			return nil, err
		}
		result = append(result, session)
	}
	return result, nil
}

func decodeSession(fields map[string]string, rawQuestions []string) (*model.GameSession, error) {
	var rec sessionRecord
	if err := json.Unmarshal([]byte(fields["meta"]), &rec); err != nil {
		return nil, err
	}

	session := &model.GameSession{
		ID:            model.SessionID(rec.ID),
		UserID:        model.UserID(rec.UserID),
		GameName:      rec.GameName,
		PlaythroughID: rec.PlaythroughID,
		Questions:     make([]model.Question, 0, len(rawQuestions)),
		Timestamp:     rec.Timestamp,
	}
	for _, raw := range rawQuestions {
		var q questionRecord
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, err
		}
		session.Questions = append(session.Questions, model.Question(q))
	}
	if raw, ok := fields["final_score"]; ok {
		score, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("session %s final score: %w", rec.ID, err)
		}
		session.FinalScore = &score
	}
	return session, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
