package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	users         map[model.UserID]*model.User
	usernameIndex map[string]model.UserID
	sessions      map[model.SessionID]*model.GameSession
	userSessions  map[model.UserID][]model.SessionID
	openSessions  map[openKey]model.SessionID
}

type openKey struct {
	userID   model.UserID
	gameName string
	key      string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:         make(map[model.UserID]*model.User),
		usernameIndex: make(map[string]model.UserID),
		sessions:      make(map[model.SessionID]*model.GameSession),
		userSessions:  make(map[model.UserID][]model.SessionID),
		openSessions:  make(map[openKey]model.SessionID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usernameIndex[user.Username]; ok {
		return model.ErrUsernameTaken
	}
	s.users[user.ID] = user.Clone()
	s.usernameIndex[user.Username] = user.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return user.Clone(), nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return s.users[id].Clone(), nil
}

func (s *Storage) ListUsers(ctx context.Context, filter model.UserFilter) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*model.User, 0)
	for _, user := range s.users {
		if filter.Matches(user) {
			result = append(result, user.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	delete(s.usernameIndex, user.Username)
	delete(s.users, id)
	return nil
}

func (s *Storage) AppendEmotion(ctx context.Context, id model.UserID, entry model.EmotionLog) error {
	return s.mutateUser(id, func(u *model.User) {
		u.Emotions = append(u.Emotions, entry)
	})
}

func (s *Storage) AppendGamePlay(ctx context.Context, id model.UserID, entry model.GamePlay) error {
	return s.mutateUser(id, func(u *model.User) {
		u.GamePlays = append(u.GamePlays, entry)
	})
}

func (s *Storage) AppendSuggestedGame(ctx context.Context, id model.UserID, gameName string) error {
	return s.mutateUser(id, func(u *model.User) {
		u.SuggestedGames = append(u.SuggestedGames, gameName)
	})
}

func (s *Storage) ApproveTherapist(ctx context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.usernameIndex[username]
	if !ok || s.users[id].Role != model.RoleTherapist {
		return nil, model.ErrTherapistNotFound
	}
	user := s.users[id]
	user.IsApproved = true
	return user.Clone(), nil
}

func (s *Storage) mutateUser(id model.UserID, fn func(*model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	fn(user)
	return nil
}

// Session operations

func (s *Storage) RecordObservation(ctx context.Context, obs model.Observation, newSession *model.GameSession) (*model.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := openKey{userID: obs.UserID, gameName: obs.GameName, key: obs.OpenKey()}
	var session *model.GameSession
	if id, ok := s.openSessions[key]; ok {
		session = s.sessions[id]
	} else {
		session = newSession.Clone()
		s.sessions[session.ID] = session
		s.userSessions[session.UserID] = append(s.userSessions[session.UserID], session.ID)
		s.openSessions[key] = session.ID
	}

	session.Questions = append(session.Questions, obs.Question)
	if obs.FinalScore != nil {
		score := *obs.FinalScore
		session.FinalScore = &score
	}
	if obs.Completes() {
		delete(s.openSessions, key)
	}
	return session.Clone(), nil
}

func (s *Storage) SaveSession(ctx context.Context, session *model.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; !exists {
		s.userSessions[session.UserID] = append(s.userSessions[session.UserID], session.ID)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *Storage) ListSessionsForUser(ctx context.Context, userID model.UserID) ([]*model.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.userSessions[userID]
	result := make([]*model.GameSession, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.sessions[id].Clone())
	}
	slices.SortStableFunc(result, storage.CompareSessions)
	return result, nil
}
