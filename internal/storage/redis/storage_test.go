package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/storage"
	"github.com/joyverse/joyverse-backend/internal/storage/storagetest"
)

func newMiniredisStorage(t *testing.T) (*Storage, *miniredis.Miniredis) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mini.Addr(),
	})
	store := NewWithClient(client, DefaultConfig())
	t.Cleanup(func() { _ = store.Close() })
	return store, mini
}

type StorageSuite struct {
	storagetest.Suite
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &StorageSuite{
		Suite: storagetest.Suite{
			NewStorage: func(t *testing.T) storage.Storage {
				store, _ := newMiniredisStorage(t)
				return store
			},
		},
	})
}

// Layout tests check the keys other tooling relies on

type LayoutSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestLayoutSuite(t *testing.T) {
	suite.Run(t, new(LayoutSuite))
}

func (s *LayoutSuite) SetupTest() {
	s.storage, s.mini = newMiniredisStorage(s.T())
	s.ctx = context.Background()
}

func (s *LayoutSuite) TestCreateUserWritesIndexes() {
	user := &model.User{ID: "u-1", Username: "alice", Role: model.RoleTherapist, CreatedAt: time.Now()}
	s.Require().NoError(s.storage.CreateUser(s.ctx, user))

	id, err := s.mini.Get("joyverse:idx:username:alice")
	s.Require().NoError(err)
	s.Equal("u-1", id)
	s.Equal("therapist", s.mini.HGet("joyverse:user:u-1", "role"))
	s.Equal("0", s.mini.HGet("joyverse:user:u-1", "approved"))
}

func (s *LayoutSuite) TestDeleteUserRemovesKeys() {
	user := &model.User{ID: "u-1", Username: "alice", Role: model.RoleUser, IsApproved: true, CreatedAt: time.Now()}
	s.Require().NoError(s.storage.CreateUser(s.ctx, user))
	s.Require().NoError(s.storage.AppendSuggestedGame(s.ctx, "u-1", "MathJungleRun"))

	s.Require().NoError(s.storage.DeleteUser(s.ctx, "u-1"))

	s.False(s.mini.Exists("joyverse:user:u-1"))
	s.False(s.mini.Exists("joyverse:user:u-1:suggested_games"))
	s.False(s.mini.Exists("joyverse:idx:username:alice"))
}

func (s *LayoutSuite) TestCompletingOpenSessionDropsPointer() {
	score := 9
	obs := model.Observation{
		UserID:     "u-1",
		GameName:   "MathJungleRun",
		Question:   model.Question{QuestionNumber: 10, Emotion: "happy", Score: 1},
		FinalScore: &score,
	}
	candidate := &model.GameSession{ID: "s-1", UserID: "u-1", GameName: "MathJungleRun", Timestamp: time.Now()}

	_, err := s.storage.RecordObservation(s.ctx, obs, candidate)
	s.Require().NoError(err)

	s.False(s.mini.Exists("joyverse:idx:open_session:u-1:MathJungleRun:open"))
	s.Equal("9", s.mini.HGet("joyverse:session:s-1", "final_score"))
}
