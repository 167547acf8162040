package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/storage"
	"github.com/joyverse/joyverse-backend/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &StorageSuite{
		Suite: storagetest.Suite{
			NewStorage: func(t *testing.T) storage.Storage { return New() },
		},
	})
}

func TestReturnedUserIsACopy(t *testing.T) {
	ctx := context.Background()
	store := New()
	err := store.CreateUser(ctx, &model.User{ID: "u-1", Username: "alice", Role: model.RoleUser, CreatedAt: time.Now()})
	if err != nil {
		t.Fatal(err)
	}

	u, _ := store.GetUser(ctx, "u-1")
	u.SuggestedGames = append(u.SuggestedGames, "MathJungleRun")
	u.IsApproved = true

	again, _ := store.GetUser(ctx, "u-1")
	if len(again.SuggestedGames) != 0 || again.IsApproved {
		t.Errorf("stored user was mutated through a returned copy: %+v", again)
	}
}
