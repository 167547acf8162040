// Package storagetest holds the behaviour every storage backend must share.
// Backend tests embed Suite and supply NewStorage.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/storage"
)

// Suite is the storage conformance suite
type Suite struct {
	suite.Suite

	// NewStorage returns an empty backend. It should register its own
	// cleanup with t.Cleanup.
	NewStorage func(t *testing.T) storage.Storage

	store storage.Storage
	ctx   context.Context
	now   time.Time
}

func (s *Suite) SetupTest() {
	s.store = s.NewStorage(s.T())
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *Suite) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func (s *Suite) newUser(id, username string, role model.Role) *model.User {
	return &model.User{
		ID:           model.UserID(id),
		Username:     username,
		PasswordHash: "hash-" + username,
		Role:         role,
		IsApproved:   role.ApprovedOnCreate(),
		CreatedAt:    s.tick(),
	}
}

func (s *Suite) mustCreate(u *model.User) *model.User {
	s.Require().NoError(s.store.CreateUser(s.ctx, u))
	return u
}

func (s *Suite) newSession(id string, userID model.UserID, game string) *model.GameSession {
	return &model.GameSession{
		ID:        model.SessionID(id),
		UserID:    userID,
		GameName:  game,
		Timestamp: s.tick(),
	}
}

func (s *Suite) observation(userID model.UserID, game string, n int, emotion string) model.Observation {
	return model.Observation{
		UserID:   userID,
		GameName: game,
		Question: model.Question{QuestionNumber: n, Emotion: emotion, Score: 1},
	}
}

func intPtr(v int) *int {
	return &v
}

// User tests

func (s *Suite) TestCreateAndGetUser() {
	u := s.newUser("u-1", "alice", model.RoleUser)
	u.Profile = model.Profile{
		Email:         "parent@example.com",
		ParentName:    "Mary",
		ParentContact: "0123456789",
		ChildAge:      7,
	}
	s.mustCreate(u)

	byID, err := s.store.GetUser(s.ctx, "u-1")
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)
	s.Equal("hash-alice", byID.PasswordHash)
	s.Equal(model.RoleUser, byID.Role)
	s.Equal(u.Profile, byID.Profile)
	s.True(byID.IsApproved)
	s.True(u.CreatedAt.Equal(byID.CreatedAt))
	s.Empty(byID.Emotions)
	s.Empty(byID.GamePlays)
	s.Empty(byID.SuggestedGames)

	byName, err := s.store.GetUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.UserID("u-1"), byName.ID)
}

func (s *Suite) TestCreateUserDuplicateUsername() {
	s.mustCreate(s.newUser("u-1", "alice", model.RoleUser))

	err := s.store.CreateUser(s.ctx, s.newUser("u-2", "alice", model.RoleTherapist))
	s.ErrorIs(err, model.ErrUsernameTaken)
	s.ErrorIs(err, model.ErrConflict)

	_, err = s.store.GetUser(s.ctx, "u-2")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestConcurrentCreateUserSameUsername() {
	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u := s.newUserAt(fmt.Sprintf("u-%d", i), "alice", s.now)
			errs[i] = s.store.CreateUser(s.ctx, u)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, model.ErrUsernameTaken)
		}
	}
	s.Equal(1, succeeded)
}

// newUserAt builds a user without advancing the suite clock, for use
// from goroutines
func (s *Suite) newUserAt(id, username string, at time.Time) *model.User {
	return &model.User{
		ID:         model.UserID(id),
		Username:   username,
		Role:       model.RoleUser,
		IsApproved: true,
		CreatedAt:  at,
	}
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.store.GetUser(s.ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)
	s.ErrorIs(err, model.ErrNotFound)

	_, err = s.store.GetUserByUsername(s.ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestListUsersFilters() {
	child := s.newUser("u-1", "kid", model.RoleUser)
	child.ParentName = "Mary"
	child.ParentContact = "0123456789"
	s.mustCreate(child)
	sibling := s.newUser("u-2", "kid2", model.RoleUser)
	sibling.ParentName = "Mary"
	sibling.ParentContact = "0123456789"
	s.mustCreate(sibling)
	s.mustCreate(s.newUser("t-1", "doc", model.RoleTherapist))
	s.mustCreate(s.newUser("t-2", "doc2", model.RoleTherapist))
	s.mustCreate(s.newUser("a-1", "root", model.RoleAdmin))
	_, err := s.store.ApproveTherapist(s.ctx, "doc2")
	s.Require().NoError(err)

	all, err := s.store.ListUsers(s.ctx, model.UserFilter{})
	s.Require().NoError(err)
	s.Equal([]string{"kid", "kid2", "doc", "doc2", "root"}, usernames(all))

	therapists, err := s.store.ListUsers(s.ctx, model.UserFilter{Role: model.RoleTherapist})
	s.Require().NoError(err)
	s.Equal([]string{"doc", "doc2"}, usernames(therapists))

	pending := false
	pendingTherapists, err := s.store.ListUsers(s.ctx, model.UserFilter{Role: model.RoleTherapist, Approved: &pending})
	s.Require().NoError(err)
	s.Equal([]string{"doc"}, usernames(pendingTherapists))

	children, err := s.store.ListUsers(s.ctx, model.UserFilter{ParentName: "Mary", ParentContact: "0123456789"})
	s.Require().NoError(err)
	s.Equal([]string{"kid", "kid2"}, usernames(children))

	none, err := s.store.ListUsers(s.ctx, model.UserFilter{ParentName: "Nobody"})
	s.Require().NoError(err)
	s.Empty(none)
}

func usernames(users []*model.User) []string {
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	return names
}

func (s *Suite) TestDeleteUser() {
	s.mustCreate(s.newUser("u-1", "alice", model.RoleTherapist))

	s.Require().NoError(s.store.DeleteUser(s.ctx, "u-1"))

	_, err := s.store.GetUser(s.ctx, "u-1")
	s.ErrorIs(err, model.ErrUserNotFound)
	_, err = s.store.GetUserByUsername(s.ctx, "alice")
	s.ErrorIs(err, model.ErrUserNotFound)

	// The username is free again
	s.Require().NoError(s.store.CreateUser(s.ctx, s.newUser("u-2", "alice", model.RoleUser)))
}

func (s *Suite) TestDeleteUserNotFound() {
	err := s.store.DeleteUser(s.ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestDeleteUserKeepsSessions() {
	s.mustCreate(s.newUser("u-1", "alice", model.RoleUser))
	s.Require().NoError(s.store.SaveSession(s.ctx, s.newSession("s-1", "u-1", "MathJungleRun")))

	s.Require().NoError(s.store.DeleteUser(s.ctx, "u-1"))

	sessions, err := s.store.ListSessionsForUser(s.ctx, "u-1")
	s.Require().NoError(err)
	s.Len(sessions, 1)
}

func (s *Suite) TestAppendLogs() {
	s.mustCreate(s.newUser("u-1", "alice", model.RoleUser))

	first := model.EmotionLog{GameName: "MathJungleRun", QuestionNumber: 1, Emotion: "happy", Score: 1, Timestamp: s.tick()}
	second := model.EmotionLog{GameName: "MathJungleRun", QuestionNumber: 2, Emotion: "sad", Score: 0, Timestamp: s.tick()}
	play := model.GamePlay{GameName: "MathJungleRun", FinalScore: 8, Timestamp: s.tick()}
	s.Require().NoError(s.store.AppendEmotion(s.ctx, "u-1", first))
	s.Require().NoError(s.store.AppendEmotion(s.ctx, "u-1", second))
	s.Require().NoError(s.store.AppendGamePlay(s.ctx, "u-1", play))

	u, err := s.store.GetUser(s.ctx, "u-1")
	s.Require().NoError(err)
	s.Require().Len(u.Emotions, 2)
	s.Equal("happy", u.Emotions[0].Emotion)
	s.Equal("sad", u.Emotions[1].Emotion)
	s.Equal(2, u.Emotions[1].QuestionNumber)
	s.True(second.Timestamp.Equal(u.Emotions[1].Timestamp))
	s.Require().Len(u.GamePlays, 1)
	s.Equal(8, u.GamePlays[0].FinalScore)
	s.True(play.Timestamp.Equal(u.GamePlays[0].Timestamp))
}

func (s *Suite) TestAppendToMissingUser() {
	s.ErrorIs(s.store.AppendEmotion(s.ctx, "missing", model.EmotionLog{Emotion: "happy"}), model.ErrUserNotFound)
	s.ErrorIs(s.store.AppendGamePlay(s.ctx, "missing", model.GamePlay{GameName: "g"}), model.ErrUserNotFound)
	s.ErrorIs(s.store.AppendSuggestedGame(s.ctx, "missing", "g"), model.ErrUserNotFound)
}

func (s *Suite) TestAppendSuggestedGameKeepsDuplicates() {
	s.mustCreate(s.newUser("u-1", "alice", model.RoleUser))

	s.Require().NoError(s.store.AppendSuggestedGame(s.ctx, "u-1", "MathJungleRun"))
	s.Require().NoError(s.store.AppendSuggestedGame(s.ctx, "u-1", "WordWizard"))
	s.Require().NoError(s.store.AppendSuggestedGame(s.ctx, "u-1", "MathJungleRun"))

	u, err := s.store.GetUser(s.ctx, "u-1")
	s.Require().NoError(err)
	s.Equal([]string{"MathJungleRun", "WordWizard", "MathJungleRun"}, u.SuggestedGames)
}

func (s *Suite) TestApproveTherapist() {
	s.mustCreate(s.newUser("t-1", "doc", model.RoleTherapist))

	before, err := s.store.GetUserByUsername(s.ctx, "doc")
	s.Require().NoError(err)
	s.False(before.IsApproved)

	approved, err := s.store.ApproveTherapist(s.ctx, "doc")
	s.Require().NoError(err)
	s.True(approved.IsApproved)
	s.Equal(model.UserID("t-1"), approved.ID)

	for range 2 {
		u, err := s.store.GetUser(s.ctx, "t-1")
		s.Require().NoError(err)
		s.True(u.IsApproved)
	}

	// Approving again is harmless
	_, err = s.store.ApproveTherapist(s.ctx, "doc")
	s.NoError(err)
}

func (s *Suite) TestApproveTherapistRejectsOtherRoles() {
	s.mustCreate(s.newUser("u-1", "kid", model.RoleUser))
	s.mustCreate(s.newUser("a-1", "root", model.RoleAdmin))

	_, err := s.store.ApproveTherapist(s.ctx, "kid")
	s.ErrorIs(err, model.ErrTherapistNotFound)
	_, err = s.store.ApproveTherapist(s.ctx, "root")
	s.ErrorIs(err, model.ErrTherapistNotFound)
	_, err = s.store.ApproveTherapist(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrTherapistNotFound)
	s.ErrorIs(err, model.ErrNotFound)
}

// Session tests

func (s *Suite) TestRecordObservationCreatesSession() {
	candidate := s.newSession("s-1", "u-1", "MathJungleRun")

	session, err := s.store.RecordObservation(s.ctx, s.observation("u-1", "MathJungleRun", 1, "happy"), candidate)
	s.Require().NoError(err)
	s.Equal(model.SessionID("s-1"), session.ID)
	s.Equal(model.UserID("u-1"), session.UserID)
	s.Equal("MathJungleRun", session.GameName)
	s.Equal([]model.Question{{QuestionNumber: 1, Emotion: "happy", Score: 1}}, session.Questions)
	s.Nil(session.FinalScore)
	s.True(candidate.Timestamp.Equal(session.Timestamp))
}

func (s *Suite) TestRecordObservationAppendsToOpenSession() {
	_, err := s.store.RecordObservation(s.ctx, s.observation("u-1", "MathJungleRun", 1, "happy"), s.newSession("s-1", "u-1", "MathJungleRun"))
	s.Require().NoError(err)

	session, err := s.store.RecordObservation(s.ctx, s.observation("u-1", "MathJungleRun", 2, "sad"), s.newSession("s-2", "u-1", "MathJungleRun"))
	s.Require().NoError(err)
	s.Equal(model.SessionID("s-1"), session.ID)
	s.Len(session.Questions, 2)
	s.Equal("sad", session.Questions[1].Emotion)

	_, err = s.store.GetSession(s.ctx, "s-2")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestRecordObservationSeparatesGames() {
	a, err := s.store.RecordObservation(s.ctx, s.observation("u-1", "MathJungleRun", 1, "happy"), s.newSession("s-1", "u-1", "MathJungleRun"))
	s.Require().NoError(err)
	b, err := s.store.RecordObservation(s.ctx, s.observation("u-1", "WordWizard", 1, "happy"), s.newSession("s-2", "u-1", "WordWizard"))
	s.Require().NoError(err)
	c, err := s.store.RecordObservation(s.ctx, s.observation("u-2", "MathJungleRun", 1, "happy"), s.newSession("s-3", "u-2", "MathJungleRun"))
	s.Require().NoError(err)

	s.Equal(model.SessionID("s-1"), a.ID)
	s.Equal(model.SessionID("s-2"), b.ID)
	s.Equal(model.SessionID("s-3"), c.ID)
}

func (s *Suite) TestRecordObservationFinalScoreCompletesOpenSession() {
	obs := s.observation("u-1", "MathJungleRun", 10, "happy")
	obs.FinalScore = intPtr(7)
	done, err := s.store.RecordObservation(s.ctx, obs, s.newSession("s-1", "u-1", "MathJungleRun"))
	s.Require().NoError(err)
	s.Require().NotNil(done.FinalScore)
	s.Equal(7, *done.FinalScore)

	next, err := s.store.RecordObservation(s.ctx, s.observation("u-1", "MathJungleRun", 1, "sad"), s.newSession("s-2", "u-1", "MathJungleRun"))
	s.Require().NoError(err)
	s.Equal(model.SessionID("s-2"), next.ID)
	s.Len(next.Questions, 1)
}

func (s *Suite) TestRecordObservationPlaythroughFinalScoreLastWriteWins() {
	obs := s.observation("u-1", "MathJungleRun", 9, "happy")
	obs.PlaythroughID = "pt-1"
	obs.FinalScore = intPtr(5)
	candidate := s.newSession("s-1", "u-1", "MathJungleRun")
	candidate.PlaythroughID = "pt-1"
	_, err := s.store.RecordObservation(s.ctx, obs, candidate)
	s.Require().NoError(err)

	obs.Question.QuestionNumber = 10
	obs.FinalScore = intPtr(3)
	session, err := s.store.RecordObservation(s.ctx, obs, s.newSession("s-2", "u-1", "MathJungleRun"))
	s.Require().NoError(err)
	s.Equal(model.SessionID("s-1"), session.ID)
	s.Require().NotNil(session.FinalScore)
	s.Equal(3, *session.FinalScore)
	s.Len(session.Questions, 2)

	// A question without a score leaves the final score alone
	obs.FinalScore = nil
	session, err = s.store.RecordObservation(s.ctx, obs, s.newSession("s-3", "u-1", "MathJungleRun"))
	s.Require().NoError(err)
	s.Require().NotNil(session.FinalScore)
	s.Equal(3, *session.FinalScore)
	s.Equal("pt-1", session.PlaythroughID)
}

func (s *Suite) TestRecordObservationPlaythroughsAreSeparate() {
	first := s.observation("u-1", "MathJungleRun", 1, "happy")
	first.PlaythroughID = "pt-1"
	second := s.observation("u-1", "MathJungleRun", 1, "sad")
	second.PlaythroughID = "pt-2"
	anonymous := s.observation("u-1", "MathJungleRun", 1, "angry")

	a, err := s.store.RecordObservation(s.ctx, first, s.newSession("s-1", "u-1", "MathJungleRun"))
	s.Require().NoError(err)
	b, err := s.store.RecordObservation(s.ctx, second, s.newSession("s-2", "u-1", "MathJungleRun"))
	s.Require().NoError(err)
	c, err := s.store.RecordObservation(s.ctx, anonymous, s.newSession("s-3", "u-1", "MathJungleRun"))
	s.Require().NoError(err)

	s.Equal(model.SessionID("s-1"), a.ID)
	s.Equal(model.SessionID("s-2"), b.ID)
	s.Equal(model.SessionID("s-3"), c.ID)
}

func (s *Suite) TestConcurrentRecordObservationCreatesOneSession() {
	s.assertConcurrentObservations("")
}

func (s *Suite) TestConcurrentRecordObservationWithPlaythroughCreatesOneSession() {
	s.assertConcurrentObservations("pt-race")
}

func (s *Suite) assertConcurrentObservations(playthroughID string) {
	const workers = 16
	at := s.tick()

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			obs := model.Observation{
				UserID:        "u-race",
				GameName:      "MathJungleRun",
				PlaythroughID: playthroughID,
				Question:      model.Question{QuestionNumber: i + 1, Emotion: "happy", Score: 1},
			}
			candidate := &model.GameSession{
				ID:            model.SessionID(fmt.Sprintf("race-%d", i)),
				UserID:        "u-race",
				GameName:      "MathJungleRun",
				PlaythroughID: playthroughID,
				Timestamp:     at,
			}
			_, errs[i] = s.store.RecordObservation(s.ctx, obs, candidate)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		s.Require().NoError(err)
	}
	sessions, err := s.store.ListSessionsForUser(s.ctx, "u-race")
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Len(sessions[0].Questions, workers)
}

func (s *Suite) TestSaveAndGetSession() {
	session := s.newSession("s-1", "u-1", "WordWizard")
	session.Questions = []model.Question{
		{QuestionNumber: 1, Emotion: "happy", Score: 1},
		{QuestionNumber: 2, Emotion: "fear", Score: 0},
	}
	session.FinalScore = intPtr(1)
	s.Require().NoError(s.store.SaveSession(s.ctx, session))

	got, err := s.store.GetSession(s.ctx, "s-1")
	s.Require().NoError(err)
	s.Equal(session.Questions, got.Questions)
	s.Require().NotNil(got.FinalScore)
	s.Equal(1, *got.FinalScore)
	s.Equal("WordWizard", got.GameName)
	s.True(session.Timestamp.Equal(got.Timestamp))

	// A saved session is never open for observations
	next, err := s.store.RecordObservation(s.ctx, s.observation("u-1", "WordWizard", 3, "sad"), s.newSession("s-2", "u-1", "WordWizard"))
	s.Require().NoError(err)
	s.Equal(model.SessionID("s-2"), next.ID)
}

func (s *Suite) TestGetSessionNotFound() {
	_, err := s.store.GetSession(s.ctx, "missing")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestListSessionsForUserOrdered() {
	late := s.newSession("s-late", "u-1", "WordWizard")
	late.Timestamp = s.now.Add(time.Hour)
	early := s.newSession("s-early", "u-1", "MathJungleRun")
	other := s.newSession("s-other", "u-2", "MathJungleRun")
	s.Require().NoError(s.store.SaveSession(s.ctx, late))
	s.Require().NoError(s.store.SaveSession(s.ctx, early))
	s.Require().NoError(s.store.SaveSession(s.ctx, other))
	_, err := s.store.RecordObservation(s.ctx, s.observation("u-1", "ColorMatch", 1, "happy"), s.newSession("s-mid", "u-1", "ColorMatch"))
	s.Require().NoError(err)

	sessions, err := s.store.ListSessionsForUser(s.ctx, "u-1")
	s.Require().NoError(err)
	ids := make([]model.SessionID, len(sessions))
	for i, session := range sessions {
		ids[i] = session.ID
	}
	s.Equal([]model.SessionID{"s-early", "s-mid", "s-late"}, ids)

	again, err := s.store.ListSessionsForUser(s.ctx, "u-1")
	s.Require().NoError(err)
	s.Equal(sessions, again)
}

func (s *Suite) TestListSessionsForUserEmpty() {
	sessions, err := s.store.ListSessionsForUser(s.ctx, "nobody")
	s.Require().NoError(err)
	s.NotNil(sessions)
	s.Empty(sessions)
}
