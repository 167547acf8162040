package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/joyverse/joyverse-backend/internal/dependencies/mocks"
	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/storage/memory"
	"github.com/joyverse/joyverse-backend/internal/testutil"
)

type recordingNotifier struct {
	approved []string
	err      error
}

func (n *recordingNotifier) TherapistPending(context.Context, *model.User) error { return nil }

func (n *recordingNotifier) TherapistApproved(_ context.Context, u *model.User) error {
	n.approved = append(n.approved, u.Username)
	return n.err
}

type ServiceSuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	notifier *recordingNotifier
	service  *Service
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	s.notifier = &recordingNotifier{}
	s.service = New(s.storage, s.clock, s.notifier, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) createUser(id, username string, role model.Role) *model.User {
	u := &model.User{
		ID:         model.UserID(id),
		Username:   username,
		Role:       role,
		IsApproved: role.ApprovedOnCreate(),
		CreatedAt:  s.clock.Now(),
	}
	s.Require().NoError(s.storage.CreateUser(s.ctx, u))
	s.clock.Advance(time.Second)
	return u
}

// Resolve tests

func (s *ServiceSuite) TestResolveByIDOrUsername() {
	s.createUser("u-1", "kid", model.RoleUser)

	byID, err := s.service.Resolve(s.ctx, "u-1")
	s.Require().NoError(err)
	s.Equal("kid", byID.Username)

	byName, err := s.service.Resolve(s.ctx, "kid")
	s.Require().NoError(err)
	s.Equal(model.UserID("u-1"), byName.ID)
}

func (s *ServiceSuite) TestResolveUnknown() {
	_, err := s.service.Resolve(s.ctx, "ghost")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *ServiceSuite) TestResolveEmpty() {
	_, err := s.service.Resolve(s.ctx, "  ")
	s.ErrorIs(err, model.ErrValidation)
}

// List tests

func (s *ServiceSuite) TestListTherapistsByStatus() {
	s.createUser("t-1", "doc", model.RoleTherapist)
	s.createUser("t-2", "doc2", model.RoleTherapist)
	s.createUser("u-1", "kid", model.RoleUser)
	_, err := s.service.Approve(s.ctx, "doc2")
	s.Require().NoError(err)

	pending, err := s.service.ListTherapists(s.ctx, model.ApprovalPending)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("doc", pending[0].Username)

	approved, err := s.service.ListTherapists(s.ctx, model.ApprovalApproved)
	s.Require().NoError(err)
	s.Require().Len(approved, 1)
	s.Equal("doc2", approved[0].Username)

	all, err := s.service.ListTherapists(s.ctx, "")
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *ServiceSuite) TestListTherapistsUnknownStatus() {
	_, err := s.service.ListTherapists(s.ctx, "rejected")
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ServiceSuite) TestListUnknownRole() {
	_, err := s.service.List(s.ctx, model.UserFilter{Role: "parent"})
	s.ErrorIs(err, model.ErrValidation)
}

// Log tests

func (s *ServiceSuite) TestAppendEmotionNormalizesLabel() {
	s.createUser("u-1", "kid", model.RoleUser)

	entry, err := s.service.AppendEmotion(s.ctx, "kid", EmotionInput{
		GameName:       "MathJungleRun",
		QuestionNumber: 3,
		Emotion:        " Happy ",
		Score:          1,
	})
	s.Require().NoError(err)
	s.Equal("happy", entry.Emotion)
	s.True(s.clock.Now().Equal(entry.Timestamp))

	u, _ := s.storage.GetUser(s.ctx, "u-1")
	s.Require().Len(u.Emotions, 1)
	s.Equal(3, u.Emotions[0].QuestionNumber)
}

func (s *ServiceSuite) TestAppendEmotionValidation() {
	s.createUser("u-1", "kid", model.RoleUser)

	_, err := s.service.AppendEmotion(s.ctx, "kid", EmotionInput{GameName: "MathJungleRun", QuestionNumber: 0, Emotion: "happy"})
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.AppendEmotion(s.ctx, "kid", EmotionInput{GameName: "MathJungleRun", QuestionNumber: 1, Emotion: "  "})
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ServiceSuite) TestAppendGamePlay() {
	s.createUser("u-1", "kid", model.RoleUser)

	_, err := s.service.AppendGamePlay(s.ctx, "u-1", GamePlayInput{GameName: "WordWizard", FinalScore: 9})
	s.Require().NoError(err)

	u, _ := s.storage.GetUser(s.ctx, "u-1")
	s.Require().Len(u.GamePlays, 1)
	s.Equal(9, u.GamePlays[0].FinalScore)
}

func (s *ServiceSuite) TestAppendGamePlayUnknownUser() {
	_, err := s.service.AppendGamePlay(s.ctx, "ghost", GamePlayInput{GameName: "WordWizard", FinalScore: 9})
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Suggestion tests

func (s *ServiceSuite) TestSuggestGameKeepsDuplicates() {
	s.createUser("u-1", "kid", model.RoleUser)

	_, err := s.service.SuggestGame(s.ctx, "kid", "MathJungleRun")
	s.Require().NoError(err)
	u, err := s.service.SuggestGame(s.ctx, "kid", "MathJungleRun")
	s.Require().NoError(err)

	s.Equal([]string{"MathJungleRun", "MathJungleRun"}, u.SuggestedGames)
	stored, _ := s.storage.GetUser(s.ctx, "u-1")
	s.Equal([]string{"MathJungleRun", "MathJungleRun"}, stored.SuggestedGames)
}

func (s *ServiceSuite) TestSuggestGameUnknownUser() {
	_, err := s.service.SuggestGame(s.ctx, "ghost", "MathJungleRun")
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *ServiceSuite) TestSuggestGameRequiresName() {
	s.createUser("u-1", "kid", model.RoleUser)
	_, err := s.service.SuggestGame(s.ctx, "kid", " ")
	s.ErrorIs(err, model.ErrValidation)
}

// Approval tests

func (s *ServiceSuite) TestApproveTherapist() {
	s.createUser("t-1", "doc", model.RoleTherapist)

	u, err := s.service.Approve(s.ctx, "doc")
	s.Require().NoError(err)
	s.True(u.IsApproved)
	s.Equal([]string{"doc"}, s.notifier.approved)

	for range 3 {
		stored, err := s.storage.GetUserByUsername(s.ctx, "doc")
		s.Require().NoError(err)
		s.Equal(model.ApprovalApproved, stored.Approval())
	}
}

func (s *ServiceSuite) TestApproveTwiceNotifiesOnce() {
	s.createUser("t-1", "doc", model.RoleTherapist)

	_, err := s.service.Approve(s.ctx, "doc")
	s.Require().NoError(err)
	u, err := s.service.Approve(s.ctx, "doc")
	s.Require().NoError(err)

	s.True(u.IsApproved)
	s.Len(s.notifier.approved, 1)
}

func (s *ServiceSuite) TestApproveNonTherapist() {
	s.createUser("u-1", "kid", model.RoleUser)

	_, err := s.service.Approve(s.ctx, "kid")
	s.ErrorIs(err, model.ErrTherapistNotFound)

	_, err = s.service.Approve(s.ctx, "ghost")
	s.ErrorIs(err, model.ErrTherapistNotFound)
}

func (s *ServiceSuite) TestApproveSurvivesNotificationFailure() {
	s.createUser("t-1", "doc", model.RoleTherapist)
	s.notifier.err = errors.New("smtp down")

	u, err := s.service.Approve(s.ctx, "doc")
	s.Require().NoError(err)
	s.True(u.IsApproved)
}

// Delete tests

func (s *ServiceSuite) TestDeleteThenGet() {
	s.createUser("u-1", "kid", model.RoleUser)

	s.Require().NoError(s.service.Delete(s.ctx, "u-1"))

	_, err := s.service.Get(s.ctx, "u-1")
	s.ErrorIs(err, model.ErrUserNotFound)

	s.ErrorIs(s.service.Delete(s.ctx, "u-1"), model.ErrUserNotFound)
}
