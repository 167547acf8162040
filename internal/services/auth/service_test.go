package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/joyverse/joyverse-backend/internal/dependencies/mocks"
	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/storage/memory"
	"github.com/joyverse/joyverse-backend/internal/testutil"
)

type recordingNotifier struct {
	mu       sync.Mutex
	pending  []string
	approved []string
}

func (n *recordingNotifier) TherapistPending(_ context.Context, u *model.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, u.Username)
	return nil
}

func (n *recordingNotifier) TherapistApproved(_ context.Context, u *model.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approved = append(n.approved, u.Username)
	return nil
}

type ServiceSuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	ids      *mocks.MockIDs
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
	s.ids = mocks.NewMockIDs("id")
	s.notifier = &recordingNotifier{}
	s.service = New(s.storage, s.clock, s.ids, s.notifier, testutil.NopLogger(), Config{Secret: "test-secret"})
	s.ctx = context.Background()
}

func childSignup(username string) SignupInput {
	return SignupInput{
		Username:      username,
		Password:      "secret123",
		Role:          model.RoleUser,
		ParentName:    "Ana",
		ParentContact: "9876543210",
		ChildAge:      7,
	}
}

func therapistSignup(username string) SignupInput {
	return SignupInput{
		Username: username,
		Password: "secret123",
		Role:     model.RoleTherapist,
		Email:    username + "@clinic.test",
	}
}

// Register tests

func (s *ServiceSuite) TestRegisterChildIsApproved() {
	u, err := s.service.Register(s.ctx, childSignup("kid"))
	s.Require().NoError(err)

	s.Equal(model.UserID("id-1"), u.ID)
	s.Equal(model.RoleUser, u.Role)
	s.True(u.IsApproved)
	s.Equal(7, u.ChildAge)
	s.NotEqual("secret123", u.PasswordHash)
	s.Empty(s.notifier.pending)
}

func (s *ServiceSuite) TestRegisterTherapistIsPending() {
	u, err := s.service.Register(s.ctx, therapistSignup("doc"))
	s.Require().NoError(err)

	s.False(u.IsApproved)
	s.Equal([]string{"doc"}, s.notifier.pending)

	stored, err := s.storage.GetUserByUsername(s.ctx, "doc")
	s.Require().NoError(err)
	s.False(stored.IsApproved)
}

func (s *ServiceSuite) TestRegisterDefaultsToUserRole() {
	in := childSignup("kid")
	in.Role = ""
	u, err := s.service.Register(s.ctx, in)
	s.Require().NoError(err)
	s.Equal(model.RoleUser, u.Role)
}

func (s *ServiceSuite) TestRegisterRefusesAdmin() {
	_, err := s.service.Register(s.ctx, SignupInput{Username: "root", Password: "secret123", Role: model.RoleAdmin})
	s.ErrorIs(err, model.ErrForbidden)
}

func (s *ServiceSuite) TestRegisterDuplicateUsername() {
	_, err := s.service.Register(s.ctx, childSignup("kid"))
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, therapistSignup("kid"))
	s.ErrorIs(err, model.ErrUsernameTaken)
	s.ErrorIs(err, model.ErrConflict)
}

func (s *ServiceSuite) TestRegisterValidation() {
	tests := []struct {
		name  string
		edit  func(*SignupInput)
		field string
	}{
		{"short password", func(in *SignupInput) { in.Password = "12345" }, "password"},
		{"missing password", func(in *SignupInput) { in.Password = "" }, "password"},
		{"bad username", func(in *SignupInput) { in.Username = "a" }, "username"},
		{"unknown role", func(in *SignupInput) { in.Role = "parent" }, "role"},
		{"missing parent name", func(in *SignupInput) { in.ParentName = "" }, "parent_name"},
		{"short contact", func(in *SignupInput) { in.ParentContact = "12345" }, "parent_contact"},
		{"age out of range", func(in *SignupInput) { in.ChildAge = 2 }, "child_age"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			in := childSignup("kid")
			tt.edit(&in)

			_, err := s.service.Register(s.ctx, in)
			s.Require().ErrorIs(err, model.ErrValidation)

			var verr *model.ValidationError
			s.Require().ErrorAs(err, &verr)
			s.Equal(tt.field, verr.Field)
		})
	}
}

func (s *ServiceSuite) TestRegisterTherapistNeedsEmail() {
	in := therapistSignup("doc")
	in.Email = ""

	_, err := s.service.Register(s.ctx, in)
	var verr *model.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("email", verr.Field)
}

// EnsureAdmin tests

func (s *ServiceSuite) TestEnsureAdminCreatesOnce() {
	first, err := s.service.EnsureAdmin(s.ctx, "root", "rootpass", "")
	s.Require().NoError(err)
	s.Equal(model.RoleAdmin, first.Role)
	s.True(first.IsApproved)

	second, err := s.service.EnsureAdmin(s.ctx, "root", "another", "")
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)

	_, err = s.service.Login(s.ctx, "root", "rootpass")
	s.NoError(err)
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	u, _ := s.service.Register(s.ctx, childSignup("kid"))

	session, err := s.service.Login(s.ctx, "kid", "secret123")
	s.Require().NoError(err)
	s.NotEmpty(session.Token)
	s.Equal(u.ID, session.User.ID)
	s.True(s.clock.Now().Add(24*time.Hour).Equal(session.ExpiresAt))
}

func (s *ServiceSuite) TestLoginUnknownUser() {
	_, err := s.service.Login(s.ctx, "ghost", "secret123")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *ServiceSuite) TestLoginWrongPassword() {
	_, _ = s.service.Register(s.ctx, childSignup("kid"))

	_, err := s.service.Login(s.ctx, "kid", "wrong-password")
	s.ErrorIs(err, model.ErrInvalidCredentials)
	s.ErrorIs(err, model.ErrUnauthorized)
}

func (s *ServiceSuite) TestLoginPendingTherapist() {
	_, _ = s.service.Register(s.ctx, therapistSignup("doc"))

	_, err := s.service.Login(s.ctx, "doc", "secret123")
	s.ErrorIs(err, model.ErrApprovalPending)
	s.ErrorIs(err, model.ErrForbidden)
}

func (s *ServiceSuite) TestLoginPendingTherapistWrongPasswordIsUnauthorized() {
	_, _ = s.service.Register(s.ctx, therapistSignup("doc"))

	_, err := s.service.Login(s.ctx, "doc", "wrong-password")
	s.ErrorIs(err, model.ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginApprovedTherapist() {
	_, _ = s.service.Register(s.ctx, therapistSignup("doc"))
	_, err := s.storage.ApproveTherapist(s.ctx, "doc")
	s.Require().NoError(err)

	_, err = s.service.Login(s.ctx, "doc", "secret123")
	s.NoError(err)
}

// Token tests

func (s *ServiceSuite) TestValidateToken() {
	u, _ := s.service.Register(s.ctx, childSignup("kid"))
	session, _ := s.service.Login(s.ctx, "kid", "secret123")

	p, err := s.service.Validate(session.Token)
	s.Require().NoError(err)
	s.Equal(u.ID, p.UserID)
	s.Equal(model.RoleUser, p.Role)
	s.NotEmpty(p.TokenID)
}

func (s *ServiceSuite) TestValidateExpiredToken() {
	_, _ = s.service.Register(s.ctx, childSignup("kid"))
	session, _ := s.service.Login(s.ctx, "kid", "secret123")

	s.clock.Advance(24*time.Hour + time.Second)

	_, err := s.service.Validate(session.Token)
	s.ErrorIs(err, model.ErrInvalidToken)
}

func (s *ServiceSuite) TestValidateRejectsForeignSignature() {
	_, _ = s.service.Register(s.ctx, childSignup("kid"))
	other := New(s.storage, s.clock, s.ids, s.notifier, testutil.NopLogger(), Config{Secret: "other-secret"})
	session, err := other.Login(s.ctx, "kid", "secret123")
	s.Require().NoError(err)

	_, err = s.service.Validate(session.Token)
	s.ErrorIs(err, model.ErrInvalidToken)
}

func (s *ServiceSuite) TestValidateGarbage() {
	_, err := s.service.Validate("not-a-token")
	s.ErrorIs(err, model.ErrInvalidToken)
}

func (s *ServiceSuite) TestLogoutRevokesToken() {
	_, _ = s.service.Register(s.ctx, childSignup("kid"))
	first, _ := s.service.Login(s.ctx, "kid", "secret123")
	second, _ := s.service.Login(s.ctx, "kid", "secret123")

	s.Require().NoError(s.service.Logout(first.Token))

	_, err := s.service.Validate(first.Token)
	s.ErrorIs(err, model.ErrInvalidToken)

	_, err = s.service.Validate(second.Token)
	s.NoError(err)

	s.ErrorIs(s.service.Logout(first.Token), model.ErrInvalidToken)
}

func (s *ServiceSuite) TestPruneRevokedDropsExpired() {
	_, _ = s.service.Register(s.ctx, childSignup("kid"))
	session, _ := s.service.Login(s.ctx, "kid", "secret123")
	s.Require().NoError(s.service.Logout(session.Token))

	s.Equal(0, s.service.PruneRevoked())

	s.clock.Advance(25 * time.Hour)
	s.Equal(1, s.service.PruneRevoked())
	s.Empty(s.service.revoked)
}
