package model

import "time"

// UserID uniquely identifies a user
type UserID string

// Role determines what a user may do
type Role string

const (
	RoleUser      Role = "user" // a child player
	RoleTherapist Role = "therapist"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleTherapist, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may view other users' data
func (r Role) IsStaff() bool {
	return r == RoleTherapist || r == RoleAdmin
}

// ApprovedOnCreate returns the initial approval state for a role.
// Therapists start pending; everyone else starts approved.
func (r Role) ApprovedOnCreate() bool {
	return r != RoleTherapist
}

// ApprovalStatus is the state of the therapist approval workflow
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
)

// EmotionLog is one entry of a user's emotion log
type EmotionLog struct {
	GameName       string
	QuestionNumber int
	Emotion        string
	Score          int
	Timestamp      time.Time
}

// GamePlay is one entry of a user's game-play log
type GamePlay struct {
	GameName   string
	FinalScore int
	Timestamp  time.Time
}

// Profile holds the optional, role-dependent profile fields
type Profile struct {
	Email         string
	ParentName    string
	ParentContact string
	ChildAge      int // 0 when unset
}

// User is a registered account together with its append-only logs
type User struct {
	ID           UserID
	Username     string // unique, immutable
	PasswordHash string // bcrypt hash
	Role         Role
	Profile
	IsApproved bool

	// Appended by therapists; duplicates are kept in order.
	SuggestedGames []string

	// Legacy logs written directly by game clients. Reporting derives
	// the same information from game sessions.
	Emotions  []EmotionLog
	GamePlays []GamePlay

	CreatedAt time.Time
}

// Approval returns the workflow state of the user
func (u *User) Approval() ApprovalStatus {
	if u.IsApproved {
		return ApprovalApproved
	}
	return ApprovalPending
}

// Clone returns a deep copy so callers cannot mutate stored slices
func (u *User) Clone() *User {
	c := *u
	c.SuggestedGames = append([]string(nil), u.SuggestedGames...)
	c.Emotions = append([]EmotionLog(nil), u.Emotions...)
	c.GamePlays = append([]GamePlay(nil), u.GamePlays...)
	return &c
}

// UserFilter narrows ListUsers. Zero values match everything.
type UserFilter struct {
	Role          Role
	Approved      *bool
	ParentName    string
	ParentContact string
}

// Matches reports whether u passes the filter
func (f UserFilter) Matches(u *User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Approved != nil && u.IsApproved != *f.Approved {
		return false
	}
	if f.ParentName != "" && u.ParentName != f.ParentName {
		return false
	}
	if f.ParentContact != "" && u.ParentContact != f.ParentContact {
		return false
	}
	return true
}
