package response

import (
	"time"

	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/services/auth"
)

// User represents a user in API responses. The password hash is never
// part of it.
type User struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Role           string     `json:"role"`
	Email          string     `json:"email,omitempty"`
	ParentName     string     `json:"parent_name,omitempty"`
	ParentContact  string     `json:"parent_contact,omitempty"`
	ChildAge       int        `json:"child_age,omitempty"`
	IsApproved     bool       `json:"is_approved"`
	ApprovalStatus string     `json:"approval_status"`
	SuggestedGames []string   `json:"suggested_games"`
	Emotions       []Emotion  `json:"emotions"`
	GamePlays      []GamePlay `json:"game_plays"`
	CreatedAt      time.Time  `json:"created_at"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	emotions := make([]Emotion, len(u.Emotions))
	for i, e := range u.Emotions {
		emotions[i] = EmotionFromModel(e)
	}
	plays := make([]GamePlay, len(u.GamePlays))
	for i, p := range u.GamePlays {
		plays[i] = GamePlayFromModel(p)
	}
	suggested := u.SuggestedGames
	if suggested == nil {
		suggested = []string{}
	}

	return User{
		ID:             string(u.ID),
		Username:       u.Username,
		Role:           string(u.Role),
		Email:          u.Email,
		ParentName:     u.ParentName,
		ParentContact:  u.ParentContact,
		ChildAge:       u.ChildAge,
		IsApproved:     u.IsApproved,
		ApprovalStatus: string(u.Approval()),
		SuggestedGames: suggested,
		Emotions:       emotions,
		GamePlays:      plays,
		CreatedAt:      u.CreatedAt,
	}
}

// UserList is the response for user listings
type UserList struct {
	Users []User `json:"users"`
	Count int    `json:"count"`
}

// UserListFromModels converts a slice of users
func UserListFromModels(users []*model.User) UserList {
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = UserFromModel(u)
	}
	return UserList{Users: out, Count: len(out)}
}

// AuthResponse is the response for login
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		User:      UserFromModel(s.User),
	}
}

// Emotion is one emotion log entry
type Emotion struct {
	GameName       string    `json:"game_name"`
	QuestionNumber int       `json:"question_number"`
	Emotion        string    `json:"emotion"`
	Score          int       `json:"score"`
	Timestamp      time.Time `json:"timestamp"`
}

// EmotionFromModel converts a model.EmotionLog
func EmotionFromModel(e model.EmotionLog) Emotion {
	return Emotion{
		GameName:       e.GameName,
		QuestionNumber: e.QuestionNumber,
		Emotion:        e.Emotion,
		Score:          e.Score,
		Timestamp:      e.Timestamp,
	}
}

// GamePlay is one game-play log entry
type GamePlay struct {
	GameName   string    `json:"game_name"`
	FinalScore int       `json:"final_score"`
	Timestamp  time.Time `json:"timestamp"`
}

// GamePlayFromModel converts a model.GamePlay
func GamePlayFromModel(p model.GamePlay) GamePlay {
	return GamePlay{
		GameName:   p.GameName,
		FinalScore: p.FinalScore,
		Timestamp:  p.Timestamp,
	}
}

// Question is one answered question of a session
type Question struct {
	QuestionNumber int    `json:"question_number"`
	Emotion        string `json:"emotion"`
	Score          int    `json:"score"`
}

// Session represents a game session
type Session struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	GameName   string     `json:"game_name"`
	SessionID  string     `json:"session_id,omitempty"`
	Questions  []Question `json:"questions"`
	FinalScore *int       `json:"final_score"`
	Completed  bool       `json:"completed"`
	Timestamp  time.Time  `json:"timestamp"`
}

// SessionFromModel converts a model.GameSession
func SessionFromModel(s *model.GameSession) Session {
	questions := make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		questions[i] = Question{
			QuestionNumber: q.QuestionNumber,
			Emotion:        q.Emotion,
			Score:          q.Score,
		}
	}
	return Session{
		ID:         string(s.ID),
		UserID:     string(s.UserID),
		GameName:   s.GameName,
		SessionID:  s.PlaythroughID,
		Questions:  questions,
		FinalScore: s.FinalScore,
		Completed:  s.Closed(),
		Timestamp:  s.Timestamp,
	}
}

// SessionList is the response for session listings
type SessionList struct {
	Sessions []Session `json:"sessions"`
	Count    int       `json:"count"`
}

// SessionListFromModels converts a slice of sessions
func SessionListFromModels(sessions []*model.GameSession) SessionList {
	out := make([]Session, len(sessions))
	for i, s := range sessions {
		out[i] = SessionFromModel(s)
	}
	return SessionList{Sessions: out, Count: len(out)}
}

// EmotionShare is one row of the emotion distribution
type EmotionShare struct {
	Emotion string  `json:"emotion"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// GamePerformance summarises one game
type GamePerformance struct {
	Game     string `json:"game"`
	Sessions int    `json:"sessions"`
	AvgScore int    `json:"avg_score"`
}

// Report is the aggregated profile view
type Report struct {
	UserID              string            `json:"user_id"`
	Username            string            `json:"username"`
	SuggestedGames      []string          `json:"suggested_games"`
	Emotions            []Emotion         `json:"emotions"`
	GamePlays           []GamePlay        `json:"game_plays"`
	EmotionDistribution []EmotionShare    `json:"emotion_distribution"`
	GamePerformance     []GamePerformance `json:"game_performance"`
	AverageScore        float64           `json:"average_score"`
	TotalSessions       int               `json:"total_sessions"`
	UniqueGames         int               `json:"unique_games"`
}

// ReportFromModel converts a model.Report
func ReportFromModel(r *model.Report) Report {
	out := Report{
		UserID:              string(r.UserID),
		Username:            r.Username,
		SuggestedGames:      append([]string{}, r.SuggestedGames...),
		Emotions:            make([]Emotion, len(r.Emotions)),
		GamePlays:           make([]GamePlay, len(r.GamePlays)),
		EmotionDistribution: make([]EmotionShare, len(r.EmotionDistribution)),
		GamePerformance:     make([]GamePerformance, len(r.GamePerformance)),
		AverageScore:        r.AverageScore,
		TotalSessions:       r.TotalSessions,
		UniqueGames:         r.UniqueGames,
	}
	for i, e := range r.Emotions {
		out.Emotions[i] = EmotionFromModel(e)
	}
	for i, p := range r.GamePlays {
		out.GamePlays[i] = GamePlayFromModel(p)
	}
	for i, d := range r.EmotionDistribution {
		out.EmotionDistribution[i] = EmotionShare{Emotion: d.Emotion, Count: d.Count, Percent: d.Percent}
	}
	for i, g := range r.GamePerformance {
		out.GamePerformance[i] = GamePerformance{Game: g.Game, Sessions: g.Sessions, AvgScore: g.AvgScore}
	}
	return out
}

// Health is the health check response
type Health struct {
	Status string `json:"status"`
}
