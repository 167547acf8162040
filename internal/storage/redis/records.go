package redis

import (
	"time"

	"github.com/joyverse/joyverse-backend/internal/model"
)

// userRecord is the JSON stored in the "profile" field of a user hash.
// Approval lives in its own field so scripts can flip it.
type userRecord struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"password_hash"`
	Role          string    `json:"role"`
	Email         string    `json:"email,omitempty"`
	ParentName    string    `json:"parent_name,omitempty"`
	ParentContact string    `json:"parent_contact,omitempty"`
	ChildAge      int       `json:"child_age,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toUserRecord(u *model.User) userRecord {
	return userRecord{
		ID:            string(u.ID),
		Username:      u.Username,
		PasswordHash:  u.PasswordHash,
		Role:          string(u.Role),
		Email:         u.Email,
		ParentName:    u.ParentName,
		ParentContact: u.ParentContact,
		ChildAge:      u.ChildAge,
		CreatedAt:     u.CreatedAt,
	}
}

func (r userRecord) toModel(approved bool) *model.User {
	return &model.User{
		ID:           model.UserID(r.ID),
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Role:         model.Role(r.Role),
		Profile: model.Profile{
			Email:         r.Email,
			ParentName:    r.ParentName,
			ParentContact: r.ParentContact,
			ChildAge:      r.ChildAge,
		},
		IsApproved:     approved,
		SuggestedGames: []string{},
		Emotions:       []model.EmotionLog{},
		GamePlays:      []model.GamePlay{},
		CreatedAt:      r.CreatedAt,
	}
}

type emotionRecord struct {
	GameName       string    `json:"game_name"`
	QuestionNumber int       `json:"question_number"`
	Emotion        string    `json:"emotion"`
	Score          int       `json:"score"`
	Timestamp      time.Time `json:"timestamp"`
}

type gamePlayRecord struct {
	GameName   string    `json:"game_name"`
	FinalScore int       `json:"final_score"`
	Timestamp  time.Time `json:"timestamp"`
}

// sessionRecord is the JSON stored in the "meta" field of a session hash
type sessionRecord struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	GameName      string    `json:"game_name"`
	PlaythroughID string    `json:"playthrough_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func toSessionRecord(s *model.GameSession) sessionRecord {
	return sessionRecord{
		ID:            string(s.ID),
		UserID:        string(s.UserID),
		GameName:      s.GameName,
		PlaythroughID: s.PlaythroughID,
		Timestamp:     s.Timestamp,
	}
}

type questionRecord struct {
	QuestionNumber int    `json:"question_number"`
	Emotion        string `json:"emotion"`
	Score          int    `json:"score"`
}

// timeScore converts a timestamp into a sorted-set score
func timeScore(t time.Time) float64 {
	return float64(t.UnixMilli())
}
