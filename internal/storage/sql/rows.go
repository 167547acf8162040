package sql

import (
	"time"

	"github.com/joyverse/joyverse-backend/internal/model"
)

type userRow struct {
	ID            string `gorm:"primaryKey;size:64"`
	Username      string `gorm:"size:64;not null;uniqueIndex"`
	PasswordHash  string `gorm:"not null"`
	Role          string `gorm:"size:16;not null;index"`
	Email         string
	ParentName    string
	ParentContact string `gorm:"size:32"`
	ChildAge      int
	IsApproved    bool      `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null;index"`

	Emotions       []emotionRow    `gorm:"foreignKey:UserID"`
	GamePlays      []gamePlayRow   `gorm:"foreignKey:UserID"`
	SuggestedGames []suggestionRow `gorm:"foreignKey:UserID"`
}

func (userRow) TableName() string { return "users" }

type emotionRow struct {
	ID             uint   `gorm:"primaryKey"`
	UserID         string `gorm:"size:64;not null;index"`
	GameName       string `gorm:"not null"`
	QuestionNumber int
	Emotion        string `gorm:"size:32"`
	Score          int
	Timestamp      time.Time
}

func (emotionRow) TableName() string { return "user_emotions" }

type gamePlayRow struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     string `gorm:"size:64;not null;index"`
	GameName   string `gorm:"not null"`
	FinalScore int
	Timestamp  time.Time
}

func (gamePlayRow) TableName() string { return "user_game_plays" }

type suggestionRow struct {
	ID       uint   `gorm:"primaryKey"`
	UserID   string `gorm:"size:64;not null;index"`
	GameName string `gorm:"not null"`
}

func (suggestionRow) TableName() string { return "user_suggested_games" }

type sessionRow struct {
	ID       string `gorm:"primaryKey;size:64"`
	UserID   string `gorm:"size:64;not null;uniqueIndex:idx_open_session,priority:1;index:idx_user_sessions,priority:1"`
	GameName string `gorm:"not null;uniqueIndex:idx_open_session,priority:2"`
	// OpenKey is NULL once the session can no longer receive
	// observations. NULLs never collide in the unique index.
	OpenKey       *string `gorm:"size:128;uniqueIndex:idx_open_session,priority:3"`
	PlaythroughID string  `gorm:"size:128"`
	FinalScore    *int
	Timestamp     time.Time `gorm:"column:started_at;not null;index:idx_user_sessions,priority:2"`

	Questions []questionRow `gorm:"foreignKey:SessionID"`
}

func (sessionRow) TableName() string { return "game_sessions" }

type questionRow struct {
	ID             uint   `gorm:"primaryKey"`
	SessionID      string `gorm:"size:64;not null;index"`
	QuestionNumber int
	Emotion        string `gorm:"size:32"`
	Score          int
}

func (questionRow) TableName() string { return "session_questions" }

// allTables lists every table in migration order
func allTables() []any {
	return []any{
		&userRow{},
		&emotionRow{},
		&gamePlayRow{},
		&suggestionRow{},
		&sessionRow{},
		&questionRow{},
	}
}

func toUserRow(u *model.User) userRow {
	row := userRow{
		ID:            string(u.ID),
		Username:      u.Username,
		PasswordHash:  u.PasswordHash,
		Role:          string(u.Role),
		Email:         u.Email,
		ParentName:    u.ParentName,
		ParentContact: u.ParentContact,
		ChildAge:      u.ChildAge,
		IsApproved:    u.IsApproved,
		CreatedAt:     u.CreatedAt,
	}
	for _, e := range u.Emotions {
		row.Emotions = append(row.Emotions, emotionRow{
			UserID:         row.ID,
			GameName:       e.GameName,
			QuestionNumber: e.QuestionNumber,
			Emotion:        e.Emotion,
			Score:          e.Score,
			Timestamp:      e.Timestamp,
		})
	}
	for _, p := range u.GamePlays {
		row.GamePlays = append(row.GamePlays, gamePlayRow{
			UserID:     row.ID,
			GameName:   p.GameName,
			FinalScore: p.FinalScore,
			Timestamp:  p.Timestamp,
		})
	}
	for _, g := range u.SuggestedGames {
		row.SuggestedGames = append(row.SuggestedGames, suggestionRow{UserID: row.ID, GameName: g})
	}
	return row
}

func (r userRow) toModel() *model.User {
	u := &model.User{
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
		IsApproved:     r.IsApproved,
		SuggestedGames: make([]string, 0, len(r.SuggestedGames)),
		Emotions:       make([]model.EmotionLog, 0, len(r.Emotions)),
		GamePlays:      make([]model.GamePlay, 0, len(r.GamePlays)),
		CreatedAt:      r.CreatedAt.UTC(),
	}
	for _, g := range r.SuggestedGames {
		u.SuggestedGames = append(u.SuggestedGames, g.GameName)
	}
	for _, e := range r.Emotions {
		u.Emotions = append(u.Emotions, model.EmotionLog{
			GameName:       e.GameName,
			QuestionNumber: e.QuestionNumber,
			Emotion:        e.Emotion,
			Score:          e.Score,
			Timestamp:      e.Timestamp.UTC(),
		})
	}
	for _, p := range r.GamePlays {
		u.GamePlays = append(u.GamePlays, model.GamePlay{
			GameName:   p.GameName,
			FinalScore: p.FinalScore,
			Timestamp:  p.Timestamp.UTC(),
		})
	}
	return u
}

func toSessionRow(s *model.GameSession) sessionRow {
	row := sessionRow{
		ID:            string(s.ID),
		UserID:        string(s.UserID),
		GameName:      s.GameName,
		PlaythroughID: s.PlaythroughID,
		FinalScore:    s.FinalScore,
		Timestamp:     s.Timestamp,
	}
	for _, q := range s.Questions {
		row.Questions = append(row.Questions, toQuestionRow(row.ID, q))
	}
	return row
}

func toQuestionRow(sessionID string, q model.Question) questionRow {
	return questionRow{
		SessionID:      sessionID,
		QuestionNumber: q.QuestionNumber,
		Emotion:        q.Emotion,
		Score:          q.Score,
	}
}

func (r sessionRow) toModel() *model.GameSession {
	s := &model.GameSession{
		ID:            model.SessionID(r.ID),
		UserID:        model.UserID(r.UserID),
		GameName:      r.GameName,
		PlaythroughID: r.PlaythroughID,
		Questions:     make([]model.Question, 0, len(r.Questions)),
		FinalScore:    r.FinalScore,
		Timestamp:     r.Timestamp.UTC(),
	}
	for _, q := range r.Questions {
		s.Questions = append(s.Questions, model.Question{
			QuestionNumber: q.QuestionNumber,
			Emotion:        q.Emotion,
			Score:          q.Score,
		})
	}
	return s
}
