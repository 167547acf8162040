package mongo

import (
	"time"

	"github.com/joyverse/joyverse-backend/internal/model"
)

// Collection names match the layout of the existing deployment
const (
	usersCollection    = "users"
	sessionsCollection = "gameSessions"
)

type userDocument struct {
	ID             string             `bson:"_id"`
	Username       string             `bson:"username"`
	Password       string             `bson:"password"` // bcrypt hash
	Role           string             `bson:"role"`
	Email          string             `bson:"email,omitempty"`
	ParentName     string             `bson:"parentName,omitempty"`
	ParentContact  string             `bson:"parentContact,omitempty"`
	ChildAge       int                `bson:"childAge,omitempty"`
	IsApproved     bool               `bson:"isApproved"`
	SuggestedGames []string           `bson:"suggestedGames"`
	Emotions       []emotionDocument  `bson:"emotions"`
	GamePlays      []gamePlayDocument `bson:"gamePlays"`
	CreatedAt      time.Time          `bson:"createdAt"`
}

type emotionDocument struct {
	GameName       string    `bson:"gameName"`
	QuestionNumber int       `bson:"questionNumber"`
	Emotion        string    `bson:"emotion"`
	Score          int       `bson:"score"`
	Timestamp      time.Time `bson:"timestamp"`
}

type gamePlayDocument struct {
	GameName   string    `bson:"gameName"`
	FinalScore int       `bson:"finalScore"`
	Timestamp  time.Time `bson:"timestamp"`
}

func toUserDocument(u *model.User) userDocument {
	doc := userDocument{
		ID:             string(u.ID),
		Username:       u.Username,
		Password:       u.PasswordHash,
		Role:           string(u.Role),
		Email:          u.Email,
		ParentName:     u.ParentName,
		ParentContact:  u.ParentContact,
		ChildAge:       u.ChildAge,
		IsApproved:     u.IsApproved,
		SuggestedGames: append([]string{}, u.SuggestedGames...),
		Emotions:       make([]emotionDocument, 0, len(u.Emotions)),
		GamePlays:      make([]gamePlayDocument, 0, len(u.GamePlays)),
		CreatedAt:      u.CreatedAt,
	}
	for _, e := range u.Emotions {
		doc.Emotions = append(doc.Emotions, emotionDocument(e))
	}
	for _, p := range u.GamePlays {
		doc.GamePlays = append(doc.GamePlays, gamePlayDocument(p))
	}
	return doc
}

func (d userDocument) toModel() *model.User {
	u := &model.User{
		ID:           model.UserID(d.ID),
		Username:     d.Username,
		PasswordHash: d.Password,
		Role:         model.Role(d.Role),
		Profile: model.Profile{
			Email:         d.Email,
			ParentName:    d.ParentName,
			ParentContact: d.ParentContact,
			ChildAge:      d.ChildAge,
		},
		IsApproved:     d.IsApproved,
		SuggestedGames: append([]string{}, d.SuggestedGames...),
		Emotions:       make([]model.EmotionLog, 0, len(d.Emotions)),
		GamePlays:      make([]model.GamePlay, 0, len(d.GamePlays)),
		CreatedAt:      d.CreatedAt,
	}
	for _, e := range d.Emotions {
		u.Emotions = append(u.Emotions, model.EmotionLog(e))
	}
	for _, p := range d.GamePlays {
		u.GamePlays = append(u.GamePlays, model.GamePlay(p))
	}
	return u
}

type sessionDocument struct {
	ID            string `bson:"_id"`
	UserID        string `bson:"userId"`
	GameName      string `bson:"gameName"`
	PlaythroughID string `bson:"playthroughId,omitempty"`
	// OpenKey is present only while observations may still be recorded
	// into the session; a partial unique index covers it.
	OpenKey    string             `bson:"openKey,omitempty"`
	Questions  []questionDocument `bson:"questions"`
	FinalScore *int               `bson:"finalScore,omitempty"`
	Timestamp  time.Time          `bson:"timestamp"`
}

type questionDocument struct {
	QuestionNumber int    `bson:"questionNumber"`
	Emotion        string `bson:"emotion"`
	Score          int    `bson:"score"`
}

func toSessionDocument(s *model.GameSession) sessionDocument {
	doc := sessionDocument{
		ID:            string(s.ID),
		UserID:        string(s.UserID),
		GameName:      s.GameName,
		PlaythroughID: s.PlaythroughID,
		Questions:     make([]questionDocument, 0, len(s.Questions)),
		FinalScore:    s.FinalScore,
		Timestamp:     s.Timestamp,
	}
	for _, q := range s.Questions {
		doc.Questions = append(doc.Questions, questionDocument(q))
	}
	return doc
}

func (d sessionDocument) toModel() *model.GameSession {
	s := &model.GameSession{
		ID:            model.SessionID(d.ID),
		UserID:        model.UserID(d.UserID),
		GameName:      d.GameName,
		PlaythroughID: d.PlaythroughID,
		Questions:     make([]model.Question, 0, len(d.Questions)),
		FinalScore:    d.FinalScore,
		Timestamp:     d.Timestamp,
	}
	for _, q := range d.Questions {
		s.Questions = append(s.Questions, model.Question(q))
	}
	return s
}
