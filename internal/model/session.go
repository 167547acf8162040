package model

import "time"

// SessionID uniquely identifies a game session
type SessionID string

// Question is a single answered question within a session
type Question struct {
	QuestionNumber int
	Emotion        string
	Score          int
}

// GameSession is one playthrough of a game by a user
type GameSession struct {
	ID       SessionID
	UserID   UserID
	GameName string

	// PlaythroughID is the identifier issued by the game client, if any
	PlaythroughID string

	Questions  []Question
	FinalScore *int // nil until the game reports completion

	Timestamp time.Time // creation time
}

// Score returns the final score, treating a missing score as 0
func (s *GameSession) Score() int {
	if s.FinalScore == nil {
		return 0
	}
	return *s.FinalScore
}

// Closed reports whether the session no longer accepts observations.
// Playthrough sessions stay open even after a final score arrives.
func (s *GameSession) Closed() bool {
	return s.PlaythroughID == "" && s.FinalScore != nil
}

// Clone returns a deep copy of the session
func (s *GameSession) Clone() *GameSession {
	c := *s
	c.Questions = append([]Question(nil), s.Questions...)
	if s.FinalScore != nil {
		v := *s.FinalScore
		c.FinalScore = &v
	}
	return &c
}

// Observation is a single question result reported by a game client
type Observation struct {
	UserID        UserID
	GameName      string
	PlaythroughID string // optional
	Question      Question
	FinalScore    *int // set when the game is over
}

// OpenKey names the session an observation is recorded into. Observations
// with a playthrough id share a session forever; observations without one
// go to the user's single open session for the game.
func (o Observation) OpenKey() string {
	if o.PlaythroughID != "" {
		return "pt:" + o.PlaythroughID
	}
	return "open"
}

// Completes reports whether recording the observation closes the open
// session, so the next anonymous observation starts a new one.
func (o Observation) Completes() bool {
	return o.PlaythroughID == "" && o.FinalScore != nil
}
