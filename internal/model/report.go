package model

// EmotionShare is one row of an emotion distribution
type EmotionShare struct {
	Emotion string
	Count   int
	Percent float64 // one decimal place
}

// GamePerformance summarises all sessions of one game
type GamePerformance struct {
	Game     string
	Sessions int
	AvgScore int // rounded to nearest integer
}

// Report is the aggregated view of a user's history
type Report struct {
	UserID         UserID
	Username       string
	SuggestedGames []string

	Emotions  []EmotionLog // profile log merged with session questions
	GamePlays []GamePlay   // profile log merged with sessions

	EmotionDistribution []EmotionShare
	GamePerformance     []GamePerformance

	AverageScore  float64 // across sessions, one decimal place
	TotalSessions int
	UniqueGames   int
}
