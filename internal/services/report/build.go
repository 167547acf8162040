package report

import (
	"cmp"
	"math"
	"slices"

	"github.com/joyverse/joyverse-backend/internal/model"
)

// Build aggregates a user's profile logs and game sessions. It is a pure
// function of its inputs; sessions are expected oldest first.
func Build(user *model.User, sessions []*model.GameSession) *model.Report {
	emotions := combinedEmotions(user, sessions)
	gamePlays := combinedGamePlays(user, sessions)
	performance := gamePerformance(sessions)

	return &model.Report{
		UserID:              user.ID,
		Username:            user.Username,
		SuggestedGames:      append([]string{}, user.SuggestedGames...),
		Emotions:            emotions,
		GamePlays:           gamePlays,
		EmotionDistribution: distribution(emotions),
		GamePerformance:     performance,
		AverageScore:        averageScore(sessions),
		TotalSessions:       len(sessions),
		UniqueGames:         len(performance),
	}
}

// combinedEmotions merges the profile log with every session question.
// Questions carry their session's timestamp.
func combinedEmotions(user *model.User, sessions []*model.GameSession) []model.EmotionLog {
	out := make([]model.EmotionLog, 0, len(user.Emotions))
	out = append(out, user.Emotions...)
	for _, s := range sessions {
		for _, q := range s.Questions {
			out = append(out, model.EmotionLog{
				GameName:       s.GameName,
				QuestionNumber: q.QuestionNumber,
				Emotion:        q.Emotion,
				Score:          q.Score,
				Timestamp:      s.Timestamp,
			})
		}
	}
	slices.SortStableFunc(out, func(a, b model.EmotionLog) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}

func combinedGamePlays(user *model.User, sessions []*model.GameSession) []model.GamePlay {
	out := make([]model.GamePlay, 0, len(user.GamePlays)+len(sessions))
	out = append(out, user.GamePlays...)
	for _, s := range sessions {
		out = append(out, model.GamePlay{
			GameName:   s.GameName,
			FinalScore: s.Score(),
			Timestamp:  s.Timestamp,
		})
	}
	slices.SortStableFunc(out, func(a, b model.GamePlay) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}

// distribution counts labels, most frequent first. Equal counts keep the
// order in which the labels first appear.
func distribution(emotions []model.EmotionLog) []model.EmotionShare {
	shares := []model.EmotionShare{}
	index := make(map[string]int)
	for _, e := range emotions {
		i, ok := index[e.Emotion]
		if !ok {
			i = len(shares)
			index[e.Emotion] = i
			shares = append(shares, model.EmotionShare{Emotion: e.Emotion})
		}
		shares[i].Count++
	}

	total := float64(len(emotions))
	for i := range shares {
		shares[i].Percent = roundTenth(float64(shares[i].Count) * 100 / total)
	}

	slices.SortStableFunc(shares, func(a, b model.EmotionShare) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return shares
}

// gamePerformance groups sessions by game in order of first appearance.
// A session without a final score counts as 0.
func gamePerformance(sessions []*model.GameSession) []model.GamePerformance {
	perf := []model.GamePerformance{}
	totals := []int{}
	index := make(map[string]int)
	for _, s := range sessions {
		i, ok := index[s.GameName]
		if !ok {
			i = len(perf)
			index[s.GameName] = i
			perf = append(perf, model.GamePerformance{Game: s.GameName})
			totals = append(totals, 0)
		}
		perf[i].Sessions++
		totals[i] += s.Score()
	}

	for i := range perf {
		perf[i].AvgScore = int(math.Floor(float64(totals[i])/float64(perf[i].Sessions) + 0.5))
	}
	return perf
}

func averageScore(sessions []*model.GameSession) float64 {
	if len(sessions) == 0 {
		return 0
	}
	total := 0
	for _, s := range sessions {
		total += s.Score()
	}
	return roundTenth(float64(total) / float64(len(sessions)))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
