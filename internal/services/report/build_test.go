package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/joyverse/joyverse-backend/internal/model"
)

type BuildSuite struct {
	suite.Suite
	base time.Time
}

func TestBuildSuite(t *testing.T) {
	suite.Run(t, new(BuildSuite))
}

func (s *BuildSuite) SetupTest() {
	s.base = time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
}

func (s *BuildSuite) at(minutes int) time.Time {
	return s.base.Add(time.Duration(minutes) * time.Minute)
}

func (s *BuildSuite) session(id, game string, minutes int, score *int, emotions ...string) *model.GameSession {
	gs := &model.GameSession{
		ID:         model.SessionID(id),
		UserID:     "u-1",
		GameName:   game,
		FinalScore: score,
		Timestamp:  s.at(minutes),
	}
	for i, e := range emotions {
		gs.Questions = append(gs.Questions, model.Question{QuestionNumber: i + 1, Emotion: e, Score: 1})
	}
	return gs
}

func intPtr(v int) *int {
	return &v
}

func (s *BuildSuite) TestEmotionDistributionMergesProfileAndSessions() {
	user := &model.User{
		ID:       "u-1",
		Username: "kid",
		Emotions: []model.EmotionLog{{GameName: "WordWizard", QuestionNumber: 1, Emotion: "happy", Timestamp: s.at(0)}},
	}
	sessions := []*model.GameSession{s.session("s-1", "MathJungleRun", 5, nil, "sad", "happy")}

	r := Build(user, sessions)

	s.Equal([]model.EmotionShare{
		{Emotion: "happy", Count: 2, Percent: 66.7},
		{Emotion: "sad", Count: 1, Percent: 33.3},
	}, r.EmotionDistribution)
	s.Len(r.Emotions, 3)
}

func (s *BuildSuite) TestDistributionTiesKeepFirstOccurrence() {
	user := &model.User{ID: "u-1"}
	sessions := []*model.GameSession{s.session("s-1", "MathJungleRun", 0, nil, "sad", "angry", "happy", "angry", "sad", "happy")}

	r := Build(user, sessions)

	s.Require().Len(r.EmotionDistribution, 3)
	s.Equal("sad", r.EmotionDistribution[0].Emotion)
	s.Equal("angry", r.EmotionDistribution[1].Emotion)
	s.Equal("happy", r.EmotionDistribution[2].Emotion)
	s.InDelta(33.3, r.EmotionDistribution[0].Percent, 1e-9)
}

func (s *BuildSuite) TestPerGameAverage() {
	user := &model.User{ID: "u-1"}
	sessions := []*model.GameSession{
		s.session("s-1", "MathJungleRun", 0, intPtr(6)),
		s.session("s-2", "WordWizard", 1, intPtr(3)),
		s.session("s-3", "MathJungleRun", 2, intPtr(8)),
	}

	r := Build(user, sessions)

	s.Equal([]model.GamePerformance{
		{Game: "MathJungleRun", Sessions: 2, AvgScore: 7},
		{Game: "WordWizard", Sessions: 1, AvgScore: 3},
	}, r.GamePerformance)
	s.Equal(3, r.TotalSessions)
	s.Equal(2, r.UniqueGames)
	s.InDelta(5.7, r.AverageScore, 1e-9)
}

func (s *BuildSuite) TestMissingFinalScoreCountsAsZero() {
	user := &model.User{ID: "u-1"}
	sessions := []*model.GameSession{
		s.session("s-1", "MathJungleRun", 0, intPtr(9)),
		s.session("s-2", "MathJungleRun", 1, nil),
	}

	r := Build(user, sessions)

	s.Equal([]model.GamePerformance{{Game: "MathJungleRun", Sessions: 2, AvgScore: 5}}, r.GamePerformance)
	s.InDelta(4.5, r.AverageScore, 1e-9)
	s.Equal(0, r.GamePlays[1].FinalScore)
}

func (s *BuildSuite) TestAverageRoundsHalfUp() {
	user := &model.User{ID: "u-1"}
	sessions := []*model.GameSession{
		s.session("s-1", "WordWizard", 0, intPtr(2)),
		s.session("s-2", "WordWizard", 1, intPtr(3)),
	}

	r := Build(user, sessions)
	s.Equal(3, r.GamePerformance[0].AvgScore)
	s.InDelta(2.5, r.AverageScore, 1e-9)
}

func (s *BuildSuite) TestNoSessions() {
	user := &model.User{ID: "u-1", Username: "kid", SuggestedGames: []string{"WordWizard"}}

	r := Build(user, nil)

	s.Equal(0.0, r.AverageScore)
	s.Equal(0, r.TotalSessions)
	s.Empty(r.EmotionDistribution)
	s.NotNil(r.EmotionDistribution)
	s.Empty(r.GamePerformance)
	s.Equal([]string{"WordWizard"}, r.SuggestedGames)
}

func (s *BuildSuite) TestCombinedSequencesAreTimeOrdered() {
	user := &model.User{
		ID: "u-1",
		Emotions: []model.EmotionLog{
			{GameName: "WordWizard", Emotion: "neutral", Timestamp: s.at(10)},
		},
		GamePlays: []model.GamePlay{
			{GameName: "WordWizard", FinalScore: 4, Timestamp: s.at(10)},
		},
	}
	sessions := []*model.GameSession{
		s.session("s-1", "MathJungleRun", 0, intPtr(7), "happy"),
		s.session("s-2", "MathJungleRun", 20, intPtr(1), "sad"),
	}

	r := Build(user, sessions)

	s.Equal([]string{"happy", "neutral", "sad"}, []string{r.Emotions[0].Emotion, r.Emotions[1].Emotion, r.Emotions[2].Emotion})
	s.Equal("MathJungleRun", r.Emotions[0].GameName)
	s.True(s.at(0).Equal(r.Emotions[0].Timestamp))

	s.Require().Len(r.GamePlays, 3)
	s.Equal([]int{7, 4, 1}, []int{r.GamePlays[0].FinalScore, r.GamePlays[1].FinalScore, r.GamePlays[2].FinalScore})
}

func (s *BuildSuite) TestEqualTimestampsKeepProfileFirst() {
	user := &model.User{
		ID:       "u-1",
		Emotions: []model.EmotionLog{{Emotion: "fear", Timestamp: s.at(0)}},
	}
	sessions := []*model.GameSession{s.session("s-1", "MathJungleRun", 0, nil, "surprise")}

	r := Build(user, sessions)
	s.Equal("fear", r.Emotions[0].Emotion)
	s.Equal("surprise", r.Emotions[1].Emotion)
}
