package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/joyverse/joyverse-backend/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.User:
		o.printUser(v)
	case response.UserList:
		o.printUserList(v)
	case response.AuthResponse:
		o.printUser(v.User)
		fmt.Fprintf(o.w, "Token expires: %s\n", v.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	case response.Session:
		o.printSession(v)
	case response.SessionList:
		o.printSessionList(v)
	case response.Report:
		o.printReport(v)
	case response.Emotion:
		fmt.Fprintf(o.w, "Logged %s for %s question %d (score %d)\n", v.Emotion, v.GameName, v.QuestionNumber, v.Score)
	case response.GamePlay:
		fmt.Fprintf(o.w, "Logged %s final score %d\n", v.GameName, v.FinalScore)
	case response.Health:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		o.printJSON(data)
	}
}

func (o *Output) printUser(u response.User) {
	fmt.Fprintf(o.w, "User: %s (%s)\n", u.Username, u.ID)
	fmt.Fprintf(o.w, "Role: %s\n", u.Role)
	if u.Role == "therapist" {
		fmt.Fprintf(o.w, "Approval: %s\n", u.ApprovalStatus)
	}
	if u.Email != "" {
		fmt.Fprintf(o.w, "Email: %s\n", u.Email)
	}
	if u.ParentName != "" {
		fmt.Fprintf(o.w, "Parent: %s (%s)\n", u.ParentName, u.ParentContact)
	}
	if u.ChildAge > 0 {
		fmt.Fprintf(o.w, "Age: %d\n", u.ChildAge)
	}
	if len(u.SuggestedGames) > 0 {
		fmt.Fprintf(o.w, "Suggested: %s\n", strings.Join(u.SuggestedGames, ", "))
	}
}

func (o *Output) printUserList(l response.UserList) {
	fmt.Fprintf(o.w, "Users (%d):\n", l.Count)
	for _, u := range l.Users {
		fmt.Fprintf(o.w, "  - %s (%s) %s [%s]\n", u.Username, u.ID, u.Role, u.ApprovalStatus)
	}
}

func (o *Output) printSession(s response.Session) {
	fmt.Fprintf(o.w, "Session: %s\n", s.ID)
	fmt.Fprintf(o.w, "Game: %s\n", s.GameName)
	fmt.Fprintf(o.w, "Started: %s\n", s.Timestamp.Format("2006-01-02 15:04:05"))
	if s.FinalScore != nil {
		fmt.Fprintf(o.w, "Final score: %d\n", *s.FinalScore)
	} else {
		fmt.Fprintln(o.w, "Final score: (in progress)")
	}
	for _, q := range s.Questions {
		fmt.Fprintf(o.w, "  Q%d %-9s score %d\n", q.QuestionNumber, q.Emotion, q.Score)
	}
}

func (o *Output) printSessionList(l response.SessionList) {
	fmt.Fprintf(o.w, "Sessions (%d):\n", l.Count)
	for _, s := range l.Sessions {
		score := "-"
		if s.FinalScore != nil {
			score = fmt.Sprint(*s.FinalScore)
		}
		fmt.Fprintf(o.w, "  - %s %s %s questions=%d score=%s\n",
			s.Timestamp.Format("2006-01-02 15:04"), s.ID, s.GameName, len(s.Questions), score)
	}
}

func (o *Output) printReport(r response.Report) {
	fmt.Fprintf(o.w, "Report: %s (%s)\n", r.Username, r.UserID)
	fmt.Fprintf(o.w, "Sessions: %d across %d games, average score %.1f\n", r.TotalSessions, r.UniqueGames, r.AverageScore)

	if len(r.EmotionDistribution) > 0 {
		fmt.Fprintln(o.w, "\nEmotions:")
		for _, e := range r.EmotionDistribution {
			fmt.Fprintf(o.w, "  %-9s %3d  %5.1f%%\n", e.Emotion, e.Count, e.Percent)
		}
	}
	if len(r.GamePerformance) > 0 {
		fmt.Fprintln(o.w, "\nGames:")
		for _, g := range r.GamePerformance {
			fmt.Fprintf(o.w, "  %-20s sessions=%d avg=%d\n", g.Game, g.Sessions, g.AvgScore)
		}
	}
	if len(r.SuggestedGames) > 0 {
		fmt.Fprintf(o.w, "\nSuggested: %s\n", strings.Join(r.SuggestedGames, ", "))
	}
}
