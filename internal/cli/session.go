package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joyverse/joyverse-backend/internal/api/response"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Game session commands",
	}

	cmd.AddCommand(newSessionLogCmd())
	cmd.AddCommand(newSessionCreateCmd())
	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionGetCmd())

	return cmd
}

func newSessionLogCmd() *cobra.Command {
	var (
		user, game, emotion, playthrough string
		question, score, finalScore      int
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record one answered question",
		Long: `Record one answered question. The answer is appended to the
open session for the game (or for --session-id), and a new session is
started when none is open. Passing --final-score closes the session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"user_id":         user,
				"game_name":       game,
				"question_number": question,
				"emotion":         emotion,
				"score":           score,
			}
			if playthrough != "" {
				req["session_id"] = playthrough
			}
			if cmd.Flags().Changed("final-score") {
				req["final_score"] = finalScore
			}

			var result response.Session
			if err := client.Post(cmd.Context(), "/sessions/observations", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Child id or username (defaults to the logged in user)")
	cmd.Flags().StringVar(&game, "game", "", "Game name (required)")
	cmd.Flags().StringVar(&emotion, "emotion", "", "Detected emotion (required)")
	cmd.Flags().StringVar(&playthrough, "session-id", "", "Client playthrough id")
	cmd.Flags().IntVar(&question, "question", 1, "Question number")
	cmd.Flags().IntVar(&score, "score", 0, "Score for the question")
	cmd.Flags().IntVar(&finalScore, "final-score", 0, "Final score; completes the session")
	_ = cmd.MarkFlagRequired("game")
	_ = cmd.MarkFlagRequired("emotion")

	return cmd
}

func newSessionCreateCmd() *cobra.Command {
	var (
		user, game string
		questions  []string
		finalScore int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Store a whole session in one call",
		Example: `  joyverse session create --game "Emotion Match" \
    --question 1:happiness:10 --question 2:sadness:0 --final-score 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			qs := make([]map[string]any, 0, len(questions))
			for _, s := range questions {
				q, err := parseQuestion(s)
				if err != nil {
					return err
				}
				qs = append(qs, q)
			}

			req := map[string]any{
				"user_id":   user,
				"game_name": game,
				"questions": qs,
			}
			if cmd.Flags().Changed("final-score") {
				req["final_score"] = finalScore
			}

			var result response.Session
			if err := client.Post(cmd.Context(), "/sessions", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Child id or username (defaults to the logged in user)")
	cmd.Flags().StringVar(&game, "game", "", "Game name (required)")
	cmd.Flags().StringArrayVar(&questions, "question", nil, "Answered question as number:emotion[:score] (repeatable)")
	cmd.Flags().IntVar(&finalScore, "final-score", 0, "Final score")
	_ = cmd.MarkFlagRequired("game")

	return cmd
}

func newSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <user>",
		Short: "List a user's sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.SessionList
			if err := client.Get(cmd.Context(), "/users/"+pathEscape(args[0])+"/sessions", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newSessionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Session
			if err := client.Get(cmd.Context(), "/sessions/"+pathEscape(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

// parseQuestion parses "number:emotion[:score]"
func parseQuestion(s string) (map[string]any, error) {
	bad := fmt.Errorf("invalid question %q, want number:emotion[:score]", s)

	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || parts[1] == "" {
		return nil, bad
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, bad
	}

	score := 0
	if len(parts) == 3 {
		if score, err = strconv.Atoi(parts[2]); err != nil {
			return nil, bad
		}
	}

	return map[string]any{
		"question_number": n,
		"emotion":         parts[1],
		"score":           score,
	}, nil
}
