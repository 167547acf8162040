package cli

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/joyverse/joyverse-backend/internal/api/response"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User profile commands",
	}

	cmd.AddCommand(newUserGetCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserDeleteCmd())
	cmd.AddCommand(newUserSuggestCmd())
	cmd.AddCommand(newUserLogEmotionCmd())
	cmd.AddCommand(newUserLogGamePlayCmd())

	return cmd
}

func newUserGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id-or-username>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.User
			if err := client.Get(cmd.Context(), "/users/"+pathEscape(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newUserListCmd() *cobra.Command {
	var role, approved, parentName, parentContact string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users (therapists and admins)",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if role != "" {
				q.Set("role", role)
			}
			if approved != "" {
				q.Set("approved", approved)
			}
			if parentName != "" {
				q.Set("parent_name", parentName)
			}
			if parentContact != "" {
				q.Set("parent_contact", parentContact)
			}

			path := "/users"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var result response.UserList
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Filter by role")
	cmd.Flags().StringVar(&approved, "approved", "", "Filter by approval (true or false)")
	cmd.Flags().StringVar(&parentName, "parent-name", "", "Children of this parent")
	cmd.Flags().StringVar(&parentContact, "parent-contact", "", "Children with this parent contact")

	return cmd
}

func newUserDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), "/users/"+pathEscape(args[0])); err != nil {
				return err
			}

			output(cmd).PrintMessage("Deleted user " + args[0])
			return nil
		},
	}
}

func newUserSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <user> <game>",
		Short: "Suggest a game to a child (therapists and admins)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"game_name": args[1]}

			var result response.User
			if err := client.Post(cmd.Context(), "/users/"+pathEscape(args[0])+"/suggestions", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newUserLogEmotionCmd() *cobra.Command {
	var game, emotion string
	var question, score int

	cmd := &cobra.Command{
		Use:   "log-emotion <user>",
		Short: "Append to a user's profile emotion log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"game_name":       game,
				"question_number": question,
				"emotion":         emotion,
				"score":           score,
			}

			var result response.Emotion
			if err := client.Post(cmd.Context(), "/users/"+pathEscape(args[0])+"/emotions", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&game, "game", "", "Game name (required)")
	cmd.Flags().StringVar(&emotion, "emotion", "", "Detected emotion (required)")
	cmd.Flags().IntVar(&question, "question", 1, "Question number")
	cmd.Flags().IntVar(&score, "score", 0, "Score for the question")
	_ = cmd.MarkFlagRequired("game")
	_ = cmd.MarkFlagRequired("emotion")

	return cmd
}

func newUserLogGamePlayCmd() *cobra.Command {
	var game string
	var score int

	cmd := &cobra.Command{
		Use:   "log-gameplay <user>",
		Short: "Append a final score to a user's game-play log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"game_name":   game,
				"final_score": score,
			}

			var result response.GamePlay
			if err := client.Post(cmd.Context(), "/users/"+pathEscape(args[0])+"/game-plays", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&game, "game", "", "Game name (required)")
	cmd.Flags().IntVar(&score, "score", 0, "Final score")
	_ = cmd.MarkFlagRequired("game")

	return cmd
}
