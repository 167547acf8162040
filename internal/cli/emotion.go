package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newEmotionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emotion",
		Short: "Live emotion feed commands",
	}

	cmd.AddCommand(newEmotionPublishCmd())
	cmd.AddCommand(newEmotionWatchCmd())

	return cmd
}

func newEmotionPublishCmd() *cobra.Command {
	var game string

	cmd := &cobra.Command{
		Use:   "publish <user> <emotion>",
		Short: "Publish the emotion currently detected for yourself",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"emotion": args[1]}
			if game != "" {
				req["game_name"] = game
			}

			var result map[string]any
			if err := client.Post(cmd.Context(), "/users/"+pathEscape(args[0])+"/emotion/current", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&game, "game", "", "Game being played")

	return cmd
}

func newEmotionWatchCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "watch <user>",
		Short: "Stream a child's live emotions",
		Long: `Connect to the user's emotion stream and print updates as they
arrive. The last known emotion, if any, is sent first.

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := client.Stream(cmd.Context(), "/users/"+pathEscape(args[0])+"/emotion/stream")
			if err != nil {
				return err
			}
			defer func() { _ = body.Close() }()

			if !jsonOutput {
				fmt.Fprintf(cmd.OutOrStdout(), "Watching %s\n", args[0])
			}

			err = readEvents(body, func(evt StreamEvent) {
				printStreamEvent(cmd.OutOrStdout(), evt, jsonOutput)
			})
			if err != nil && cmd.Context().Err() == nil {
				return fmt.Errorf("stream error: %w", err)
			}

			if !jsonOutput {
				fmt.Fprintln(cmd.OutOrStdout(), "Disconnected")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// StreamEvent is one parsed server-sent event
type StreamEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

// readEvents parses an event stream and calls fn per complete event.
// Comment lines (keepalives) are skipped.
func readEvents(r io.Reader, fn func(StreamEvent)) error {
	scanner := bufio.NewScanner(r)
	var event string
	var data []string

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		case line == "":
			if event != "" {
				fn(StreamEvent{Time: time.Now(), Event: event, Data: strings.Join(data, "\n")})
			}
			event = ""
			data = nil
		}
	}
	return scanner.Err()
}

func printStreamEvent(w io.Writer, evt StreamEvent, jsonOutput bool) {
	if jsonOutput {
		line, _ := json.Marshal(evt)
		fmt.Fprintln(w, string(line))
		return
	}

	stamp := evt.Time.Format("2006-01-02 15:04:05")
	var update struct {
		Emotion  string `json:"emotion"`
		GameName string `json:"game_name"`
	}
	if evt.Event == "emotion" && json.Unmarshal([]byte(evt.Data), &update) == nil {
		if update.GameName != "" {
			fmt.Fprintf(w, "[%s] %s (%s)\n", stamp, update.Emotion, update.GameName)
		} else {
			fmt.Fprintf(w, "[%s] %s\n", stamp, update.Emotion)
		}
		return
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", stamp, evt.Event, strings.ReplaceAll(evt.Data, "\n", " "))
}
