package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foundrylabs/foundry-go/pkg/foundry"
	"github.com/foundrylabs/foundry-go/pkg/models"
)

const defaultChatModel = "gpt-4o"

var (
	chatModel       string
	chatSystem      string
	chatTemperature float32
	chatMaxTokens   int
	chatNoStream    bool
)

func newChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <prompt>",
		Short: "Run a chat completion",
		Long: `Send a prompt to a chat model and print the reply. By default the
response is streamed to stdout as it is generated.

Examples:
  foundry chat "What is Go?"
  foundry chat --model gpt-4o-mini --system "Answer in French" "What is Go?"
  foundry chat --no-stream "What is Go?"`,
		Args: cobra.ExactArgs(1),
		RunE: runChat,
	}

	cmd.Flags().StringVarP(&chatModel, "model", "m", "", "Model deployment name (default from config, else "+defaultChatModel+")")
	cmd.Flags().StringVar(&chatSystem, "system", "", "System prompt")
	cmd.Flags().Float32Var(&chatTemperature, "temperature", 0, "Sampling temperature")
	cmd.Flags().IntVar(&chatMaxTokens, "max-tokens", 0, "Maximum completion tokens")
	cmd.Flags().BoolVar(&chatNoStream, "no-stream", false, "Wait for the full response instead of streaming")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	core, fileCfg, err := newSDKClient()
	if err != nil {
		return err
	}

	model := chatModel
	if model == "" {
		model = fileCfg.Model
	}
	if model == "" {
		model = defaultChatModel
	}

	var msgs []models.Message
	if chatSystem != "" {
		msgs = append(msgs, models.SystemMessage(chatSystem))
	}
	msgs = append(msgs, models.UserMessage(args[0]))

	req := models.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	}
	client := models.NewClient(core)
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if chatNoStream {
		resp, err := client.ChatCompletions(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("response contained no choices")
		}
		fmt.Fprintln(out, strings.TrimSpace(resp.Choices[0].Message.Content))
		return nil
	}

	stream, err := client.ChatCompletionsStream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	wrote := false
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var decodeErr *foundry.DecodeError
			if errors.As(err, &decodeErr) {
				continue
			}
			return err
		}
		for _, choice := range chunk.Choices {
			if choice.Index == 0 && choice.Delta.Content != "" {
				fmt.Fprint(out, choice.Delta.Content)
				wrote = true
			}
		}
	}
	if wrote {
		fmt.Fprintln(out)
	}
	return nil
}
