package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foundrylabs/foundry-go/pkg/models"
)

const defaultEmbedModel = "text-embedding-3-small"

var (
	embedModel      string
	embedDimensions int
	embedJSON       bool
)

func newEmbedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed <text>...",
		Short: "Compute text embeddings",
		Long: `Compute embedding vectors for one or more texts. By default a short
summary is printed per input; use --json for the full vectors.

Examples:
  foundry embed "hello world"
  foundry embed --model text-embedding-3-large --dimensions 256 "a" "b"
  foundry embed --json "hello world"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runEmbed,
	}

	cmd.Flags().StringVarP(&embedModel, "model", "m", defaultEmbedModel, "Embedding model deployment name")
	cmd.Flags().IntVar(&embedDimensions, "dimensions", 0, "Requested vector dimensions")
	cmd.Flags().BoolVar(&embedJSON, "json", false, "Print full vectors as JSON")

	return cmd
}

func runEmbed(cmd *cobra.Command, args []string) error {
	core, _, err := newSDKClient()
	if err != nil {
		return err
	}
	client := models.NewClient(core)

	resp, err := client.Embeddings(cmd.Context(), models.EmbeddingRequest{
		Model:      embedModel,
		Input:      args,
		Dimensions: embedDimensions,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if embedJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	for _, item := range resp.Data {
		input := ""
		if item.Index < len(args) {
			input = args[item.Index]
		}
		fmt.Fprintf(out, "[%d] %q: %d dimensions\n", item.Index, input, len(item.Embedding))
	}
	fmt.Fprintf(out, "tokens used: %d\n", resp.Usage.TotalTokens)
	return nil
}
