package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"
)

const explainSystemPrompt = `You are a football defensive-performance analyst. You are given structured
data from a match-risk analysis tool and a question from the coaching staff.

Rules:
- Answer ONLY from the data provided. Never invent or estimate statistics.
- Always cite specific numbers when making a claim.
- If the data is insufficient to answer confidently, say so explicitly.
- Be concise and actionable — focus on what the team can actually train.
- Avoid generic football advice unless it directly explains a pattern in the data.

Metrics glossary:
- Risk score: per-second defensive danger, 0–100. A conceded goal forces 100.
- Danger episode: a sustained risk peak with its surrounding window.
- Severity: critical (score ≥85 or a goal), high (70–85), moderate (below).
- Active codes: tagged event types overlapping the episode window; opponent
  codes describe their attack, own codes describe our defensive phase.
- Fingerprint: the most weighted codes entering play in the minute before the
  peak, in the order they appeared.
- Goal rate: share of a pattern's occurrences that ended in a conceded goal.
- Baseline: corpus-wide goal rate over all analyzed episodes.
- Lift: pattern goal rate ÷ baseline. >1 means more dangerous than typical.
- Confidence: Bayesian probability the pattern beats the baseline, discounted
  for small samples. Tiers: high ≥0.70, medium ≥0.45, else low.
- Avg time to goal: mean seconds from the risk peak to the conceded goal,
  over goal occurrences only. Negative means no goal followed in time.`

var (
	explainModel  string
	explainAPIKey string
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "AI-powered grounded explanation (requires ANTHROPIC_API_KEY)",
}

var explainDangerCmd = &cobra.Command{
	Use:   "danger <match-id-prefix> <episode#> <question>",
	Short: "Explain a danger episode with AI",
	Args:  cobra.ExactArgs(3),
	RunE:  runExplainDanger,
}

var explainPatternCmd = &cobra.Command{
	Use:   "pattern <pattern#> <question>",
	Short: "Explain a mined concession pattern with AI",
	Args:  cobra.ExactArgs(2),
	RunE:  runExplainPattern,
}

func init() {
	explainCmd.PersistentFlags().StringVar(&explainModel, "model", "claude-haiku-4-5-20251001", "Anthropic model to use")
	explainCmd.PersistentFlags().StringVar(&explainAPIKey, "api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")

	explainCmd.AddCommand(explainDangerCmd)
	explainCmd.AddCommand(explainPatternCmd)
}

func runExplainDanger(cmd *cobra.Command, args []string) error {
	pack, err := dangerPack(args[0], args[1])
	if err != nil {
		return err
	}
	data, err := json.Marshal(pack)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}
	return callAnthropic(cmd.Context(), explainAPIKey, explainModel, string(data), args[2])
}

func runExplainPattern(cmd *cobra.Command, args []string) error {
	pack, err := patternPack(args[0])
	if err != nil {
		return err
	}
	data, err := json.Marshal(pack)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}
	return callAnthropic(cmd.Context(), explainAPIKey, explainModel, string(data), args[1])
}

// callAnthropic streams a response from the Anthropic API and prints it to stdout.
func callAnthropic(ctx context.Context, apiKey, modelID, dataJSON, question string) error {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)

	fmt.Fprintln(os.Stdout, "\n─── AI Analysis ─────────────────────────────────────")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: explainSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				fmt.Fprint(os.Stdout, delta.Delta.AsTextDelta().Text)
			}
		}
	}
	fmt.Fprintln(os.Stdout, "\n─────────────────────────────────────────────────────")

	if err := stream.Err(); err != nil {
		// Provide a cleaner error message for common API errors.
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return fmt.Errorf("API authentication failed — check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	return nil
}
