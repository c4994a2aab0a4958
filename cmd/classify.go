package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tariff-cli/internal/model"
)

var (
	classifySession string
	classifyAnswers []string
)

var classifyCmd = &cobra.Command{
	Use:   "classify [product description]",
	Short: "Classify a product description into HS and commodity codes",
	Long:  "Runs the full classification pipeline for a product description. When clarification is needed the command prints the questions and a session id; re-run with --session and --answer id=value to continue.",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Close()

		var outcome *model.Outcome
		if classifySession != "" {
			answers, err := parseAnswers(classifyAnswers)
			if err != nil {
				return err
			}
			outcome, err = e.Pipeline.Continue(ctx, classifySession, answers, nil)
			if err != nil {
				return err
			}
		} else {
			if len(args) == 0 {
				return eris.New("classify: product description required")
			}
			outcome, err = e.Pipeline.Run(ctx, strings.Join(args, " "), nil)
			if err != nil {
				return err
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	},
}

// parseAnswers converts --answer id=value flags into clarification answers.
func parseAnswers(raw []string) ([]model.ClarificationAnswer, error) {
	answers := make([]model.ClarificationAnswer, 0, len(raw))
	for _, r := range raw {
		id, value, ok := strings.Cut(r, "=")
		if !ok || id == "" {
			return nil, eris.Errorf("classify: malformed answer %q, expected id=value", r)
		}
		answers = append(answers, model.ClarificationAnswer{QuestionID: id, Answer: value})
	}
	return answers, nil
}

func init() {
	classifyCmd.Flags().StringVar(&classifySession, "session", "", "continue a clarification session")
	classifyCmd.Flags().StringArrayVar(&classifyAnswers, "answer", nil, "clarification answer as id=value (repeatable)")
	rootCmd.AddCommand(classifyCmd)
}
