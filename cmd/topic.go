package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/research-orchestrator/internal/pipeline"
)

var (
	topicPerspective string
	topicCount       int
)

var topicCmd = &cobra.Command{
	Use:   "topic <description>",
	Short: "Generate questions about a topic and research them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		topic := args[0]

		e, err := initEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		questions, err := pipeline.GenerateQuestions(ctx, e.researcher, topic, topicPerspective, topicCount)
		if err != nil {
			return eris.Wrap(err, "generate questions")
		}
		zap.L().Info("questions generated", zap.Int("count", len(questions)))
		for _, q := range questions {
			zap.L().Info("question", zap.Int("number", q.Number), zap.String("text", q.Text))
		}

		batch, err := executeRun(ctx, e, topic, topicPerspective, questions)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	},
}

func init() {
	topicCmd.Flags().StringVar(&topicPerspective, "perspective", "", "research perspective, e.g. \"an investor evaluating the market\"")
	topicCmd.Flags().IntVar(&topicCount, "count", 10, "number of questions to generate")
	rootCmd.AddCommand(topicCmd)
}
