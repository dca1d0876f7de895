package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/research-orchestrator/internal/registry"
)

var (
	runQuestionsFile string
	runTopic         string
	runPerspective   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Research a batch of questions from a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		set, err := registry.Load(runQuestionsFile)
		if err != nil {
			return eris.Wrap(err, "load questions")
		}
		if runTopic != "" {
			set.Topic = runTopic
		}
		if runPerspective != "" {
			set.Perspective = runPerspective
		}
		if set.Topic == "" {
			set.Topic = "custom questions"
		}

		e, err := initEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		batch, err := executeRun(ctx, e, set.Topic, set.Perspective, set.Models())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	},
}

func init() {
	runCmd.Flags().StringVar(&runQuestionsFile, "questions", "", "question file, plain text or YAML (required)")
	runCmd.Flags().StringVar(&runTopic, "topic", "", "topic label for the run folder")
	runCmd.Flags().StringVar(&runPerspective, "perspective", "", "research perspective")
	_ = runCmd.MarkFlagRequired("questions")
	rootCmd.AddCommand(runCmd)
}
