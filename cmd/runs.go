package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List tracked research runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker, err := initTracker()
		if err != nil {
			return err
		}
		defer tracker.Close()

		projects, err := tracker.List(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTOPIC\tSTATUS\tQUESTIONS\tCITATIONS\tCREATED\tDIR")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				p.ID, p.Topic, p.Status, p.Questions, p.Citations,
				p.CreatedAt.Format("2006-01-02 15:04"), p.Dir)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
