package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/spetersoncode/kiln/state"
)

var stateDir string

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect run metadata",
}

var stateRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := state.Open(stateDir)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Runs(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tPIPELINE\tSTARTED\tITEMS\tSTATUS")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.PipelineName, r.StartedAt.Format(time.RFC3339), r.TotalItems, r.Status)
		}
		return w.Flush()
	},
}

var stateItemsCmd = &cobra.Command{
	Use:   "items <run-id>",
	Short: "List items recorded for a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := state.Open(stateDir)
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.Items(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tSTATUS")
		for _, it := range items {
			fmt.Fprintf(w, "%d\t%s\n", it.ItemIndex, it.Status)
		}
		return w.Flush()
	},
}

func init() {
	stateCmd.PersistentFlags().StringVar(&stateDir, "dir", ".kiln", "state directory")
	stateCmd.AddCommand(stateRunsCmd)
	stateCmd.AddCommand(stateItemsCmd)
	rootCmd.AddCommand(stateCmd)
}
