// Command kiln runs YAML-defined dataset synthesis pipelines and inspects
// their run metadata.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "kiln",
	Short: "Synthetic dataset pipeline engine",
	Long: `kiln runs batch pipelines that synthesize LLM training datasets:
sampling source rows, generating with LLM providers, filtering and
deduplicating, and writing JSONL/CSV corpora.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
