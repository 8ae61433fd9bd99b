package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/samsaffron/line-llm/internal/flex"
	"github.com/spf13/cobra"
)

var (
	renderLegacyTableRemoval bool
	renderIndent             bool
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Print the Flex bubble JSON for markdown",
	Long: `Render markdown into the Flex bubble the webhook would send, and print
its JSON. Reads the file argument, or stdin when no file is given.

Examples:
  line-llm render answer.md
  echo '| A | B |' | line-llm render --indent`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	AddLegacyTableRemovalFlag(renderCmd, &renderLegacyTableRemoval)
	renderCmd.Flags().BoolVar(&renderIndent, "indent", false, "Indent the JSON output")
}

func runRender(cmd *cobra.Command, args []string) error {
	var (
		input []byte
		err   error
	)
	if len(args) == 1 && args[0] != "-" {
		input, err = os.ReadFile(args[0])
	} else {
		input, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("read markdown: %w", err)
	}

	renderer := flex.NewRenderer(flex.Options{ExactLineRemoval: renderLegacyTableRemoval}, nil)
	data, err := renderer.Render(string(input)).JSON()
	if err != nil {
		return err
	}

	if renderIndent {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
