package cmd

import (
	"github.com/spf13/cobra"
)

// AddDebugFlag adds the --debug/-d flag
func AddDebugFlag(cmd *cobra.Command, dest *bool) {
	cmd.Flags().BoolVarP(dest, "debug", "d", false, "Log at debug level")
}

// AddListenFlags adds --host and --port. Defaults come from config; the
// flags only override when set.
func AddListenFlags(cmd *cobra.Command, host *string, port *int) {
	cmd.Flags().StringVar(host, "host", "", "Bind host (default from config, 127.0.0.1)")
	cmd.Flags().IntVar(port, "port", 0, "Bind port (default from config, 8080)")
}

// AddLegacyTableRemovalFlag adds the --legacy-table-removal flag
func AddLegacyTableRemovalFlag(cmd *cobra.Command, dest *bool) {
	cmd.Flags().BoolVar(dest, "legacy-table-removal", false, "Remove every line equal to a table line, anywhere in the document")
}
