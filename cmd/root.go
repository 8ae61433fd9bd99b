package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/samsaffron/line-llm/cmd.Version=...".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "line-llm",
	Short: "Bridge a LINE bot to a conversational LLM backend",
	Long: `line-llm receives LINE Messaging API webhooks, forwards messages to a
Dify app or the OpenAI Responses API, and replies with plain text, images
or Flex bubbles rendered from the answer's markdown.

Examples:
  line-llm serve                        # run the webhook server
  line-llm serve --setup                # configure the channel first
  line-llm render answer.md             # preview the Flex JSON for markdown
  line-llm config                       # view configuration`,
	Version:           Version,
	SilenceUsage:      true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
