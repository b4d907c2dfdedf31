package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the CLI.
func SetVersion(v string) {
	version = v
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "inboxagent",
		Short: "An email and calendar assistant that calls tools to answer requests",
		Long: `inboxagent answers natural-language requests such as "Summarize my last
3 emails" or "What's 7*8?". A language model decides which tools to call
(Gmail, Google Calendar, a calculator) until it can give a final answer.

It can run as:
  - An interactive prompt or one-shot CLI (ask, the default)
  - An HTTP webhook and MCP server (serve)`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(`{{printf "inboxagent version %s\n" .Version}}`)

	root.AddCommand(
		newAskCmd(),
		newServeCmd(),
		newAuthCmd(),
		newToolsCmd(),
		newGenerateDocsCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI with os.Args. Without a subcommand the interactive
// prompt is started.
func Execute() {
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"ask"}
	}

	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
