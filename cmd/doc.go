// Package cmd implements the command-line interface for inboxagent.
//
// This package provides the following commands:
//   - ask: Answer one request, or start an interactive prompt without arguments
//   - serve: Serve the agent as an HTTP webhook and MCP server, or over MCP stdio
//   - auth: Authorize access to Gmail and Google Calendar
//   - tools: List the tools offered to the language model
//   - generate-docs: Generate markdown documentation for all tools
//   - version: Display version information
//
// The ask command is the default command when no subcommand is specified.
package cmd
