package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/server"
)

func newToolsCmd() *cobra.Command {
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the agent can call",
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := toolDefinitions(cmd, envBool(cmd, "read-only", "AGENT_READ_ONLY", readOnly))
			if err != nil {
				return err
			}
			return printToolTable(cmd.OutOrStdout(), defs)
		},
	}

	cmd.Flags().BoolVar(&readOnly, "read-only", false, "List the tools available in read-only mode")
	return cmd
}

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate tool documentation",
		Long: `Generate markdown documentation for all tools the agent can call.
The documentation is built from the registered tool definitions, so it always
matches what the model is offered.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := toolDefinitions(cmd, false)
			if err != nil {
				return err
			}

			tools := make([]mcp.Tool, len(defs))
			for i, d := range defs {
				tools[i] = d.Tool
			}
			markdown := generateToolsMarkdown(tools)

			if outputFile == "" {
				fmt.Fprint(cmd.OutOrStdout(), markdown)
				return nil
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// toolDefinitions builds the registry without Google credentials; clients
// are only created when a tool runs.
func toolDefinitions(cmd *cobra.Command, readOnly bool) ([]agent.ToolDefinition, error) {
	sc := server.NewServerContext(cmd.Context(), server.WithReadOnly(readOnly))
	defer func() { _ = sc.Shutdown() }()

	registry, err := buildRegistry(sc)
	if err != nil {
		return nil, err
	}
	return registry.Definitions(), nil
}

func printToolTable(w io.Writer, defs []agent.ToolDefinition) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tARGUMENTS\tDESCRIPTION")
	for _, d := range defs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name(), strings.Join(argumentSummary(d.Tool), ", "), firstSentence(d.Description()))
	}
	return tw.Flush()
}

// argumentSummary lists the tool's arguments, optional ones in brackets.
func argumentSummary(tool mcp.Tool) []string {
	names := sortedProperties(tool)
	out := make([]string, len(names))
	for i, name := range names {
		if contains(tool.InputSchema.Required, name) {
			out[i] = name
		} else {
			out[i] = "[" + name + "]"
		}
	}
	return out
}

func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Tools Reference\n\n")
	sb.WriteString("The agent offers these tools to the language model. With `serve` they are also available to MCP clients, together with `ask_agent`.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	toolsByCategory := groupToolsByCategory(tools)

	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	// Table of contents
	sb.WriteString("## Table of Contents\n\n")
	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))
		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}
	return categories
}

func getCategoryFromToolName(name string) string {
	switch {
	case strings.Contains(name, "email"):
		return "Email Tools"
	case strings.Contains(name, "calendar"):
		return "Calendar Tools"
	case name == "calculator":
		return "Utility Tools"
	default:
		return "Other"
	}
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))
	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	propNames := sortedProperties(tool)
	if len(propNames) == 0 {
		return sb.String()
	}

	sb.WriteString("**Arguments:**\n")
	for _, name := range propNames {
		propMap, ok := tool.InputSchema.Properties[name].(map[string]any)
		if !ok {
			continue
		}

		requiredStr := "optional"
		if contains(tool.InputSchema.Required, name) {
			requiredStr = "required"
		}
		propType := getPropertyType(propMap)

		sb.WriteString(fmt.Sprintf("- `%s` (%s, %s): ", name, propType, requiredStr))
		if desc, ok := propMap["description"].(string); ok {
			sb.WriteString(desc)
		} else {
			sb.WriteString(fmt.Sprintf("%s parameter", propType))
		}
		if def, ok := propMap["default"]; ok {
			sb.WriteString(fmt.Sprintf(" Default: `%v`.", def))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func sortedProperties(tool mcp.Tool) []string {
	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
