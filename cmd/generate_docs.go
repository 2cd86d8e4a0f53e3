package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calendar-mcp/internal/agent"
	"github.com/teemow/calendar-mcp/internal/credentials"
	"github.com/teemow/calendar-mcp/internal/google"
	"github.com/teemow/calendar-mcp/internal/resources"
	"github.com/teemow/calendar-mcp/internal/server"
	"github.com/teemow/calendar-mcp/internal/tools/agent_tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:         "generate-docs",
		Annotations: map[string]string{annotationNoConfig: ""},
		Short:       "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// listTools registers every tool against a throwaway context. No credential
// or delegate is touched, only the tool definitions are read.
func listTools(ctx context.Context, tokenDir string) ([]mcp.Tool, error) {
	store := credentials.NewStore(tokenDir, credentials.WithoutIndex())
	serverContext, err := server.NewServerContext(ctx, server.Config{
		Manager:  google.NewManager(store, nil),
		Delegate: agent.Unavailable(errors.New("documentation only")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return nil, err
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}
	return tools, nil
}

func runGenerateDocs(outputFile string) error {
	tokenDir, err := os.MkdirTemp("", "calendar-mcp-docs-")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(tokenDir) }()

	tools, err := listTools(context.Background(), tokenDir)
	if err != nil {
		return err
	}

	markdown := generateToolsMarkdown(tools)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("Tools and resources available when running calendar-mcp as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	toolsByCategory := groupToolsByCategory(tools)
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	sb.WriteString("## Table of Contents\n\n")
	for _, category := range categories {
		fmt.Fprintf(&sb, "- [%s](#%s)\n", category, anchor(category))
	}
	fmt.Fprintf(&sb, "- [Resources](#resources)\n\n")

	sb.WriteString("## Gmail Accounts\n\n")
	sb.WriteString("The Gmail tools accept an optional `user_id` argument selecting whose stored credential is used:\n\n")
	sb.WriteString("- **Default behavior:** If `user_id` is not specified, the `default` account is used\n")
	sb.WriteString("- **Authorization:** Tools never open a browser, run `calendar-mcp auth login --user <id>` first\n\n")

	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		fmt.Fprintf(&sb, "## %s\n\n", category)
		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
		}
	}

	sb.WriteString("## Resources\n\n")
	sb.WriteString("| URI | Content |\n|---|---|\n")
	fmt.Fprintf(&sb, "| `%s` | Stored accounts with their credential state |\n", resources.AccountsURI)
	fmt.Fprintf(&sb, "| `%s` | Credential state of one account |\n", resources.AccountStatusTemplate)

	return sb.String()
}

func anchor(heading string) string {
	return strings.ToLower(strings.ReplaceAll(heading, " ", "-"))
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
	case strings.Contains(name, "gmail"):
		return "Gmail Tools"
	case name == "get_location" || name == "get_weather":
		return "Location Tools"
	case name == "web_search":
		return "Search Tools"
	case name == "create_project":
		return "Project Tools"
	case name == agent_tools.ToolName:
		return "Planning Tools"
	default:
		return "Other"
	}
}

// generateToolMarkdown renders one tool with an argument table. Properties
// that are not JSON schema objects are skipped.
func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	props := tool.InputSchema.Properties
	if len(props) == 0 {
		sb.WriteString("_No arguments._\n\n")
		return sb.String()
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteString("| Argument | Type | Required | Default | Description |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, name := range names {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		required := "no"
		if slices.Contains(tool.InputSchema.Required, name) {
			required = "yes"
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s | %s |\n",
			name, propertyType(prop), required, propertyDefault(prop), propertyDescription(prop))
	}
	sb.WriteString("\n")

	return sb.String()
}

func propertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func propertyDefault(prop map[string]any) string {
	v, ok := prop["default"]
	if !ok {
		return ""
	}
	return fmt.Sprintf("`%v`", v)
}

func propertyDescription(prop map[string]any) string {
	desc, _ := prop["description"].(string)
	return strings.ReplaceAll(desc, "|", "\\|")
}
