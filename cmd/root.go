package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/calendar-mcp/internal/config"
	"github.com/teemow/calendar-mcp/internal/logging"
)

// rootCmd represents the base command for the calendar-mcp application
var rootCmd = &cobra.Command{
	Use:   "calendar-mcp",
	Short: "Personal assistant tools for AI agents over MCP",
	Long: `calendar-mcp exposes personal-assistant tools to AI agents.

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants (default)
  - An HTTP API that forwards planning requests to the agent delegate

Tools cover Gmail inbox checks with per-user OAuth credentials, IP based
location, current weather, web search, project intents and a planning
agent that turns a topic into a schedule.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, skip := cmd.Annotations[annotationNoConfig]; skip {
			return nil
		}
		return loadRootConfig(cmd)
	},
}

// annotationNoConfig marks commands that run without loading the configuration.
const annotationNoConfig = "no-config"

// version will be set by main
var version = "dev"

var (
	configFile      string
	debugMode       bool
	logFormat       string
	tokenDir        string
	credentialsFile string

	appConfig *config.Config
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calendar-mcp version %s\n" .Version}}`)

	// Without a subcommand the MCP server is started on stdio
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file (can also be set via CALENDAR_MCP_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logging.FormatText), "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&tokenDir, "token-dir", "", "Directory holding per-user OAuth credentials (can also be set via GMAIL_TOKEN_DIR)")
	rootCmd.PersistentFlags().StringVar(&credentialsFile, "credentials-file", "", "OAuth client secret file (can also be set via GMAIL_CREDENTIALS_FILE)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAPICmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newAccountsCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadRootConfig resolves the configuration once per invocation. Flags win
// over environment and file values, but only when set explicitly.
func loadRootConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("token-dir") {
		cfg.TokenDir = tokenDir
	}
	if flags.Changed("credentials-file") {
		cfg.CredentialsFile = credentialsFile
	}

	switch logging.Format(logFormat) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid --log-format %q, must be text or json", logFormat)
	}

	appConfig = cfg
	return nil
}

// newLogger returns the process logger. It always writes to stderr since
// stdout carries the MCP protocol stream in stdio mode.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	logger := logging.New(os.Stderr, level, logging.Format(logFormat))
	slog.SetDefault(logger)
	return logger
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version number of calendar-mcp",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoConfig: ""},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "calendar-mcp version %s\n", version)
		},
	}
}
