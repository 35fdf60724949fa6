package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codefionn/toolguard/internal/config"
	"github.com/codefionn/toolguard/internal/logger"
)

var (
	// Global flags
	configPath string
	rootDir    string
	logLevel   string

	cfg *config.Config
	app *application
)

var version = "dev"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "toolguard",
	Short: "toolguard - sandboxed tool execution for autonomous agents",
	Long: `toolguard validates and executes agent tool calls inside a project
boundary: path containment with link-by-link symlink resolution, allowlisted
command execution with a restricted environment, and a stripped script
sandbox whose only effects flow back through the same validators.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.GetConfigPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if rootDir != "" {
			cfg.DefaultRoot = rootDir
		}
		if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		app, err = newApplication(cfg)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.close()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("toolguard %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", "", "project root for direct (sessionless) calls")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, none)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(tasksCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
