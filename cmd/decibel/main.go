package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/fluidvision/decibel/internal/bus"
	"github.com/fluidvision/decibel/internal/config"
	"github.com/fluidvision/decibel/internal/daemon"
	"github.com/fluidvision/decibel/internal/deps"
	"github.com/fluidvision/decibel/internal/tui"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "decibel",
	Short:         "Speak a song, hear its preview",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		busCmd("toggle", "Toggle recording on/off", bus.CmdToggle),
		busCmd("cancel", "Cancel the current recording without searching", bus.CmdCancel),
		busCmd("status", "Get daemon status", bus.CmdStatus),
		busCmd("version", "Get daemon protocol and build version", bus.CmdVersion),
		busCmd("pause", "Pause or resume the song preview", bus.CmdPause),
		busCmd("stop", "Stop the daemon", bus.CmdQuit),
		listenCmd(),
		transcribeCmd(),
		searchCmd(),
		historyCmd(),
		doctorCmd(),
		configureCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := mgr.StartWatching(ctx); err != nil {
				log.Printf("Config watcher unavailable, changes need a restart: %v", err)
			}
			defer mgr.Stop()

			d, err := daemon.FromConfig(ctx, mgr, version)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

// busCmd sends a single command byte to the running daemon and prints its reply.
func busCmd(use, short string, c byte) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(c)
			if err != nil {
				return fmt.Errorf("failed to %s: %w", use, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the external tools decibel relies on",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			playerCommand := ""
			if cfg.Player.Enabled {
				playerCommand = cfg.Player.Command
			}
			statuses := deps.CheckAll(deps.Tools(playerCommand, cfg.NotificationType() == "desktop"))

			out := cmd.OutOrStdout()
			for _, s := range statuses {
				switch {
				case s.Installed:
					fmt.Fprintf(out, "%s %-12s %s %s\n", tui.StyleSuccess.Render("✓"), s.Name, s.Path, tui.StyleMuted.Render(s.Version))
				case s.Optional:
					fmt.Fprintf(out, "%s %-12s not found (%s)\n", tui.StyleWarning.Render("!"), s.Name, s.Purpose)
				default:
					fmt.Fprintf(out, "%s %-12s not found (%s)\n", tui.StyleError.Render("✗"), s.Name, s.Purpose)
				}
			}

			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(out, "%s config: %v\n", tui.StyleError.Render("✗"), err)
				return errors.New("configuration is invalid")
			}
			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required tools: %v", missing)
			}
			fmt.Fprintln(out, tui.StyleSuccess.Render("All checks passed"))
			return nil
		},
	}
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration wizard for decibel.
Walks through the speech backend, provider keys, song search, preview
playback, history, event publishing and notifications.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	existing, err := config.Load()
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		existing = nil
	}

	result, err := tui.Run(existing)
	if err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}
	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println(tui.StyleSuccess.Render("Configuration saved successfully!"))
	fmt.Println()
	showNextSteps()
	return nil
}

func showNextSteps() {
	serviceRunning := false
	if err := exec.Command("systemctl", "--user", "is-active", "--quiet", "decibel.service").Run(); err == nil {
		serviceRunning = true
	}

	fmt.Println("Next Steps:")
	if !serviceRunning {
		fmt.Println("1. Start the service: systemctl --user start decibel.service")
	} else {
		fmt.Println("1. Restart the service for player, history and publish changes: systemctl --user restart decibel.service")
	}
	fmt.Println("2. Check your setup: decibel doctor")
	fmt.Println("3. Name a song: decibel toggle")
	fmt.Println()

	configPath, _ := config.GetConfigPath()
	fmt.Printf("Config file location: %s\n", configPath)
}

// loadConfig reads config.toml, falling back to the defaults when it does not exist yet.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrConfigNotFound) {
		log.Printf("No config file found, using defaults (run 'decibel configure' to create one)")
		return config.DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
