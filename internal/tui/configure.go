package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/fluidvision/decibel/internal/config"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionTranscription ConfigSection = "transcription"
	SectionProviders     ConfigSection = "providers"
	SectionGoogle        ConfigSection = "google"
	SectionSearch        ConfigSection = "search"
	SectionPlayer        ConfigSection = "player"
	SectionHistory       ConfigSection = "history"
	SectionPublish       ConfigSection = "publish"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run shows the configuration menu until the user saves or discards. A nil
// existingConfig starts from the defaults.
func Run(existingConfig *config.Config) (*ConfigureResult, error) {
	cfg := config.DefaultConfig()
	if existingConfig != nil {
		copied := *existingConfig
		copied.Providers = make(map[string]config.ProviderConfig, len(existingConfig.Providers))
		for k, v := range existingConfig.Providers {
			copied.Providers[k] = v
		}
		cfg = &copied
	}

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			if err := cfg.Validate(); err != nil {
				_ = huh.NewForm(huh.NewGroup(
					huh.NewNote().
						Title(StyleError.Render("Configuration is not valid")).
						Description(err.Error()).
						Next(true).
						NextLabel("Back"),
				)).WithTheme(getTheme()).Run()
				continue
			}
			confirmed, err := showSummary(cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: cfg}, nil
			}

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		default:
			edit := sectionEditors[section]
			if edit == nil {
				continue
			}
			// esc inside a section returns to the menu without applying it
			_ = edit(cfg)
		}
	}
}

var sectionEditors = map[ConfigSection]func(*config.Config) error{
	SectionTranscription: editTranscription,
	SectionProviders:     editProviders,
	SectionGoogle:        editGoogle,
	SectionSearch:        editSearch,
	SectionPlayer:        editPlayer,
	SectionHistory:       editHistory,
	SectionPublish:       editPublish,
	SectionNotifications: editNotifications,
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(formatTranscriptionLabel(cfg), SectionTranscription),
		huh.NewOption(formatProvidersLabel(cfg), SectionProviders),
		huh.NewOption("Google Cloud", SectionGoogle),
		huh.NewOption("Song Search", SectionSearch),
		huh.NewOption(formatToggleLabel("Preview Player", cfg.Player.Enabled), SectionPlayer),
		huh.NewOption(formatToggleLabel("History", cfg.History.Enabled), SectionHistory),
		huh.NewOption(formatToggleLabel("Event Publishing", len(cfg.Publish.Servers) > 0), SectionPublish),
		huh.NewOption(formatToggleLabel("Notifications", cfg.Notifications.Enabled), SectionNotifications),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}

	return selected, nil
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Configuration Summary"))
	fmt.Println()
	for _, line := range summaryLines(cfg) {
		fmt.Printf("  %s %s\n", StyleLabel.Render(line.label+":"), line.value)
	}
	fmt.Println()

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}

	return confirmed, nil
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
