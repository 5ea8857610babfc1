package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/fluidvision/decibel/internal/config"
	"github.com/fluidvision/decibel/internal/provider"
)

// editTranscription picks the backend first since the model list depends on it.
func editTranscription(cfg *config.Config) error {
	providerName := cfg.Transcription.Provider
	if provider.GetProvider(providerName) == nil {
		providerName = provider.ProviderGoogle
	}

	providerForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Speech Backend").
				Description("Streaming backends show words while you speak").
				Options(providerOptions()...).
				Value(&providerName),
		),
	).WithTheme(getTheme())
	if err := providerForm.Run(); err != nil {
		return err
	}

	p := provider.GetProvider(providerName)
	model := cfg.Transcription.Model
	if !provider.HasModel(p, model) {
		model = p.DefaultModel()
	}
	language := cfg.Transcription.Language
	keywords := strings.Join(cfg.Transcription.Keywords, ", ")
	maxDuration := formatDuration(cfg.Transcription.MaxDuration)
	stopOnFinal := cfg.Transcription.StopOnFinal

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model").
				Options(modelOptions(providerName)...).
				Value(&model),
			huh.NewSelect[string]().
				Title("Language").
				Description("Also picks the store country when search.country is empty").
				Options(languageOptions(language)...).
				Height(8).
				Value(&language),
			huh.NewInput().
				Title("Keywords").
				Description("Comma separated artist or song names to boost").
				Value(&keywords),
			huh.NewInput().
				Title("Maximum listening time").
				Description("e.g. 30s or 5m; empty for no limit").
				Validate(validateDuration).
				Value(&maxDuration),
			huh.NewConfirm().
				Title("Stop listening after the first final transcript?").
				Value(&stopOnFinal),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Transcription.Provider = providerName
	cfg.Transcription.Model = model
	cfg.Transcription.Language = language
	cfg.Transcription.Keywords = parseList(keywords)
	cfg.Transcription.MaxDuration = mustDuration(maxDuration)
	cfg.Transcription.StopOnFinal = stopOnFinal
	return nil
}

func editProviders(cfg *config.Config) error {
	keyed := keyedProviders()
	keys := make([]string, len(keyed))
	fields := make([]huh.Field, 0, len(keyed))

	for i, p := range keyed {
		desc := fmt.Sprintf("Leave empty to keep the current value or use %s", p.EnvVar())
		if pc, ok := cfg.Providers[p.Name()]; ok && pc.APIKey != "" {
			desc = fmt.Sprintf("Current: %s. Leave empty to keep it", maskAPIKey(pc.APIKey))
		}
		fields = append(fields, huh.NewInput().
			Title(p.DisplayName()+" API key").
			Description(desc).
			EchoMode(huh.EchoModePassword).
			Validate(func(s string) error {
				if s = strings.TrimSpace(s); s != "" && !p.ValidateAPIKey(s) {
					return fmt.Errorf("that does not look like a %s key", p.DisplayName())
				}
				return nil
			}).
			Value(&keys[i]))
	}

	form := huh.NewForm(huh.NewGroup(fields...).Title("API Keys")).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]config.ProviderConfig)
	}
	for i, p := range keyed {
		if key := strings.TrimSpace(keys[i]); key != "" {
			cfg.Providers[p.Name()] = config.ProviderConfig{APIKey: key}
		}
	}
	return nil
}

func editGoogle(cfg *config.Config) error {
	g := cfg.Google

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project ID").
				Description("Empty uses " + provider.EnvGoogleProject).
				Value(&g.ProjectID),
			huh.NewInput().
				Title("Location").
				Description("global, or a region like us-central1 for regional recognizers").
				Value(&g.Location),
			huh.NewInput().
				Title("Recognizer").
				Description("\"_\" uses the default recognizer").
				Value(&g.Recognizer),
			huh.NewInput().
				Title("Service account file").
				Description("Empty uses application default credentials").
				Value(&g.CredentialsFile),
			huh.NewInput().
				Title("Endpoint").
				Description("Empty derives it from the location").
				Value(&g.Endpoint),
		).Title("Google Cloud Speech"),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	g.ProjectID = strings.TrimSpace(g.ProjectID)
	g.Location = strings.TrimSpace(g.Location)
	g.Recognizer = strings.TrimSpace(g.Recognizer)
	cfg.Google = g
	return nil
}

func editSearch(cfg *config.Config) error {
	country := cfg.Search.Country

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("iTunes store country").
				Description("Two-letter code; empty uses the US store").
				Validate(validateCountry).
				Value(&country),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Search.Country = strings.ToLower(strings.TrimSpace(country))
	return nil
}

func editPlayer(cfg *config.Config) error {
	enabled := cfg.Player.Enabled
	command := cfg.Player.Command
	volume := strconv.Itoa(cfg.Player.Volume)
	fade := formatDuration(cfg.Player.Fade)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Play a preview of matched songs?").
				Value(&enabled),
			huh.NewInput().
				Title("Player command").
				Description("Any player that accepts mpv-style flags").
				Value(&command),
			huh.NewInput().
				Title("Volume").
				Validate(validateVolume).
				Value(&volume),
			huh.NewInput().
				Title("Fade in").
				Validate(validateDuration).
				Value(&fade),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Player.Enabled = enabled
	cfg.Player.Command = strings.TrimSpace(command)
	cfg.Player.Volume = mustInt(volume)
	cfg.Player.Fade = mustDuration(fade)
	return nil
}

func editHistory(cfg *config.Config) error {
	enabled := cfg.History.Enabled
	path := cfg.History.Path
	maxEntries := strconv.Itoa(cfg.History.MaxEntries)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Keep a history of transcripts and matches?").
				Value(&enabled),
			huh.NewInput().
				Title("Database path").
				Description("Empty uses $XDG_DATA_HOME/decibel/history.db").
				Value(&path),
			huh.NewInput().
				Title("Entries to keep").
				Description("0 keeps everything").
				Validate(validateNonNegativeInt).
				Value(&maxEntries),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.History.Enabled = enabled
	cfg.History.Path = strings.TrimSpace(path)
	cfg.History.MaxEntries = mustInt(maxEntries)
	return nil
}

func editPublish(cfg *config.Config) error {
	servers := strings.Join(cfg.Publish.Servers, ", ")
	prefix := cfg.Publish.SubjectPrefix
	token := ""

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("NATS servers").
				Description("Comma separated; empty disables publishing").
				Validate(validateServers).
				Value(&servers),
			huh.NewInput().
				Title("Subject prefix").
				Description("Events go to <prefix>.transcript, .session and .match").
				Value(&prefix),
			huh.NewInput().
				Title("Token").
				Description("Leave empty to keep the current token").
				EchoMode(huh.EchoModePassword).
				Value(&token),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Publish.Servers = parseList(servers)
	cfg.Publish.SubjectPrefix = strings.TrimSpace(prefix)
	if token = strings.TrimSpace(token); token != "" {
		cfg.Publish.Token = token
	}
	return nil
}

func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled
	notifType := cfg.Notifications.Type
	if notifType == "" {
		notifType = "desktop"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Description("Shown when listening starts and stops and when a song is found").
				Value(&enabled),
			huh.NewSelect[string]().
				Title("Notification Type").
				Options(
					huh.NewOption("Desktop notifications (notify-send)", "desktop"),
					huh.NewOption("Log to console only", "log"),
					huh.NewOption("None (silent)", "none"),
				).
				Value(&notifType),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	cfg.Notifications.Type = notifType
	return nil
}
