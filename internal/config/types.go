package config

import "time"

type Config struct {
	Recording     RecordingConfig           `toml:"recording"`
	Transcription TranscriptionConfig       `toml:"transcription"`
	Providers     map[string]ProviderConfig `toml:"providers"`
	Google        GoogleConfig              `toml:"google"`
	Search        SearchConfig              `toml:"search"`
	Player        PlayerConfig              `toml:"player"`
	History       HistoryConfig             `toml:"history"`
	Publish       PublishConfig             `toml:"publish"`
	Notifications NotificationsConfig       `toml:"notifications"`
}

// ProviderConfig holds API key for a provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}

type RecordingConfig struct {
	SampleRate        int    `toml:"sample_rate"`
	Channels          int    `toml:"channels"`
	Format            string `toml:"format"`
	BufferSize        int    `toml:"buffer_size"`
	Device            string `toml:"device"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
}

type TranscriptionConfig struct {
	Provider     string        `toml:"provider"`
	Language     string        `toml:"language"`
	Model        string        `toml:"model"`
	Keywords     []string      `toml:"keywords"`
	FlushOnStop  bool          `toml:"flush_on_stop"`
	FlushTimeout time.Duration `toml:"flush_timeout"`
	MaxDuration  time.Duration `toml:"max_duration"` // 0 = unlimited
	StopOnFinal  bool          `toml:"stop_on_final"`
}

// GoogleConfig identifies the Speech-to-Text v2 recognizer
type GoogleConfig struct {
	ProjectID       string `toml:"project_id"`
	Location        string `toml:"location"`
	Recognizer      string `toml:"recognizer"`
	CredentialsFile string `toml:"credentials_file"`
	Endpoint        string `toml:"endpoint"`
}

type SearchConfig struct {
	Country string        `toml:"country"`
	BaseURL string        `toml:"base_url"`
	Timeout time.Duration `toml:"timeout"`
}

type PlayerConfig struct {
	Enabled  bool          `toml:"enabled"`
	Command  string        `toml:"command"`
	CacheDir string        `toml:"cache_dir"`
	Fade     time.Duration `toml:"fade"`
	Volume   int           `toml:"volume"`
}

type HistoryConfig struct {
	Enabled    bool   `toml:"enabled"`
	Path       string `toml:"path"` // empty = $XDG_DATA_HOME/decibel/history.db
	MaxEntries int    `toml:"max_entries"`
}

type PublishConfig struct {
	Servers        []string      `toml:"servers"`
	SubjectPrefix  string        `toml:"subject_prefix"`
	Token          string        `toml:"token"`
	Username       string        `toml:"username"`
	Password       string        `toml:"password"`
	TLSCAFile      string        `toml:"tls_ca_file"`
	TLSCertFile    string        `toml:"tls_cert_file"`
	TLSKeyFile     string        `toml:"tls_key_file"`
	TLSInsecure    bool          `toml:"tls_insecure"` // skips certificate verification; tls:// servers verify by default
	ConnectTimeout time.Duration `toml:"connect_timeout"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}
