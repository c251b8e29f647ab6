// Package config provides the configuration schema and YAML loader for the
// Vocero TTS server and CLI.
package config

import "github.com/MrWong99/vocero/pkg/voice"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader]; every field has a working
// default, so an empty file is a valid configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Directory DirectoryConfig `yaml:"directory"`
	Engines   EnginesConfig   `yaml:"engines"`
	Selection SelectionConfig `yaml:"selection"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
}

// ServerConfig holds network and logging settings for the REST server.
type ServerConfig struct {
	// ListenAddr is the TCP address the REST server listens on
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// DirectoryConfig tunes the voice directory cache.
type DirectoryConfig struct {
	// TTLSeconds is how long a voice snapshot stays current before the
	// next read triggers a refresh. 0 means the built-in default (300).
	TTLSeconds int `yaml:"ttl_seconds"`

	// SourceTimeoutSeconds bounds each voice source query during a
	// refresh. 0 means the built-in default (10).
	SourceTimeoutSeconds int `yaml:"source_timeout_seconds"`
}

// EnginesConfig configures the synthesis backends.
type EnginesConfig struct {
	Native NativeEngineConfig `yaml:"native"`
	AI     AIEngineConfig     `yaml:"ai"`
}

// NativeEngineConfig configures the OS-native TTS command.
type NativeEngineConfig struct {
	// Command pins the TTS binary ("say", "espeak-ng"). Empty means
	// platform detection.
	Command string `yaml:"command"`
}

// AIEngineConfig configures the XTTS server connection.
type AIEngineConfig struct {
	// ServerURL is the XTTS API base URL (e.g., "http://localhost:8020").
	// Empty disables the AI engine.
	ServerURL string `yaml:"server_url"`

	// Language is the code sent to the server when a request carries
	// none. Defaults to "es".
	Language string `yaml:"language"`

	// TimeoutSeconds bounds each synthesis HTTP call. 0 means the
	// built-in default (60).
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// SelectionConfig tunes the engine decision rules.
type SelectionConfig struct {
	// AIPreferredLanguages lists language codes routed to the AI engine
	// because they render poorly on the native one. Empty means the
	// built-in list (ar, zh, ja, ko, hi, th, vi).
	AIPreferredLanguages []voice.Language `yaml:"ai_preferred_languages"`
}

// DefaultsConfig supplies request fields front-ends leave empty.
type DefaultsConfig struct {
	// Voice is the default voice query.
	Voice string `yaml:"voice"`

	// Language is the default target language.
	Language voice.Language `yaml:"language"`

	// Rate, Volume and Pitch are default prosody multipliers. 0 means
	// the engine default (1.0).
	Rate   float64 `yaml:"rate"`
	Volume float64 `yaml:"volume"`
	Pitch  float64 `yaml:"pitch"`

	// Format is the default file output container ("wav" or "aiff").
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Engines: EnginesConfig{
			AI: AIEngineConfig{
				Language: "es",
			},
		},
		Defaults: DefaultsConfig{
			Language: voice.Spanish,
		},
	}
}
