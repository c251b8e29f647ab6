package config

import "github.com/MrWong99/vocero/pkg/voice"

// DiffResult describes what changed between two configs. Only fields that can be
// applied without a restart are tracked; engine and server wiring changes
// require a new process.
type DiffResult struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	DefaultsChanged bool
	NewDefaults     DefaultsConfig

	SelectionChanged bool
	NewSelection     SelectionConfig
}

// Any reports whether the diff carries at least one hot-reloadable change.
func (d DiffResult) Any() bool {
	return d.LogLevelChanged || d.DefaultsChanged || d.SelectionChanged
}

// Diff compares old and new configs and returns the hot-reloadable changes.
func Diff(old, new *Config) DiffResult {
	var d DiffResult

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Defaults != new.Defaults {
		d.DefaultsChanged = true
		d.NewDefaults = new.Defaults
	}

	if !equalLanguages(old.Selection.AIPreferredLanguages, new.Selection.AIPreferredLanguages) {
		d.SelectionChanged = true
		d.NewSelection = new.Selection
	}

	return d
}

func equalLanguages(a, b []voice.Language) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
