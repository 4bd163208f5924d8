package config

import (
	"reflect"
	"slices"
)

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// HarnessChanged is true when buffering sizes, sample rate or the
	// detection threshold changed.
	HarnessChanged bool

	ModelChanged bool

	// BackendsChanged is true when the preference order, any backend's
	// options, or the keyword labels changed. Loaders must be rebuilt.
	BackendsChanged bool

	// HistoryChanged and MetricsChanged only take effect on restart.
	HistoryChanged bool
	MetricsChanged bool
}

// NeedsRerun reports whether the change affects evaluation results, so a
// watch session should run the harness again.
func (d ConfigDiff) NeedsRerun() bool {
	return d.HarnessChanged || d.ModelChanged || d.BackendsChanged
}

// RequiresRestart reports whether the change touches settings that are only
// read at startup.
func (d ConfigDiff) RequiresRestart() bool {
	return d.HistoryChanged || d.MetricsChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}
	d.HarnessChanged = old.Harness != new.Harness
	d.ModelChanged = old.Model != new.Model
	d.BackendsChanged = !slices.Equal(old.Keywords, new.Keywords) ||
		!backendsEqual(old.Backends, new.Backends)
	d.HistoryChanged = old.History != new.History
	d.MetricsChanged = old.Metrics != new.Metrics

	return d
}

func backendsEqual(a, b []BackendEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
		if len(a[i].Options) == 0 && len(b[i].Options) == 0 {
			continue
		}
		if !reflect.DeepEqual(a[i].Options, b[i].Options) {
			return false
		}
	}
	return true
}
