package config

import "strings"

// DisabledOption names an option family that consistency runs never pass
// to the trainer.
type DisabledOption string

const (
	// EarlyStopping covers early_stopping, early_stopping_round(s) and
	// anything else whose key mentions early stopping.
	EarlyStopping DisabledOption = "early_stopping"
)

// DisabledOptions is the closed set of families filtered out of every
// loaded configuration.
var DisabledOptions = []DisabledOption{EarlyStopping}

// Matches reports whether key belongs to the family. Matching is a
// case-sensitive substring test.
func (d DisabledOption) Matches(key string) bool {
	return strings.Contains(key, string(d))
}

// disabledFamily returns the family key belongs to, if any.
func disabledFamily(key string) (DisabledOption, bool) {
	for _, d := range DisabledOptions {
		if d.Matches(key) {
			return d, true
		}
	}
	return "", false
}
