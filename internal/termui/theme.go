// Package termui renders diff previews for a terminal.
package termui

import (
	"log/slog"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	darkmode "github.com/thiagokokada/dark-mode-go"
)

type ThemePreference int

const (
	ThemeAuto ThemePreference = iota
	ThemeLight
	ThemeDark
)

func (p ThemePreference) String() string {
	switch p {
	case ThemeLight:
		return "light"
	case ThemeDark:
		return "dark"
	default:
		return "auto"
	}
}

var detectDarkMode = darkmode.IsDarkMode

func ThemePreferenceFromString(raw string) ThemePreference {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ThemeDark.String():
		return ThemeDark
	case ThemeLight.String():
		return ThemeLight
	default:
		return ThemeAuto
	}
}

// IsDark resolves ThemeAuto through the desktop dark-mode setting. Detection
// errors fall back to light.
func (p ThemePreference) IsDark(log *slog.Logger) bool {
	switch p {
	case ThemeDark:
		return true
	case ThemeLight:
		return false
	}
	if detectDarkMode == nil {
		return false
	}
	dark, err := detectDarkMode()
	if err != nil {
		if log != nil {
			log.Debug("detect dark-mode", slog.Any("error", err))
		}
		return false
	}
	return dark
}

// StyleFor returns the chroma style matching the preference.
func StyleFor(pref ThemePreference, log *slog.Logger) *chroma.Style {
	name := "github"
	if pref.IsDark(log) {
		name = "github-dark"
	}
	if st := styles.Get(name); st != nil {
		return st
	}
	return styles.Fallback
}
