package ui

import (
	"strings"

	"github.com/medeasy/medkeys/internal/keys"
	"github.com/medeasy/medkeys/internal/keystore"
)

// Display labels shown to practice staff. The application UI is German.
var (
	purposeLabels = map[keystore.Purpose]string{
		keystore.Master:          "Hauptschlüssel",
		keystore.Database:        "Datenbank",
		keystore.FieldPatient:    "Patient",
		keystore.FieldSession:    "Session",
		keystore.FieldTranscript: "Transkript",
		keystore.Backup:          "Backup",
	}

	statusLabels = map[keys.RotationStatus]string{
		keys.UpToDate: "Aktuell",
		keys.DueSoon:  "Bald fällig",
		keys.Overdue:  "Überfällig",
		keys.Unknown:  "Unbekannt",
	}

	statusFormatters = map[keys.RotationStatus]Formatter{
		keys.UpToDate: Success,
		keys.DueSoon:  Warning,
		keys.Overdue:  Error,
		keys.Unknown:  Muted,
	}
)

// PurposeLabel returns the display label of p, or its name if it has none.
func PurposeLabel(p keystore.Purpose) string {
	if label, ok := purposeLabels[p]; ok {
		return label
	}
	return p.String()
}

// StatusLabel returns the display label of s. Anything outside the known
// set is shown as unknown.
func StatusLabel(s keys.RotationStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return statusLabels[keys.Unknown]
}

// StatusFormatter picks the formatter matching the urgency of s.
func StatusFormatter(s keys.RotationStatus) Formatter {
	if f, ok := statusFormatters[s]; ok {
		return f
	}
	return Muted
}

// FormatPaths formats a slice of paths into a readable string.
func FormatPaths(paths []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, path := range paths {
		b.WriteString("    - ")
		b.WriteString(Path.Sprint(path))
		b.WriteString("\n")
	}
	return b.String()
}
