// Package ui provides semantic text formatting for medkeys CLI output.
//
// Formatters render content according to terminal capabilities. With
// colors, content is colorized; when NO_COLOR is set or the terminal does
// not support colors, text decorations (backticks, quotes) are used instead.
//
//	ui.Code.Sprint("medkeys keys init")       // Commands
//	ui.Path.Sprint("keystore.json")           // File paths
//	ui.Highlight.Sprint("Datenbank")          // Purposes and actors
//	ui.Secret.Sprint(recoveryData)            // Values to copy out
//
// # Labels
//
// PurposeLabel and StatusLabel map key purposes and rotation states to the
// German labels shown to practice staff. StatusFormatter colors a status by
// urgency: up to date is green, due soon yellow, overdue red.
package ui
