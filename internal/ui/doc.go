// Package ui renders the optional terminal dashboard for wowr.
//
// The dashboard is read-only. It polls state.Store once a second and shows the
// combat state, the recording state reported by OBS, the active combat log,
// the last tick and decisive trigger, and a scrollable pane of recent
// diagnostic lines. Theme, follow mode and debug visibility are remembered in
// prefs.toml.
package ui
