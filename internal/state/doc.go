// Package state provides thread-safe state shared between the detector loop
// and its observers.
//
// The poller is the single writer: after every tick it folds the detector
// result into the Store, and the diagnostic logger appends each line it
// writes. The dashboard and the metrics handler read Snapshot on their own
// schedule. Snapshots are returned by value with slices and errors copied, so
// readers never see a half-applied tick.
//
// A failed tick keeps the last good log file and trigger on display and bumps
// ConsecutiveFailures; IsOffline turns true after two failures in a row.
//
// The zero Store is ready to use.
package state
