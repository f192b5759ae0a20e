// Package app is the composition root for wowr.
//
// Run loads the configuration, opens the diagnostic log, connects the
// recorder to OBS (or to an in-memory dry run), and hands everything to a
// Poller. The Poller owns the combat state and runs every detector tick on
// its own goroutine, so ticks never overlap:
//
//	config.Load ─> diaglog.Open ─> obsws.NewClient ─> recorder.New
//	                                                      │
//	Poller.Run ──tick──> detector.Tick ──> state.Store ──> ui (--tui)
//	    ▲                       │
//	    │                       └──> metrics.Exporter (metrics_addr)
//	ticker / fsnotify wake
//
// With watch_events enabled, writes to the combat log wake the loop early;
// wakes closer than half a second to the previous tick are folded into the
// next interval tick. If the log directory cannot be watched the watcher
// retries with exponential backoff while the interval ticker keeps running.
//
// Only start-up errors are returned. Once running, unreadable logs and OBS
// failures are logged and the next tick tries again.
//
// Scan and Record back the one-shot CLI commands.
package app
