// Package obsws controls OBS Studio recordings over obs-websocket 5.x.
//
// The Client speaks just enough of the protocol for recording control:
//
//	Hello  (op 0)  server -> client, optional auth challenge
//	Identify (op 1) client -> server, eventSubscriptions = 0
//	Identified (op 2)
//	Request (op 6) / RequestResponse (op 7)
//
// Requests used: GetRecordStatus, StartRecord, StopRecord, PauseRecord,
// ResumeRecord, SplitRecordFile and CreateRecordChapter. The last two need a
// recent OBS release (30.2+) and fail with a RequestError on older versions.
//
// Requests are serialised on a single connection. Any transport error drops
// the connection; the next request dials again, so OBS can be restarted while
// wowr keeps running.
package obsws
