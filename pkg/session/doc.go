// Package session owns the bridge session: the paused/active link state,
// device selection, enumeration and the register access facade the
// decoders run on.
//
// A Session is single-caller by design. All commands are issued from the
// caller's goroutine; the frame reader only feeds the response queue and
// never touches session state. If multiple goroutines need to drive one
// session, they must serialize externally.
//
// The link starts paused. Selecting a device performs an implicit resume
// first, since the bridge rejects select while paused. Closing the session
// sends a best-effort pause so the bridge stops driving the bus after the
// host goes away.
package session
