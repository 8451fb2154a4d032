// Package log provides protocol trace logging for the bridge link.
//
// Every command sent to the bridge and every reply parsed from it is
// recorded as an Event tagged with a direction (IN/OUT/LOCAL), the layer
// that captured it (TRANSPORT/WIRE/SESSION) and a category. Components
// receive a Logger at construction; there is no global logger. Pass
// NoopLogger (or nil where documented) to disable tracing.
//
// # Sinks
//
//   - FileLogger: appends CBOR-encoded events to a trace file. Compact,
//     read back with Reader or the vcore-log tool.
//   - JSONLogger: writes one JSON record per line, for traces that need
//     to be greppable without tooling.
//   - SlogAdapter: forwards events to a log/slog logger for console
//     debugging.
//   - MultiLogger: fans out to several sinks at once.
//
// Trace files are diagnostics only; nothing in the core reads them back
// at runtime.
package log
