// Package uberlog is a cross-process logging library.
//
// A Logger in the calling process formats records and hands them off to a
// lock-free shared-memory ring buffer. A separate writer process, spawned by
// the Logger and attached to the same ring, drains it and owns the log file
// on disk. The hand-off is wait-free on the producer's fast path, and every
// record that completes the hand-off survives a subsequent crash of the
// producer process: the writer, running independently, will still drain and
// persist it.
//
// uberlog does not interpret log payloads. The default Log/Debug/Info/Warn/
// Error/Fatal methods prepend a fixed-width timestamp, level and thread-id
// prefix, but LogRaw accepts arbitrary bytes for callers that want their own
// format.
package uberlog
