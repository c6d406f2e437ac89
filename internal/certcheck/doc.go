// Package certcheck reports TLS certificate expiry for a list of targets.
//
// A target is "host" or "host:port" (port 443 by default), optionally with an
// https:// prefix. Checker dials each target with full chain verification and
// records the leaf certificate's NotAfter, or the failure kind when the
// handshake fails. Summarize turns a run into operator text, UpdateStatusFile
// keeps a JSON record per target, and BuildCalendar emits an iCalendar file
// with one event per expiring certificate.
package certcheck
