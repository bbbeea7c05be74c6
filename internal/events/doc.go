// Package events persists detection events in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, status
// transitions, stuck-event recovery, and the FIFO claim used by the pipeline
// workers. An event row is created the moment an entry is confirmed and
// reaches a terminal status (completed, failed, or cancelled) exactly once;
// the audit log is written only from terminal transitions.
//
// The database is transient storage for in-flight work rather than a
// long-term archive; the per-day audit log is the durable record. Schema
// changes bump schemaVersion and users clear the database to adopt them.
package events
