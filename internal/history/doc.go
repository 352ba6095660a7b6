// Package history stores local chat transcripts for the dust-chat command.
//
// Exchanges are keyed by workspace, agent, and conversation so a later
// invocation can resume the most recent conversation. The store is a
// single-file SQLite database in WAL mode.
package history
