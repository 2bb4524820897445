// Package memory provides in-process implementations of the ledger and
// suppression repositories. The server falls back to them when no
// database is configured; nothing survives a restart.
package memory
