// Package cli provides the timekeeper command-line client.
//
// It wires configuration, the local store, the sync service and the
// debounced trigger into a cobra command tree. One-shot commands sync once
// before exiting when they changed something; the shell command starts an
// interactive REPL where edits trigger a debounced background sync and sync
// results show up as short-lived notices in the prompt.
//
// Commands:
//   - login / logout / status / sync
//   - task add|list|stop|delete|import
//   - shortcut add|list|delete|import
//   - todo add|list|done|delete|import
//   - shell
package cli
