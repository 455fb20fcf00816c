// Package cli provides the interactive Zenote command-line client.
//
// It wires configuration, the per-user local store, the sync engine and an
// interactive REPL that keeps working offline. Typical flow: open the
// session of the access token's user, sweep faded notes past the retention
// window, load the working set, then start the realtime subscriber and the
// sync loop in the background while the user issues commands.
//
// Key features:
//   - Notes: add, edit, pin, fade (soft delete), restore, purge
//   - Tags: create, rename, recolor, attach, detach
//   - Share links and zip export (these need the server)
//   - Manual sync and a status overview
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
