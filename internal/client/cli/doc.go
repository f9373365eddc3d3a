// Package cli provides the interactive docqa command-line client.
//
// It wires configuration, the diagnostics log, the status channel, the
// backend gateway, the upload workflow and a renderer, then runs a REPL
// that accepts search, answer and upload commands.
//
// Operations run on a Dispatcher so the prompt stays responsive; a command
// typed while another is still in flight is rejected as busy. The
// Dispatcher is also the last line of defence: a panic in any operation is
// recovered and shown as an internal error instead of killing the process.
//
// When stdin is not a terminal (input piped from a file or script) commands
// run one after another and no prompt is printed.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
