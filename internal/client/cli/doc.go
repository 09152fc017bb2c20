// Package cli provides the interactive gauth command-line client.
//
// It wires configuration, local storage, the auth services and an
// interactive REPL. Typical flow: restore the persisted session, then read
// commands until the user exits.
//
// Signed out:
//   - help, login, signup, forgot, reset, strength, theme, stats, exit
//
// Signed in:
//   - help, whoami, logout, strength, accounts, theme, stats, exit
//
// Every line is parsed by a fresh cobra command tree (see newRootCmd), so
// commands get cobra's argument handling while the REPL keeps its own loop.
// Forms are validated here, before anything reaches the auth service;
// failures are printed next to the field name.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or input ends.
package cli
