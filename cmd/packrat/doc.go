// Package main hosts the packrat CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, opens the browsing session
// and hands it to the internal pipeline packages. Commands stay thin: new
// behaviour belongs in internal/ first and is surfaced here as a command or
// flag.
package main
