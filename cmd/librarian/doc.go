// Package main hosts the Librarian CLI entrypoint and command graph.
//
// Every command that touches a library scans the given roots into a fresh
// tree, applies the command-line edits, and then reports on or executes the
// resulting plan. Configuration and logging are resolved once per
// invocation by commandContext so subcommands stay declarative.
package main
