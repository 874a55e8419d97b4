// Package config loads, normalizes, and validates Librarian configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the scanner, rename rules, and job queue need: which extensions count as
// media or subtitles, which names are pruned or deleted, where the external
// tools live, and which suffixes the queue reserves for backups and
// in-progress output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical extensions, and clear validation errors.
package config
