// Package language provides unified language code normalization and mapping.
//
// All language-related conversions (ISO 639-1, ISO 639-2, display names and
// filename detection) are consolidated here so subtitle matching and merge
// planning agree on a single code space. Detection works on file names only;
// subtitle contents are never read.
package language
