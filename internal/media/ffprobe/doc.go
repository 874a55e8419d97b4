// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Merge planning uses it to learn which tracks the original container
// already holds so their language tags can be re-declared and their order
// preserved ahead of appended subtitles.
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//   - Result.Tracks: addressable streams in container order
package ffprobe
