// Package naming computes where every tree node should live.
//
// Rules turn one node into its new base name (or a relative sub-path, or the
// Delete sentinel) from configured patterns such as "{title} ({year}){ext}".
// Fields for the patterns come from release-name parsing.
//
// Resolver joins rule output onto the parent's resolved path recursively, so
// renaming a directory relocates every descendant without extra bookkeeping
// and a deleted directory takes its whole subtree with it. Subtitles
// attached to a media file follow that file's new stem.
package naming
