// Package subtitles folds external subtitle files into their media file.
//
// Match inspects the subtitle satellites attached to a media node during a
// scan, detects each file's language and classifies streams as forced,
// plain or hearing-impaired. The planner turns that classification into a
// single mkvmerge invocation that re-declares the original's tracks,
// appends every external stream and fixes the final track order. The
// resulting plan is executed by the process queue like any other job.
package subtitles
