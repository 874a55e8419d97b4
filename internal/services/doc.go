// Package services defines the error taxonomy and context annotations shared
// by the scanner, the apply phase, and the process queue.
//
// Errors are tagged with one of the exported sentinels so callers can classify
// a failure with errors.Is without parsing messages. Context helpers carry
// run and job identifiers that the logging package lifts into log lines.
package services
