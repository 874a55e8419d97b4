// Package plan turns resolved target paths into the concrete work of a run:
// renames and deletes applied top-down, followed by converter and merge
// jobs for the process queue.
//
// Every operation carries the path its source will have at the moment it
// runs. Renames are applied parent first, so a child's source is computed
// under its parent's target rather than its scan-time location.
//
// Building a plan from a tree that is already correctly named yields no
// operations.
package plan
