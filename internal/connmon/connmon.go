// Package connmon watches OS connectivity signals and coalesces bursts of
// them into a single liveness reconciliation.
package connmon
