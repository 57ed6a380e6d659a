// Package agent runs the background reconciliation loop: it polls the
// desired-state file, compares it against live capture processes, and closes
// the gap with bounded per-channel retry.
package agent
