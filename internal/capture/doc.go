// Package capture spawns and tracks external capture processes. A Session
// bundles the process handle, its stderr tail, and recording metadata so the
// owning scheduler can tear everything down exactly once on reap.
package capture
