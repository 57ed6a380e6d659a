// Package policy turns channel live/offline events into the desired-state
// document that the background agent reconciles against.
package policy
