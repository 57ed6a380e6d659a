// Package recorder hosts the foreground session manager: caller-driven
// start/stop/toggle of capture processes with crash-recovery intents
// persisted on every active-set change.
package recorder
