// Package intents persists recovery intents: the set of captures that were
// active when the session manager last ran. After an unclean shutdown the
// stored intents describe what should be restarted.
package intents
