// Command streamvault is the CLI and foreground session-manager host: it
// starts and stops channel captures, inspects status over IPC, and manages
// the encrypted recording library.
package main
