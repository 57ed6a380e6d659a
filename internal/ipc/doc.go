// Package ipc exposes the foreground session manager over JSON-RPC on a
// Unix domain socket, so CLI subcommands can control a running host process.
package ipc
