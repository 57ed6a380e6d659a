package ipc

import "time"

// StartRequest asks the host to begin capturing a channel.
type StartRequest struct {
	Target      string `json:"target"`
	ChannelName string `json:"channel_name"`
	Quality     string `json:"quality"`
}

// StartResponse indicates whether a capture was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops one channel, or every channel when Login is empty.
type StopRequest struct {
	Login string `json:"login"`
}

// StopResponse reports how many sessions were signalled.
type StopResponse struct {
	Stopped int `json:"stopped"`
}

// ToggleRequest flips the recording state of a channel.
type ToggleRequest struct {
	Target      string `json:"target"`
	ChannelName string `json:"channel_name"`
	Quality     string `json:"quality"`
}

// ToggleResponse reports the resulting direction of the toggle.
type ToggleResponse struct {
	Started bool `json:"started"`
}

// StatusRequest fetches host status.
type StatusRequest struct{}

// SessionStatus describes one live capture session.
type SessionStatus struct {
	Login      string    `json:"login"`
	Quality    string    `json:"quality"`
	PID        int       `json:"pid"`
	OutputPath string    `json:"output_path"`
	StartedAt  time.Time `json:"started_at"`
}

// StatusResponse is the host's view of its live sessions.
type StatusResponse struct {
	PID         int             `json:"pid"`
	ActiveCount int             `json:"active_count"`
	Sessions    []SessionStatus `json:"sessions"`
}

// DeleteRequest removes a finished recording from disk.
type DeleteRequest struct {
	Path string `json:"path"`
}

// DeleteResponse reports the delete outcome. An in-flight recording is a
// refusal, not an RPC error.
type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}
