package policy

import (
	"sync"

	"streamvault/internal/capture"
)

// ChannelEvent is a live/offline transition from the channel candidate feed.
type ChannelEvent struct {
	Login       string
	DisplayName string
	Live        bool
}

// Engine filters channel events through the configured auto-record list and
// maintains the resulting desired channel set.
type Engine struct {
	mu         sync.Mutex
	autoRecord map[string]struct{}
	live       map[string]DesiredChannel
}

// NewEngine builds an engine from the configured auto-record logins. Logins
// are normalized; unknown channels never enter the desired set.
func NewEngine(autoRecord []string) *Engine {
	set := make(map[string]struct{}, len(autoRecord))
	for _, login := range autoRecord {
		if normalized := capture.NormalizeLogin(login); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return &Engine{autoRecord: set, live: make(map[string]DesiredChannel)}
}

// HandleEvent applies one transition and reports whether the desired channel
// set changed. Events for channels outside the auto-record list are ignored.
func (e *Engine) HandleEvent(event ChannelEvent) bool {
	login := capture.NormalizeLogin(event.Login)
	if login == "" {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, tracked := e.autoRecord[login]; !tracked {
		return false
	}

	if !event.Live {
		if _, present := e.live[login]; !present {
			return false
		}
		delete(e.live, login)
		return true
	}

	if _, present := e.live[login]; present {
		return false
	}
	display := event.DisplayName
	if display == "" {
		display = login
	}
	e.live[login] = DesiredChannel{Login: login, DisplayName: display}
	return true
}

// DesiredChannels returns the current desired set, normalized and sorted.
func (e *Engine) DesiredChannels() []DesiredChannel {
	e.mu.Lock()
	channels := make([]DesiredChannel, 0, len(e.live))
	for _, ch := range e.live {
		channels = append(channels, ch)
	}
	e.mu.Unlock()
	return NormalizeChannels(channels)
}

// WriteState composes base with the current desired channel set and writes
// the document atomically.
func (e *Engine) WriteState(path string, base DesiredState) error {
	base.Channels = e.DesiredChannels()
	return WriteState(path, base)
}
