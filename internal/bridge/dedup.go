package bridge

import (
	"sync"
	"time"
)

// speechEventSource mirrors spec §3's VAD speech event source tag.
type speechEventSource string

const (
	sourcePlatform speechEventSource = "platform"
	sourceLocalVAD speechEventSource = "local_vad"
)

type speechEvent struct {
	source speechEventSource
	at     time.Time
	kind   string // "started" or "stopped"
}

// speechDedup holds a small ring of recently-seen speech events for one
// call and drops a newly-arriving event if an equivalent one (same
// kind) was already seen within the last window (spec §4.5, §9 Open
// Question 4: the orchestrator owns this, not the Session Manager or
// VAD package, since only the orchestrator sees both platform-reported
// and locally-run VAD events).
type speechDedup struct {
	mu     sync.Mutex
	window time.Duration
	recent []speechEvent
}

func newSpeechDedup(window time.Duration) *speechDedup {
	return &speechDedup{window: window}
}

// Seen records a speech event and reports whether it is a duplicate of
// one already seen within the window, in which case the caller should
// drop it and keep the first.
func (d *speechDedup) Seen(source speechEventSource, kind string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-d.window)

	kept := d.recent[:0]
	duplicate := false
	for _, e := range d.recent {
		if e.at.Before(cutoff) {
			continue
		}
		if e.kind == kind {
			duplicate = true
		}
		kept = append(kept, e)
	}
	d.recent = kept

	d.recent = append(d.recent, speechEvent{source: source, at: now, kind: kind})
	return duplicate
}
