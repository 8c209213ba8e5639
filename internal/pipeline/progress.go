package pipeline

import "sync"

// Observer receives progress updates. Percent never decreases within a run.
type Observer interface {
	OnProgress(percent int, stage string)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(percent int, stage string)

func (f ObserverFunc) OnProgress(percent int, stage string) {
	f(percent, stage)
}

// monotonic forwards only updates that move progress forward
type monotonic struct {
	mu   sync.Mutex
	obs  Observer
	last int
}

func newMonotonic(obs Observer) *monotonic {
	return &monotonic{obs: obs, last: -1}
}

func (m *monotonic) OnProgress(percent int, stage string) {
	if m.obs == nil {
		return
	}
	percent = min(max(percent, 0), 100)

	m.mu.Lock()
	defer m.mu.Unlock()
	if percent <= m.last {
		return
	}
	m.last = percent
	m.obs.OnProgress(percent, stage)
}
