package stats

import "sync/atomic"

// Provider publishes Stats snapshots via a lock-free atomic swap, so
// readers never block writers and always see a fully-formed snapshot.
type Provider struct {
	latest atomic.Pointer[Stats]
}

// NewProvider creates a Provider with an empty zero-value snapshot
// published, so Latest never returns nil before the first Collect.
func NewProvider() *Provider {
	p := &Provider{}
	zero := Stats{}
	p.latest.Store(&zero)
	return p
}

// Refresh collects a fresh snapshot and atomically publishes it.
func (p *Provider) Refresh() error {
	s, err := Collect()
	if err != nil {
		return err
	}
	p.latest.Store(&s)
	return nil
}

// Latest returns the most recently published snapshot.
func (p *Provider) Latest() Stats {
	return *p.latest.Load()
}
