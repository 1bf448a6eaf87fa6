package core

import "time"

// Pacer releases generations at a fixed rate. A generation that overruns
// its budget lets later ones run back to back, at most maxCatchUp at a
// time; generations beyond that are dropped and counted.
type Pacer struct {
	budget     time.Duration
	maxCatchUp int
	next       time.Time
	dropped    int
}

// NewPacer targets gps generations per second. A maxCatchUp below 1 means 1.
func NewPacer(gps, maxCatchUp int) *Pacer {
	p := &Pacer{maxCatchUp: max(maxCatchUp, 1)}
	p.SetRate(gps)
	return p
}

// SetRate changes the target rate. Non-positive rates select 60.
func (p *Pacer) SetRate(gps int) {
	if gps <= 0 {
		gps = 60
	}
	p.budget = time.Second / time.Duration(gps)
}

// Budget is the wall time allotted to one generation.
func (p *Pacer) Budget() time.Duration { return p.budget }

// Dropped counts generations skipped because the catch-up bound was hit.
func (p *Pacer) Dropped() int { return p.dropped }

// Due reports how many generations should run at now. The first call
// releases one generation and starts the schedule.
func (p *Pacer) Due(now time.Time) int {
	if p.next.IsZero() {
		p.next = now
	}
	if now.Before(p.next) {
		return 0
	}
	n := 1 + int(now.Sub(p.next)/p.budget)
	p.next = p.next.Add(time.Duration(n) * p.budget)
	if n > p.maxCatchUp {
		p.dropped += n - p.maxCatchUp
		n = p.maxCatchUp
	}
	return n
}

// Until returns how long to wait at now before the next generation is due.
func (p *Pacer) Until(now time.Time) time.Duration {
	if p.next.IsZero() || !now.Before(p.next) {
		return 0
	}
	return p.next.Sub(now)
}
