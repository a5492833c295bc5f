package state

import "time"

const (
	minSpeed = 0.5
	maxSpeed = 500
)

// Playback paces the clock against wall time.
type Playback struct {
	TicksPerSecond float64
	Playing        bool

	last  time.Time
	carry float64 // fractional ticks owed
}

func NewPlayback(ticksPerSecond float64) *Playback {
	p := &Playback{}
	p.SetSpeed(ticksPerSecond)
	return p
}

// TogglePlay starts or pauses playback.
func (p *Playback) TogglePlay(now time.Time) {
	if p.Playing {
		p.Pause()
		return
	}
	p.Play(now)
}

func (p *Playback) Play(now time.Time) {
	p.Playing = true
	p.last = now
	p.carry = 0
}

func (p *Playback) Pause() {
	p.Playing = false
	p.carry = 0
}

// SetSpeed sets the tick rate, clamped to a usable range.
func (p *Playback) SetSpeed(ticksPerSecond float64) {
	switch {
	case ticksPerSecond < minSpeed:
		ticksPerSecond = minSpeed
	case ticksPerSecond > maxSpeed:
		ticksPerSecond = maxSpeed
	}
	p.TicksPerSecond = ticksPerSecond
}

// Due returns how many whole ticks have elapsed since the last call.
// The remainder carries over, so a slow frame rate loses no ticks.
func (p *Playback) Due(now time.Time) int {
	if !p.Playing {
		return 0
	}
	elapsed := now.Sub(p.last).Seconds()
	p.last = now
	if elapsed <= 0 {
		return 0
	}
	p.carry += elapsed * p.TicksPerSecond
	n := int(p.carry)
	p.carry -= float64(n)
	return n
}

// Phase is the fraction of the next tick already elapsed, 0..1.
func (p *Playback) Phase() float64 {
	if !p.Playing {
		return 0
	}
	return p.carry
}
