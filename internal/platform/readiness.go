package platform

import "time"

// Readiness is the bootstrap state of the host binding.
type Readiness string

const (
	NotChecked Readiness = "not_checked"
	Polling    Readiness = "polling"
	Ready      Readiness = "ready"
	Failed     Readiness = "failed"
)

// Terminal reports whether no further transition can happen.
func (r Readiness) Terminal() bool {
	return r == Ready || r == Failed
}

// Timer is a channel-backed clock source; tickers and one-shot timers share it.
type Timer interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates timers. Tests substitute a manual clock.
type Clock interface {
	NewTicker(d time.Duration) Timer
	NewTimer(d time.Duration) Timer
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) NewTicker(d time.Duration) Timer { return systemTicker{time.NewTicker(d)} }
func (SystemClock) NewTimer(d time.Duration) Timer  { return systemTimer{time.NewTimer(d)} }

type systemTicker struct{ t *time.Ticker }

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }

type systemTimer struct{ t *time.Timer }

func (s systemTimer) C() <-chan time.Time { return s.t.C }
func (s systemTimer) Stop()               { s.t.Stop() }
