package otp

import (
	"sync"
	"time"
)

// issueLimiter tracks code issuance timestamps per address in a sliding
// window. Only issuance counts against the ceiling; validation attempts do
// not.
type issueLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	ceiling int
	issued  map[string][]time.Time
}

func newIssueLimiter(ceiling int, window time.Duration) *issueLimiter {
	return &issueLimiter{
		window:  window,
		ceiling: ceiling,
		issued:  make(map[string][]time.Time),
	}
}

// allow reports whether another code may be issued for address and, when
// not, how long until the oldest in-window issuance rolls off.
func (l *issueLimiter) allow(address string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.trim(address, now)
	if len(stamps) < l.ceiling {
		return true, 0
	}
	return false, stamps[0].Add(l.window).Sub(now)
}

// record registers one issuance for address.
func (l *issueLimiter) record(address string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.trim(address, now)
	l.issued[address] = append(stamps, now)
}

// trim drops timestamps that left the window. Must be called holding l.mu.
func (l *issueLimiter) trim(address string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	stamps := l.issued[address]
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	stamps = stamps[i:]
	if len(stamps) == 0 {
		delete(l.issued, address)
	} else {
		l.issued[address] = stamps
	}
	return stamps
}
