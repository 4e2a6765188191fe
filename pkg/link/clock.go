package link

import "time"

// Clock provides the time for transaction deadlines. The default is the
// system clock; tests inject a deterministic one.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }
