package link

// Credit tracks the host's estimate of free peer receive-buffer space
// in CreditUnit granules. Consume is an advisory local decrement;
// Refresh overwrites with the peer-reported truth, never merges.
//
// Credit itself is not synchronized: the Link only mutates it while
// holding the bus lock.
type Credit struct {
	units int
}

// Consume reserves room for n payload bytes. It decrements the estimate
// by ceil(n/CreditUnit) and reports whether the reservation fit; on
// failure the estimate is unchanged.
func (c *Credit) Consume(n int) bool {
	needed := (n + CreditUnit - 1) / CreditUnit
	if needed > c.units {
		return false
	}
	c.units -= needed
	if c.units < 0 {
		c.units = 0
	}
	return true
}

// Refresh overwrites the estimate with the peer-reported unit count.
func (c *Credit) Refresh(units int) {
	if units < 0 {
		units = 0
	}
	c.units = units
}

// Units returns the current estimate.
func (c *Credit) Units() int {
	return c.units
}
