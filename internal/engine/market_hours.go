package engine

import (
	"fmt"
	"time"
)

// marketLoc pins market-hours math to US Eastern. FixedZone keeps startup
// independent of the host tzdata; the hour of a DST shift is an acceptable
// skew for a gate that exists to avoid queuing orders overnight.
var marketLoc = time.FixedZone("ET", -5*3600)

// IsMarketOpen reports whether new opening orders are allowed right now.
// With MarketHoursOnly disabled it always returns true. Weekends are
// closed; within weekdays the configured "HH:MM" window applies, falling
// back to 09:30-16:00 when the configuration is malformed.
func (e *Engine) IsMarketOpen(now time.Time) bool {
	if !e.cfg.MarketHoursOnly {
		return true
	}

	now = now.In(marketLoc)
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}

	openMins, err := parseClock(e.cfg.MarketOpenTime)
	if err != nil {
		e.logger.Warn("malformed market open time, using 09:30 default")
		openMins = 9*60 + 30
	}
	closeMins, err := parseClock(e.cfg.MarketCloseTime)
	if err != nil {
		e.logger.Warn("malformed market close time, using 16:00 default")
		closeMins = 16 * 60
	}

	nowMins := now.Hour()*60 + now.Minute()
	return nowMins >= openMins && nowMins < closeMins
}

// parseClock converts "HH:MM" to minutes past midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
