package protocol

import "time"

const (
	// TimecodeWrap is the modulus of the wire clock: timecodes are
	// millisecond counters truncated to 24 bits, so the clock wraps
	// roughly every 4 hours 40 minutes.
	TimecodeWrap = 1 << 24

	halfWrap = TimecodeWrap / 2
)

// Clock issues wraparound timecodes relative to a fixed epoch, normally the
// moment the server process started.
type Clock struct {
	epoch time.Time
}

// NewClock returns a clock whose timecodes count from now.
func NewClock() *Clock {
	return &Clock{epoch: time.Now()}
}

// NewClockAt returns a clock counting from the given epoch. Tests use this to
// place the clock near a wrap boundary.
func NewClockAt(epoch time.Time) *Clock {
	return &Clock{epoch: epoch}
}

// Now returns milliseconds elapsed since the epoch, modulo TimecodeWrap.
func (c *Clock) Now() uint32 {
	return uint32(time.Since(c.epoch).Milliseconds()) % TimecodeWrap
}

// Age returns the absolute distance between now and the given timecode.
// Like TimecodeDelta it is only meaningful for timecodes taken within half a
// wrap period of the present.
func (c *Clock) Age(t uint32) uint32 {
	d := TimecodeDelta(c.Now(), t)
	if d < 0 {
		d = -d
	}
	return uint32(d)
}

// TimecodeDelta returns the signed distance newer-older in milliseconds,
// unwrapping across the 24-bit boundary. The result is exact whenever the two
// timecodes were taken at most half a wrap period (~2h20m) apart; beyond that
// the sign is wrong and there is no way to tell.
func TimecodeDelta(newer, older uint32) int32 {
	d := int32(newer%TimecodeWrap) - int32(older%TimecodeWrap)
	switch {
	case d > halfWrap:
		d -= TimecodeWrap
	case d < -halfWrap:
		d += TimecodeWrap
	}
	return d
}
