package protocol

import (
	"testing"
	"time"
)

func TestTimecodeDeltaPlain(t *testing.T) {
	cases := []struct {
		newer, older uint32
		want         int32
	}{
		{0, 0, 0},
		{100, 40, 60},
		{40, 100, -60},
		{TimecodeWrap - 1, 0, -1},
	}
	for _, tc := range cases {
		if got := TimecodeDelta(tc.newer, tc.older); got != tc.want {
			t.Fatalf("TimecodeDelta(%d, %d) = %d, want %d", tc.newer, tc.older, got, tc.want)
		}
	}
}

func TestTimecodeDeltaAcrossWrap(t *testing.T) {
	if got := TimecodeDelta(5, TimecodeWrap-3); got != 8 {
		t.Fatalf("delta across wrap = %d, want 8", got)
	}
	if got := TimecodeDelta(TimecodeWrap-3, 5); got != -8 {
		t.Fatalf("reverse delta across wrap = %d, want -8", got)
	}
}

func TestTimecodeDeltaAntisymmetry(t *testing.T) {
	pairs := [][2]uint32{
		{0, 0},
		{12, 90000},
		{TimecodeWrap - 10, 10},
		{1 << 23, 0},
		{8_000_000, 15_000_000},
	}
	for _, p := range pairs {
		forward := TimecodeDelta(p[0], p[1])
		backward := TimecodeDelta(p[1], p[0])
		if forward != -backward {
			t.Fatalf("delta(%d,%d)=%d but delta(%d,%d)=%d", p[0], p[1], forward, p[1], p[0], backward)
		}
	}
}

func TestClockNowStaysBelowWrap(t *testing.T) {
	clock := NewClockAt(time.Now().Add(-5 * time.Hour))
	if now := clock.Now(); now >= TimecodeWrap {
		t.Fatalf("Now() = %d, want < %d", now, TimecodeWrap)
	}
}

func TestClockAge(t *testing.T) {
	clock := NewClockAt(time.Now().Add(-2 * time.Second))
	stamp := clock.Now()
	if age := clock.Age(stamp); age > 100 {
		t.Fatalf("age of a fresh timecode = %dms, want near zero", age)
	}

	older := stamp - 1000
	age := clock.Age(older)
	if age < 900 || age > 1200 {
		t.Fatalf("age of a second-old timecode = %dms, want ~1000", age)
	}
}

func TestClockAgeAcrossWrap(t *testing.T) {
	// Place the epoch so the clock just wrapped; a timecode from right
	// before the wrap must still read as recent.
	clock := NewClockAt(time.Now().Add(-time.Duration(TimecodeWrap+20) * time.Millisecond))
	before := uint32(TimecodeWrap - 10)
	if age := clock.Age(before); age > 200 {
		t.Fatalf("age across wrap = %dms, want small", age)
	}
}
