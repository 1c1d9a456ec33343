package timesys

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestJ2000(t *testing.T) {
	// J2000 is 2000-01-01 12:00:00 TT.
	j2000UTC := time.Date(2000, 1, 1, 11, 58, 55, 816000000, time.UTC)
	tt := PreciseFromTime(j2000UTC, TT)
	if !scalar.EqualWithinAbs(tt.Sub(J2000.Precise()), 0, 1e-6) {
		t.Fatalf("J2000 in TT off by %fs", tt.Sub(J2000.Precise()))
	}
	if !scalar.EqualWithinAbs(J2000.JD(), 2451545.0, 1e-12) {
		t.Fatalf("invalid JD %f", J2000.JD())
	}
}

func TestLeapSeconds(t *testing.T) {
	for _, tc := range []struct {
		t   time.Time
		exp float64
	}{
		{time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC), 10},
		{time.Date(1972, 1, 1, 0, 0, 0, 0, time.UTC), 10},
		{time.Date(1972, 7, 1, 0, 0, 0, 0, time.UTC), 11},
		{time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), 32},
		{time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC), 32},
		{time.Date(2016, 12, 31, 23, 59, 59, 0, time.UTC), 36},
		{time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), 37},
		{time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), 37},
	} {
		if got := LeapSeconds(PreciseFromTime(tc.t, UTC).Epoch()); got != tc.exp {
			t.Fatalf("ΔAT(%s) = %f, expected %f", tc.t, got, tc.exp)
		}
	}
}

func TestConvertRoundTrip(t *testing.T) {
	start := PreciseFromTime(time.Date(2018, 3, 12, 4, 5, 6, 0, time.UTC), UTC)
	systems := []System{A1, TAI, TT, TDB, UTC}
	for _, from := range systems {
		for _, to := range systems {
			there := ConvertPrecise(start, from, to)
			back := ConvertPrecise(there, to, from)
			if diff := back.Sub(start); math.Abs(diff) > 1e-6 {
				t.Fatalf("%s -> %s -> %s off by %es", from, to, from, diff)
			}
		}
	}
}

func TestConvertOffsets(t *testing.T) {
	utc := PreciseFromTime(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), UTC)
	tai := ConvertPrecise(utc, UTC, TAI)
	if !scalar.EqualWithinAbs(tai.Sub(utc), 37, 1e-9) {
		t.Fatalf("TAI-UTC = %f", tai.Sub(utc))
	}
	a1 := ConvertPrecise(utc, UTC, A1)
	if !scalar.EqualWithinAbs(a1.Sub(tai), 0.0343817, 1e-9) {
		t.Fatalf("A1-TAI = %f", a1.Sub(tai))
	}
	tt := ConvertPrecise(a1, A1, TT)
	if !scalar.EqualWithinAbs(tt.Sub(tai), 32.184, 1e-9) {
		t.Fatalf("TT-TAI = %f", tt.Sub(tai))
	}
	tdb := ConvertPrecise(tt, TT, TDB)
	if math.Abs(tdb.Sub(tt)) > 0.002 {
		t.Fatalf("|TDB-TT| = %f exceeds 2ms", tdb.Sub(tt))
	}
}

func TestPreciseArithmetic(t *testing.T) {
	p := PreciseEpoch{Day: 10, Sec: 86399.5}
	q := p.AddSeconds(1)
	if q.Day != 11 || !scalar.EqualWithinAbs(q.Sec, 0.5, 1e-12) {
		t.Fatalf("normalization failed: %s", q)
	}
	r := q.Add(-2 * time.Second)
	if r.Day != 10 || !scalar.EqualWithinAbs(r.Sec, 86398.5, 1e-9) {
		t.Fatalf("negative normalization failed: %s", r)
	}
	if q.Sub(p) != 1 || !p.Before(q) || q.Before(p) {
		t.Fatal("ordering incorrect")
	}
	if !scalar.EqualWithinAbs(float64(Epoch(21545.25).Precise().Epoch()), 21545.25, 1e-12) {
		t.Fatal("epoch round trip failed")
	}
}

func TestToTime(t *testing.T) {
	exp := time.Date(2004, 4, 6, 7, 51, 28, 386009000, time.UTC)
	a1 := PreciseFromTime(exp, A1)
	got := ToTime(a1, A1)
	if d := got.Sub(exp); d > time.Microsecond || d < -time.Microsecond {
		t.Fatalf("got %s expected %s", got, exp)
	}
	plain := FromTime(exp, A1)
	if diff := plain.Precise().Sub(a1); math.Abs(diff) > 1e-3 {
		t.Fatalf("FromTime and PreciseFromTime differ by %fs", diff)
	}
}

func TestSystemFromString(t *testing.T) {
	if s, err := SystemFromString(" tdb"); err != nil || s != TDB {
		t.Fatalf("got %s, %v", s, err)
	}
	if _, err := SystemFromString("GPS"); err == nil {
		t.Fatal("expected an error for GPS")
	}
}
