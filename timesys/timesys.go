// Package timesys converts epochs between the A1, TAI, TT, TDB and UTC time scales.
//
// Epochs are modified Julian dates counted from JD 2430000.0 (1941-01-05 12:00), which is the
// reference used for every model epoch of this module.
package timesys

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

const (
	// ReferenceJD is the Julian date of the zero of every Epoch.
	ReferenceJD = 2430000.0
	// J2000 is the J2000 epoch (JD 2451545.0) expressed as an Epoch.
	J2000 Epoch = 21545.0
	// SecondsPerDay is the number of SI seconds in a day.
	SecondsPerDay = 86400.0

	a1MinusTAI = 0.0343817 // seconds
	ttMinusTAI = 32.184    // seconds
	// offset between this module's MJD and the standard MJD (JD - 2400000.5)
	stdMJDOffset = 29999.5
)

var referenceTime = time.Date(1941, time.January, 5, 12, 0, 0, 0, time.UTC)

// System is a time scale.
type System uint8

const (
	// A1 is the USNO A.1 atomic scale.
	A1 System = iota + 1
	// TAI is the international atomic time.
	TAI
	// TT is terrestrial time.
	TT
	// TDB is barycentric dynamical time.
	TDB
	// UTC is coordinated universal time.
	UTC
)

func (s System) String() string {
	switch s {
	case A1:
		return "A1"
	case TAI:
		return "TAI"
	case TT:
		return "TT"
	case TDB:
		return "TDB"
	case UTC:
		return "UTC"
	}
	return fmt.Sprintf("System(%d)", uint8(s))
}

// SystemFromString returns the time system from its (case insensitive) name.
func SystemFromString(name string) (System, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "A1":
		return A1, nil
	case "TAI":
		return TAI, nil
	case "TT":
		return TT, nil
	case "TDB":
		return TDB, nil
	case "UTC":
		return UTC, nil
	}
	return 0, fmt.Errorf("unknown time system `%s`", name)
}

// Epoch is a modified Julian date (days since ReferenceJD) in an implied time system.
type Epoch float64

// JD returns the Julian date of this epoch.
func (e Epoch) JD() float64 {
	return float64(e) + ReferenceJD
}

// Precise returns the extended precision representation of this epoch.
func (e Epoch) Precise() PreciseEpoch {
	day := math.Floor(float64(e))
	return PreciseEpoch{Day: int64(day), Sec: (float64(e) - day) * SecondsPerDay}
}

// Centuries returns the number of Julian centuries since J2000 in the time system of the epoch.
func (e Epoch) Centuries() float64 {
	return (float64(e) - float64(J2000)) / 36525.0
}

// PreciseEpoch stores an epoch as whole days since ReferenceJD and the seconds into that day,
// which keeps sub-microsecond resolution over centuries.
type PreciseEpoch struct {
	Day int64
	Sec float64
}

// Epoch returns the epoch as a single float, losing some resolution.
func (p PreciseEpoch) Epoch() Epoch {
	return Epoch(float64(p.Day) + p.Sec/SecondsPerDay)
}

// AddSeconds returns the epoch moved by s seconds.
func (p PreciseEpoch) AddSeconds(s float64) PreciseEpoch {
	return PreciseEpoch{Day: p.Day, Sec: p.Sec + s}.normalized()
}

// Add returns the epoch moved by the provided duration.
func (p PreciseEpoch) Add(d time.Duration) PreciseEpoch {
	return p.AddSeconds(d.Seconds())
}

// Sub returns p - q in seconds.
func (p PreciseEpoch) Sub(q PreciseEpoch) float64 {
	return float64(p.Day-q.Day)*SecondsPerDay + (p.Sec - q.Sec)
}

// Before returns whether p is strictly before q.
func (p PreciseEpoch) Before(q PreciseEpoch) bool {
	return p.Sub(q) < 0
}

func (p PreciseEpoch) normalized() PreciseEpoch {
	if p.Sec >= 0 && p.Sec < SecondsPerDay {
		return p
	}
	days := math.Floor(p.Sec / SecondsPerDay)
	return PreciseEpoch{Day: p.Day + int64(days), Sec: p.Sec - days*SecondsPerDay}
}

func (p PreciseEpoch) String() string {
	return fmt.Sprintf("%d+%.9fs", p.Day, p.Sec)
}

// Convert converts an epoch from one time system to another.
func Convert(e Epoch, from, to System) Epoch {
	return ConvertPrecise(e.Precise(), from, to).Epoch()
}

// ConvertPrecise converts an extended precision epoch from one time system to another.
func ConvertPrecise(p PreciseEpoch, from, to System) PreciseEpoch {
	if from == to {
		return p
	}
	tai := p.AddSeconds(offsetToTAI(p, from))
	return tai.AddSeconds(offsetFromTAI(tai, to))
}

// offsetToTAI returns TAI - from, in seconds, at epoch p expressed in `from`.
func offsetToTAI(p PreciseEpoch, from System) float64 {
	switch from {
	case A1:
		return -a1MinusTAI
	case TT:
		return -ttMinusTAI
	case TDB:
		// TDB - TT is periodic with a 1.7ms amplitude, evaluating it at TDB is good enough.
		return -ttMinusTAI - tdbMinusTT(p.Epoch())
	case UTC:
		return LeapSeconds(p.Epoch())
	default:
		return 0
	}
}

// offsetFromTAI returns to - TAI, in seconds, at the TAI epoch tai.
func offsetFromTAI(tai PreciseEpoch, to System) float64 {
	switch to {
	case A1:
		return a1MinusTAI
	case TT:
		return ttMinusTAI
	case TDB:
		tt := tai.AddSeconds(ttMinusTAI)
		return ttMinusTAI + tdbMinusTT(tt.Epoch())
	case UTC:
		// The leap second count is indexed by UTC, so iterate once from the TAI guess.
		guess := tai.AddSeconds(-LeapSeconds(tai.Epoch()))
		return -LeapSeconds(guess.Epoch())
	default:
		return 0
	}
}

// tdbMinusTT is the Vallado (3-48) approximation of TDB - TT in seconds.
func tdbMinusTT(tt Epoch) float64 {
	m := (357.5277233 + 35999.05034*tt.Centuries()) * math.Pi / 180
	return 0.001657*math.Sin(m) + 0.00001385*math.Sin(2*m)
}

// FromTime returns the epoch in the requested system of the provided instant, which is read as UTC.
func FromTime(t time.Time, to System) Epoch {
	utc := Epoch(julian.TimeToJD(t.UTC()) - ReferenceJD)
	return Convert(utc, UTC, to)
}

// PreciseFromTime is the extended precision flavor of FromTime.
func PreciseFromTime(t time.Time, to System) PreciseEpoch {
	d := t.UTC().Sub(referenceTime)
	utc := PreciseEpoch{Sec: d.Seconds()}.normalized()
	return ConvertPrecise(utc, UTC, to)
}

// ToTime returns the UTC instant of an epoch expressed in the provided system.
func ToTime(p PreciseEpoch, from System) time.Time {
	utc := ConvertPrecise(p, from, UTC)
	whole := math.Floor(utc.Sec)
	nanos := math.Round((utc.Sec - whole) * 1e9)
	return referenceTime.AddDate(0, 0, int(utc.Day)).Add(time.Duration(whole)*time.Second + time.Duration(nanos))
}

// JDToTime returns the UTC time of a UTC Julian date.
func JDToTime(jd float64) time.Time {
	return julian.JDToTime(jd)
}
