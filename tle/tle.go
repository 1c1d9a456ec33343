// Package tle reads two-line element sets and propagates them with SGP4.
package tle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

const lineLength = 69

var (
	// ErrFormat is returned when a line does not follow the fixed column layout.
	ErrFormat = errors.New("malformed TLE")
	// ErrChecksum is returned when the modulo 10 checksum of a line does not match.
	ErrChecksum = errors.New("TLE checksum mismatch")
	// ErrPropagation is returned when SGP4 cannot produce a state (decayed or invalid elements).
	ErrPropagation = errors.New("SGP4 propagation failed")
)

// Elements is a parsed two-line element set. Angles are in degrees.
type Elements struct {
	Name            string
	Line1, Line2    string
	SatelliteNumber int
	Classification  byte
	Designator      string
	Epoch           time.Time // UTC
	Bstar           float64
	Inclination     float64
	RAAN            float64
	Eccentricity    float64
	ArgPerigee      float64
	MeanAnomaly     float64
	MeanMotion      float64 // revolutions per day
	Revolution      int

	sat satellite.Satellite
}

// Parse parses a two or three line (with a leading name) element set.
func Parse(lines ...string) (*Elements, error) {
	e := &Elements{}
	switch len(lines) {
	case 2:
	case 3:
		e.Name = strings.TrimSpace(strings.TrimPrefix(lines[0], "0 "))
		lines = lines[1:]
	default:
		return nil, fmt.Errorf("%w: expected 2 or 3 lines, got %d", ErrFormat, len(lines))
	}
	e.Line1 = strings.TrimRight(lines[0], " \r")
	e.Line2 = strings.TrimRight(lines[1], " \r")
	for num, line := range []string{e.Line1, e.Line2} {
		if len(line) != lineLength {
			return nil, fmt.Errorf("%w: line %d has %d characters instead of %d", ErrFormat, num+1, len(line), lineLength)
		}
		if line[0] != byte('1'+num) || line[1] != ' ' {
			return nil, fmt.Errorf("%w: line %d starts with `%s`", ErrFormat, num+1, line[:2])
		}
		if exp, got := int(line[68]-'0'), checksum(line); exp != got {
			return nil, fmt.Errorf("%w: line %d has checksum %d but sums to %d", ErrChecksum, num+1, exp, got)
		}
	}
	if err := e.parseLine1(); err != nil {
		return nil, err
	}
	if err := e.parseLine2(); err != nil {
		return nil, err
	}
	e.sat = satellite.TLEToSat(e.Line1, e.Line2, satellite.GravityWGS72)
	return e, nil
}

// Read reads all the element sets of a stream, with or without name lines.
func Read(r io.Reader) ([]*Elements, error) {
	var sets []*Elements
	var name string
	var pending []string
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \r")
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "1 "):
			if len(pending) != 0 {
				return nil, fmt.Errorf("%w: line %d: two consecutive first lines", ErrFormat, lineNo)
			}
			pending = append(pending, line)
		case strings.HasPrefix(line, "2 "):
			if len(pending) != 1 {
				return nil, fmt.Errorf("%w: line %d: second line without a first line", ErrFormat, lineNo)
			}
			lines := append(pending, line)
			if name != "" {
				lines = append([]string{name}, lines...)
			}
			e, err := Parse(lines...)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			sets = append(sets, e)
			name, pending = "", nil
		default:
			if len(pending) != 0 {
				return nil, fmt.Errorf("%w: line %d: name inside an element set", ErrFormat, lineNo)
			}
			name = line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(pending) != 0 {
		return nil, fmt.Errorf("%w: truncated element set", ErrFormat)
	}
	return sets, nil
}

// ReadFile reads the first element set of a file.
func ReadFile(path string) (*Elements, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sets, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: %s holds no element set", ErrFormat, path)
	}
	return sets[0], nil
}

// StateAt returns the TEME position (km) and velocity (km/s) at the provided time.
// SGP4 is evaluated on whole seconds; sub-second times are Hermite interpolated between the
// two surrounding seconds.
func (e *Elements) StateAt(t time.Time) (R, V []float64, err error) {
	// The propagator drops the fraction of a second of the element set epoch, so time is
	// counted from that truncated epoch.
	t = t.UTC().Add(-e.Epoch.Sub(e.Epoch.Truncate(time.Second)))
	floor := t.Truncate(time.Second)
	R0, V0, err := e.propagate(floor)
	if err != nil {
		return nil, nil, err
	}
	s := t.Sub(floor).Seconds()
	if s == 0 {
		return R0, V0, nil
	}
	R1, V1, err := e.propagate(floor.Add(time.Second))
	if err != nil {
		return nil, nil, err
	}
	s2, s3 := s*s, s*s*s
	h00, h10, h01, h11 := 2*s3-3*s2+1, s3-2*s2+s, -2*s3+3*s2, s3-s2
	d00, d10, d01, d11 := 6*s2-6*s, 3*s2-4*s+1, -6*s2+6*s, 3*s2-2*s
	R, V = make([]float64, 3), make([]float64, 3)
	for i := 0; i < 3; i++ {
		R[i] = h00*R0[i] + h10*V0[i] + h01*R1[i] + h11*V1[i]
		V[i] = d00*R0[i] + d10*V0[i] + d01*R1[i] + d11*V1[i]
	}
	return R, V, nil
}

func (e *Elements) propagate(t time.Time) ([]float64, []float64, error) {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	pos, vel := satellite.Propagate(e.sat, year, int(month), day, hour, min, sec)
	for _, v := range []float64{pos.X, pos.Y, pos.Z, vel.X, vel.Y, vel.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, fmt.Errorf("%w: satellite %d at %s", ErrPropagation, e.SatelliteNumber, t)
		}
	}
	return []float64{pos.X, pos.Y, pos.Z}, []float64{vel.X, vel.Y, vel.Z}, nil
}

func (e *Elements) parseLine1() (err error) {
	l := e.Line1
	if e.SatelliteNumber, err = field(l, 2, 7, "satellite number", strconv.Atoi); err != nil {
		return err
	}
	e.Classification = l[7]
	e.Designator = strings.TrimSpace(l[9:17])
	yy, err := field(l, 18, 20, "epoch year", strconv.Atoi)
	if err != nil {
		return err
	}
	year := 2000 + yy
	if yy >= 57 {
		year = 1900 + yy
	}
	doy, err := field(l, 20, 32, "epoch day", parseFloat)
	if err != nil {
		return err
	}
	if doy < 1 || doy >= 367 {
		return fmt.Errorf("%w: epoch day %f out of range", ErrFormat, doy)
	}
	nanos := math.Round((doy - 1) * 86400e9)
	e.Epoch = time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(nanos))
	if e.Bstar, err = field(l, 53, 61, "B*", parseExponent); err != nil {
		return err
	}
	return nil
}

func (e *Elements) parseLine2() (err error) {
	l := e.Line2
	num, err := field(l, 2, 7, "satellite number", strconv.Atoi)
	if err != nil {
		return err
	}
	if num != e.SatelliteNumber {
		return fmt.Errorf("%w: satellite number %d on line 2 but %d on line 1", ErrFormat, num, e.SatelliteNumber)
	}
	for _, f := range []struct {
		dst        *float64
		start, end int
		name       string
	}{
		{&e.Inclination, 8, 16, "inclination"},
		{&e.RAAN, 17, 25, "right ascension"},
		{&e.ArgPerigee, 34, 42, "argument of perigee"},
		{&e.MeanAnomaly, 43, 51, "mean anomaly"},
		{&e.MeanMotion, 52, 63, "mean motion"},
	} {
		if *f.dst, err = field(l, f.start, f.end, f.name, parseFloat); err != nil {
			return err
		}
	}
	if e.Eccentricity, err = field(l, 26, 33, "eccentricity", func(s string) (float64, error) {
		return strconv.ParseFloat("0."+s, 64)
	}); err != nil {
		return err
	}
	if e.Revolution, err = field(l, 63, 68, "revolution number", strconv.Atoi); err != nil {
		return err
	}
	return nil
}

// field parses the trimmed columns [start, end) of a line.
func field[T any](line string, start, end int, name string, parse func(string) (T, error)) (T, error) {
	v, err := parse(strings.TrimSpace(line[start:end]))
	if err != nil {
		return v, fmt.Errorf("%w: invalid %s `%s`", ErrFormat, name, line[start:end])
	}
	return v, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// parseExponent parses the assumed-decimal notation of B*, e.g. "-11606-4" is -0.11606e-4.
func parseExponent(s string) (float64, error) {
	if len(s) < 2 {
		return 0, errors.New("too short")
	}
	sign := 1.0
	switch s[0] {
	case '-':
		sign, s = -1, s[1:]
	case '+':
		s = s[1:]
	}
	if len(s) < 2 {
		return 0, errors.New("too short")
	}
	mantissa, err := strconv.ParseFloat("0."+s[:len(s)-2], 64)
	if err != nil {
		return 0, err
	}
	exp, err := strconv.Atoi(s[len(s)-2:])
	if err != nil {
		return 0, err
	}
	return sign * mantissa * math.Pow10(exp), nil
}

// checksum is the sum of the digits of the first 68 characters, minus signs counting as one, modulo 10.
func checksum(line string) int {
	sum := 0
	for _, c := range line[:lineLength-1] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}
