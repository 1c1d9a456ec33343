// Package ccsds reads and writes CCSDS Orbit Ephemeris Messages in the KVN (keyword = value) notation.
package ccsds

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ChristopherRabotin/gmat/timesys"
	"gonum.org/v1/gonum/mat"
)

// Version is the OEM version written by this package.
const Version = "2.0"

// ErrFormat is returned when a message does not follow the OEM KVN layout.
var ErrFormat = errors.New("malformed OEM")

// Metadata is the META block of a segment.
type Metadata struct {
	ObjectName          string
	ObjectID            string
	CenterName          string
	RefFrame            string
	TimeSystem          timesys.System
	StartTime, StopTime time.Time // calendar readings in TimeSystem
	Interpolation       string
	InterpolationDegree int
}

// ToA1 returns the A1 epoch of a calendar reading in the segment time system.
func (m Metadata) ToA1(t time.Time) timesys.PreciseEpoch {
	return timesys.ConvertPrecise(timesys.PreciseFromTime(t, timesys.UTC), m.TimeSystem, timesys.A1)
}

// FromA1 returns the calendar reading in the segment time system of an A1 epoch.
func (m Metadata) FromA1(p timesys.PreciseEpoch) time.Time {
	return timesys.ToTime(timesys.ConvertPrecise(p, timesys.A1, m.TimeSystem), timesys.UTC)
}

// StateVector is one ephemeris line: km, km/s and, optionally, km/s^2.
type StateVector struct {
	Epoch time.Time
	R, V  []float64
	A     []float64 // nil when absent
}

// Covariance is a 6x6 position and velocity covariance (km^2, km^2/s, km^2/s^2).
type Covariance struct {
	Epoch    time.Time
	RefFrame string // empty when the segment frame applies
	P        *mat.SymDense
}

// Segment is a META block followed by its ephemeris and covariance data.
type Segment struct {
	Meta        Metadata
	Comments    []string
	States      []StateVector
	Covariances []Covariance
}

// OEM is an orbit ephemeris message.
type OEM struct {
	Version    string
	Created    time.Time
	Originator string
	Comments   []string
	Segments   []*Segment
}

// ReadFile reads an OEM from a file.
func ReadFile(path string) (*OEM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	oem, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return oem, nil
}

type section uint8

const (
	inHeader section = iota
	inMeta
	inData
	inCovariance
)

// Read parses a KVN OEM.
func Read(r io.Reader) (*OEM, error) {
	oem := &OEM{}
	var (
		seg    *Segment
		cov    *Covariance
		covRow int
		state  = inHeader
		lineNo int
	)
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: line %d: %s", ErrFormat, lineNo, fmt.Sprintf(format, args...))
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "COMMENT") {
			comment := strings.TrimSpace(strings.TrimPrefix(line, "COMMENT"))
			switch {
			case seg == nil:
				oem.Comments = append(oem.Comments, comment)
			default:
				seg.Comments = append(seg.Comments, comment)
			}
			continue
		}
		switch line {
		case "META_START":
			if state == inMeta || state == inCovariance {
				return nil, fail("unexpected META_START")
			}
			if oem.Version == "" {
				return nil, fail("missing CCSDS_OEM_VERS")
			}
			seg = &Segment{Meta: Metadata{TimeSystem: timesys.UTC}}
			oem.Segments = append(oem.Segments, seg)
			state = inMeta
			continue
		case "META_STOP":
			if state != inMeta {
				return nil, fail("unexpected META_STOP")
			}
			if err := seg.Meta.validate(); err != nil {
				return nil, fail("%s", err)
			}
			state = inData
			continue
		case "COVARIANCE_START":
			if state != inData {
				return nil, fail("unexpected COVARIANCE_START")
			}
			state = inCovariance
			continue
		case "COVARIANCE_STOP":
			if state != inCovariance || (cov != nil && covRow != 6) {
				return nil, fail("unexpected COVARIANCE_STOP")
			}
			cov = nil
			state = inData
			continue
		}

		key, value, isKV := strings.Cut(line, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		var err error
		switch state {
		case inHeader:
			if !isKV {
				return nil, fail("expected a header keyword")
			}
			switch key {
			case "CCSDS_OEM_VERS":
				oem.Version = value
			case "CREATION_DATE":
				oem.Created, err = ParseEpoch(value)
			case "ORIGINATOR":
				oem.Originator = value
			default:
				return nil, fail("unknown header keyword `%s`", key)
			}
		case inMeta:
			if !isKV {
				return nil, fail("expected a metadata keyword")
			}
			err = seg.Meta.set(key, value)
		case inData:
			if isKV {
				return nil, fail("keyword `%s` outside of a META block", key)
			}
			var sv StateVector
			if sv, err = parseStateVector(line); err == nil {
				seg.States = append(seg.States, sv)
			}
		case inCovariance:
			if isKV {
				if covRow != 0 && covRow != 6 {
					return nil, fail("keyword inside a covariance matrix")
				}
				switch key {
				case "EPOCH":
					if cov == nil || covRow == 6 {
						seg.Covariances = append(seg.Covariances, Covariance{P: mat.NewSymDense(6, nil)})
						cov, covRow = &seg.Covariances[len(seg.Covariances)-1], 0
					}
					cov.Epoch, err = ParseEpoch(value)
				case "COV_REF_FRAME":
					if cov == nil {
						return nil, fail("COV_REF_FRAME before EPOCH")
					}
					cov.RefFrame = value
				default:
					return nil, fail("unknown covariance keyword `%s`", key)
				}
				break
			}
			if cov == nil || covRow >= 6 {
				return nil, fail("covariance row without an EPOCH")
			}
			err = parseCovarianceRow(cov.P, covRow, line)
			covRow++
		}
		if err != nil {
			return nil, fail("%s", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if state == inMeta || state == inCovariance {
		return nil, fmt.Errorf("%w: truncated message", ErrFormat)
	}
	if len(oem.Segments) == 0 {
		return nil, fmt.Errorf("%w: no segment", ErrFormat)
	}
	return oem, nil
}

func (m *Metadata) set(key, value string) (err error) {
	switch key {
	case "OBJECT_NAME":
		m.ObjectName = value
	case "OBJECT_ID":
		m.ObjectID = value
	case "CENTER_NAME":
		m.CenterName = value
	case "REF_FRAME":
		m.RefFrame = value
	case "TIME_SYSTEM":
		m.TimeSystem, err = timesys.SystemFromString(value)
	case "START_TIME":
		m.StartTime, err = ParseEpoch(value)
	case "STOP_TIME":
		m.StopTime, err = ParseEpoch(value)
	case "USEABLE_START_TIME", "USEABLE_STOP_TIME", "REF_FRAME_EPOCH":
	case "INTERPOLATION":
		m.Interpolation = value
	case "INTERPOLATION_DEGREE":
		m.InterpolationDegree, err = strconv.Atoi(value)
	default:
		return fmt.Errorf("unknown metadata keyword `%s`", key)
	}
	return err
}

func (m Metadata) validate() error {
	switch {
	case m.ObjectName == "":
		return errors.New("missing OBJECT_NAME")
	case m.CenterName == "":
		return errors.New("missing CENTER_NAME")
	case m.RefFrame == "":
		return errors.New("missing REF_FRAME")
	case m.StopTime.Before(m.StartTime):
		return errors.New("STOP_TIME before START_TIME")
	}
	return nil
}

func parseStateVector(line string) (StateVector, error) {
	fields := strings.Fields(line)
	if len(fields) != 7 && len(fields) != 10 {
		return StateVector{}, fmt.Errorf("ephemeris line has %d fields", len(fields))
	}
	epoch, err := ParseEpoch(fields[0])
	if err != nil {
		return StateVector{}, err
	}
	vals := make([]float64, len(fields)-1)
	for i, f := range fields[1:] {
		if vals[i], err = strconv.ParseFloat(f, 64); err != nil {
			return StateVector{}, fmt.Errorf("invalid value `%s`", f)
		}
	}
	sv := StateVector{Epoch: epoch, R: vals[0:3:3], V: vals[3:6:6]}
	if len(vals) == 9 {
		sv.A = vals[6:9:9]
	}
	return sv, nil
}

// parseCovarianceRow reads row i of the lower triangle, which has i+1 values.
func parseCovarianceRow(P *mat.SymDense, i int, line string) error {
	fields := strings.Fields(line)
	if len(fields) != i+1 {
		return fmt.Errorf("covariance row %d has %d values", i+1, len(fields))
	}
	for j, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return fmt.Errorf("invalid covariance value `%s`", f)
		}
		P.SetSym(i, j, v)
	}
	return nil
}

var epochLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-002T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-002T15:04:05",
	"2006-01-02",
	"2006-002",
}

// ParseEpoch parses a CCSDS calendar (YYYY-MM-DDThh:mm:ss) or day-of-year (YYYY-DDDThh:mm:ss)
// epoch, with an optional fraction of second and trailing Z.
func ParseEpoch(value string) (time.Time, error) {
	value = strings.TrimSuffix(strings.TrimSpace(value), "Z")
	for _, layout := range epochLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid epoch `%s`", value)
}

// FormatEpoch formats an epoch the way this package writes them.
func FormatEpoch(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000")
}
