package ccsds

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ChristopherRabotin/gmat/timesys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const sampleOEM = `CCSDS_OEM_VERS = 2.0
COMMENT Produced for the publication tests
CREATION_DATE = 2018-152T10:00:00Z
ORIGINATOR = GMAT

META_START
OBJECT_NAME = Sat1
OBJECT_ID = 2018-001A
CENTER_NAME = EARTH
REF_FRAME = EME2000
TIME_SYSTEM = TAI
START_TIME = 2018-06-01T12:00:00.000
STOP_TIME = 2018-06-01T12:01:00.000
INTERPOLATION = HERMITE
INTERPOLATION_DEGREE = 7
META_STOP

COMMENT Two samples
2018-06-01T12:00:00.000 6993.0 0.0 0.0 0.0 7.55 0.3
2018-06-01T12:01:00.000 6980.5 452.1 17.9 -0.41 7.53 0.29 -0.0081 0.0 0.0

COVARIANCE_START
EPOCH = 2018-06-01T12:00:00.000
COV_REF_FRAME = EME2000
1.0
0.1 2.0
0.2 0.3 3.0
0.0 0.0 0.0 1e-6
0.0 0.0 0.0 0.0 2e-6
0.0 0.0 0.0 0.0 0.0 3e-6
COVARIANCE_STOP
`

func TestRead(t *testing.T) {
	oem, err := Read(strings.NewReader(sampleOEM))
	require.NoError(t, err)
	assert.Equal(t, "2.0", oem.Version)
	assert.Equal(t, "GMAT", oem.Originator)
	assert.Equal(t, time.Date(2018, 6, 1, 10, 0, 0, 0, time.UTC), oem.Created)
	assert.Equal(t, []string{"Produced for the publication tests"}, oem.Comments)
	require.Len(t, oem.Segments, 1)

	seg := oem.Segments[0]
	assert.Equal(t, "Sat1", seg.Meta.ObjectName)
	assert.Equal(t, "2018-001A", seg.Meta.ObjectID)
	assert.Equal(t, timesys.TAI, seg.Meta.TimeSystem)
	assert.Equal(t, 7, seg.Meta.InterpolationDegree)
	assert.Equal(t, []string{"Two samples"}, seg.Comments)
	require.Len(t, seg.States, 2)
	assert.Nil(t, seg.States[0].A)
	assert.Equal(t, []float64{6993, 0, 0}, seg.States[0].R)
	assert.Equal(t, []float64{-0.0081, 0, 0}, seg.States[1].A)
	assert.Equal(t, time.Date(2018, 6, 1, 12, 1, 0, 0, time.UTC), seg.States[1].Epoch)

	require.Len(t, seg.Covariances, 1)
	P := seg.Covariances[0].P
	assert.Equal(t, 0.3, P.At(1, 2))
	assert.Equal(t, 0.3, P.At(2, 1))
	assert.Equal(t, 3e-6, P.At(5, 5))
	assert.Equal(t, "EME2000", seg.Covariances[0].RefFrame)
}

func TestRoundTrip(t *testing.T) {
	oem, err := Read(strings.NewReader(sampleOEM))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "sat1.oem")
	require.NoError(t, oem.WriteFile(path))
	back, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, oem, back)
}

func TestTimeSystems(t *testing.T) {
	meta := Metadata{TimeSystem: timesys.TAI}
	reading := time.Date(2018, 6, 1, 12, 0, 37, 0, time.UTC)
	a1 := meta.ToA1(reading)
	// TAI is 37 s ahead of UTC in 2018.
	utc := timesys.ToTime(a1, timesys.A1)
	assert.WithinDuration(t, time.Date(2018, 6, 1, 12, 0, 0, 0, time.UTC), utc, time.Microsecond)
	assert.WithinDuration(t, reading, meta.FromA1(a1), time.Microsecond)

	utcMeta := Metadata{TimeSystem: timesys.UTC}
	assert.WithinDuration(t, utc, utcMeta.FromA1(a1), time.Microsecond)
}

func TestParseEpoch(t *testing.T) {
	exp := time.Date(2018, 2, 3, 4, 5, 6, 789000000, time.UTC)
	for _, value := range []string{"2018-02-03T04:05:06.789", "2018-034T04:05:06.789", "2018-02-03T04:05:06.789Z", " 2018-034T04:05:06.789000 "} {
		got, err := ParseEpoch(value)
		require.NoError(t, err, value)
		assert.Equal(t, exp, got, value)
	}
	day, err := ParseEpoch("2018-034")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, 2, 3, 0, 0, 0, 0, time.UTC), day)
	_, err = ParseEpoch("03/02/2018")
	assert.Error(t, err)
}

func TestReadErrors(t *testing.T) {
	header := "CCSDS_OEM_VERS = 2.0\nORIGINATOR = test\n"
	meta := "META_START\nOBJECT_NAME = A\nCENTER_NAME = EARTH\nREF_FRAME = EME2000\nSTART_TIME = 2018-01-01T00:00:00\nSTOP_TIME = 2018-01-02T00:00:00\nMETA_STOP\n"
	for name, contents := range map[string]string{
		"no version":       "META_START\n",
		"no segment":       header,
		"unknown header":   header + "SPACECRAFT = A\n",
		"unknown meta":     header + strings.Replace(meta, "META_STOP", "MASS = 12\nMETA_STOP", 1),
		"missing center":   header + strings.Replace(meta, "CENTER_NAME = EARTH\n", "", 1),
		"bad time system":  header + strings.Replace(meta, "META_STOP", "TIME_SYSTEM = GPS\nMETA_STOP", 1),
		"stop before":      header + strings.Replace(meta, "2018-01-02", "2017-01-02", 1),
		"truncated meta":   header + "META_START\nOBJECT_NAME = A\n",
		"short state":      header + meta + "2018-01-01T00:00:00 1 2 3 4 5\n",
		"bad value":        header + meta + "2018-01-01T00:00:00 1 2 3 4 5 x\n",
		"bad epoch":        header + meta + "2018/01/01 1 2 3 4 5 6\n",
		"keyword in data":  header + meta + "OBJECT_NAME = B\n",
		"orphan row":       header + meta + "COVARIANCE_START\n1.0\nCOVARIANCE_STOP\n",
		"short matrix":     header + meta + "COVARIANCE_START\nEPOCH = 2018-01-01T00:00:00\n1.0\n0.1 2.0\nCOVARIANCE_STOP\n",
		"wide row":         header + meta + "COVARIANCE_START\nEPOCH = 2018-01-01T00:00:00\n1.0 2.0\n",
		"unterminated cov": header + meta + "COVARIANCE_START\n",
	} {
		_, err := Read(strings.NewReader(contents))
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrFormat), "%s: %v", name, err)
	}
}

func TestWriteErrors(t *testing.T) {
	start := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	meta := Metadata{ObjectName: "A", CenterName: "EARTH", RefFrame: "EME2000", TimeSystem: timesys.UTC, StartTime: start, StopTime: start}
	var buf bytes.Buffer
	err := (&OEM{Segments: []*Segment{{Meta: Metadata{ObjectName: "A"}}}}).Write(&buf)
	assert.True(t, errors.Is(err, ErrFormat))
	err = (&OEM{Segments: []*Segment{{Meta: meta, States: []StateVector{{Epoch: start, R: []float64{1, 2}, V: []float64{1, 2, 3}}}}}}).Write(&buf)
	assert.True(t, errors.Is(err, ErrFormat))
	err = (&OEM{Segments: []*Segment{{Meta: meta, Covariances: []Covariance{{Epoch: start, P: mat.NewSymDense(3, nil)}}}}}).Write(&buf)
	assert.True(t, errors.Is(err, ErrFormat))

	buf.Reset()
	require.NoError(t, (&OEM{Originator: "test", Segments: []*Segment{{Meta: meta}}}).Write(&buf))
	assert.Contains(t, buf.String(), "CCSDS_OEM_VERS = "+Version)
	assert.Contains(t, buf.String(), "OBJECT_ID = A\n")
}
