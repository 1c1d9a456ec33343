package tle

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Vanguard 1, the first case of Vallado's SGP4 verification set.
const (
	vanguard1 = "1 00005U 58002B   00179.78495062  .00000023  00000-0  28098-4 0  4753"
	vanguard2 = "2 00005  34.2682 348.7242 1859667 331.7664  19.3264 10.82419157413667"
)

func norm(v []float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func TestParse(t *testing.T) {
	e, err := Parse("0 VANGUARD 1", vanguard1, vanguard2)
	require.NoError(t, err)
	assert.Equal(t, "VANGUARD 1", e.Name)
	assert.Equal(t, 5, e.SatelliteNumber)
	assert.Equal(t, byte('U'), e.Classification)
	assert.Equal(t, "58002B", e.Designator)
	assert.WithinDuration(t, time.Date(2000, 6, 27, 18, 50, 19, 733568000, time.UTC), e.Epoch, time.Microsecond)
	assert.InDelta(t, 0.28098e-4, e.Bstar, 1e-12)
	assert.Equal(t, 34.2682, e.Inclination)
	assert.Equal(t, 348.7242, e.RAAN)
	assert.Equal(t, 0.1859667, e.Eccentricity)
	assert.Equal(t, 331.7664, e.ArgPerigee)
	assert.Equal(t, 19.3264, e.MeanAnomaly)
	assert.Equal(t, 10.82419157, e.MeanMotion)
	assert.Equal(t, 41366, e.Revolution)

	// Trailing blanks and carriage returns are tolerated.
	_, err = Parse(vanguard1+" \r", vanguard2+"\r")
	assert.NoError(t, err)
}

func TestParseErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		lines []string
		err   error
	}{
		"one line":       {[]string{vanguard1}, ErrFormat},
		"short line":     {[]string{vanguard1[:60], vanguard2}, ErrFormat},
		"swapped lines":  {[]string{vanguard2, vanguard1}, ErrFormat},
		"bad checksum 1": {[]string{vanguard1[:68] + "4", vanguard2}, ErrChecksum},
		"bad checksum 2": {[]string{vanguard1, vanguard2[:68] + "0"}, ErrChecksum},
		"bad digit":      {[]string{vanguard1, strings.Replace(vanguard2, "34.2682", "34.2683", 1)}, ErrChecksum},
		// Same digit sum, different satellite.
		"mismatch":    {[]string{vanguard1, "2 00014" + vanguard2[7:]}, ErrFormat},
		"not numeric": {[]string{vanguard1, strings.Replace(vanguard2, "34.2682", "34.268a", 1)[:68] + "5"}, ErrFormat},
	} {
		_, err := Parse(tc.lines...)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, tc.err), "%s: %v", name, err)
	}
}

func TestRead(t *testing.T) {
	contents := "VANGUARD 1\n" + vanguard1 + "\n" + vanguard2 + "\n\n" + vanguard1 + "\n" + vanguard2 + "\n"
	sets, err := Read(strings.NewReader(contents))
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "VANGUARD 1", sets[0].Name)
	assert.Empty(t, sets[1].Name)

	_, err = Read(strings.NewReader(vanguard1 + "\n"))
	assert.True(t, errors.Is(err, ErrFormat))
	_, err = Read(strings.NewReader(vanguard2 + "\n"))
	assert.True(t, errors.Is(err, ErrFormat))
	_, err = Read(strings.NewReader(vanguard1 + "\nNAME\n" + vanguard2))
	assert.True(t, errors.Is(err, ErrFormat))

	path := filepath.Join(t.TempDir(), "vanguard.tle")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	e, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, e.SatelliteNumber)

	empty := filepath.Join(t.TempDir(), "empty.tle")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = ReadFile(empty)
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestStateAt(t *testing.T) {
	e, err := Parse(vanguard1, vanguard2)
	require.NoError(t, err)
	R, V, err := e.StateAt(e.Epoch)
	require.NoError(t, err)
	// Vallado's reference state at the epoch, TEME.
	expR := []float64{7022.46529266, -1400.08296755, 0.03995155}
	expV := []float64{1.893841015, 6.405893759, 4.534807250}
	assert.InDeltaSlice(t, expR, R, 1e-4)
	assert.InDeltaSlice(t, expV, V, 1e-7)

	// Six hours later, from the same verification run.
	R6, V6, err := e.StateAt(e.Epoch.Add(6 * time.Hour))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-7154.03120202, -3783.17682504, -3536.19412294}, R6, 1e-3)
	assert.InDeltaSlice(t, []float64{4.741887409, -4.151817765, -2.093935425}, V6, 1e-6)

	// The interpolated state is continuous across the sampled seconds.
	second := e.Epoch.Add(time.Second)
	Rb, Vb, err := e.StateAt(second.Add(-time.Nanosecond))
	require.NoError(t, err)
	Ra, Va, err := e.StateAt(second)
	require.NoError(t, err)
	assert.InDeltaSlice(t, Ra, Rb, 1e-4)
	assert.InDeltaSlice(t, Va, Vb, 1e-6)

	// Half an orbit later, the spacecraft is near apogee.
	period := time.Duration(86400 / e.MeanMotion * float64(time.Second))
	Rh, _, err := e.StateAt(e.Epoch.Add(period / 2))
	require.NoError(t, err)
	assert.Greater(t, norm(Rh), norm(R))
}
