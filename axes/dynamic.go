// Package axes computes the time dependent rotations between the mean-of-J2000 equatorial axes
// and the equator/equinox-of-date axes (mean of date, true of date and TEME).
package axes

import (
	"fmt"
	"math"
	"strings"

	"github.com/ChristopherRabotin/gmat"
	"github.com/ChristopherRabotin/gmat/timesys"
	kitlog "github.com/go-kit/kit/log"
	"github.com/soniakeys/meeus/v3/nutation"
	"gonum.org/v1/gonum/mat"
)

const (
	arcsec2rad = math.Pi / (180 * 3600)
	// DefaultUpdateInterval is the default time, in seconds, during which the rotation is held.
	DefaultUpdateInterval = 60.0
	// IAU1980 is the only supported nutation theory.
	IAU1980 = "IAU1980"
)

// Config configures a set of dynamic axes.
type Config struct {
	Origin gmat.CelestialObject
	// UpdateInterval (seconds) during which the rotation is held constant.
	UpdateInterval float64
	// OverrideOriginInterval uses the nutation update interval of the origin instead.
	OverrideOriginInterval bool
	// NutationModel must be IAU1980; an empty string selects it.
	NutationModel string
}

// Validate returns an error if the configuration is unsupported.
func (c Config) Validate() error {
	if model := strings.ToUpper(c.NutationModel); model != "" && model != IAU1980 {
		return fmt.Errorf("%w: unsupported nutation model `%s`", gmat.ErrConfiguration, c.NutationModel)
	}
	if c.UpdateInterval < 0 {
		return fmt.Errorf("%w: negative update interval %f", gmat.ErrConfiguration, c.UpdateInterval)
	}
	if c.OverrideOriginInterval && c.Origin.NutationUpdateInterval < 0 {
		return fmt.Errorf("%w: %s has a negative nutation update interval", gmat.ErrConfiguration, c.Origin.Name)
	}
	return nil
}

// NutationAngles are the auxiliary outputs of the nutation computation, in radians.
type NutationAngles struct {
	Δψ, Δε           float64 // nutation in longitude and obliquity
	MeanObliquity    float64 // ε̄
	LongAscNodeLunar float64 // Ω of the Moon's mean orbit
}

// CosMeanObliquity returns cos(ε̄).
func (n NutationAngles) CosMeanObliquity() float64 {
	return math.Cos(n.MeanObliquity)
}

// dynamicAxes holds the precession and nutation matrices, each recomputed only when the epoch
// moved by more than the update interval since its last computation.
type dynamicAxes struct {
	cfg        Config
	prec, nut  *mat.Dense
	angles     NutationAngles
	precEpoch  timesys.Epoch
	nutEpoch   timesys.Epoch
	recomputed uint64
	logger     kitlog.Logger
}

// updateInterval returns the interval in seconds applicable to these axes.
func (d *dynamicAxes) updateInterval() float64 {
	if d.cfg.OverrideOriginInterval {
		return d.cfg.Origin.NutationUpdateInterval
	}
	return d.cfg.UpdateInterval
}

func (d *dynamicAxes) due(last timesys.Epoch, cached *mat.Dense, epoch timesys.Epoch, force bool) bool {
	if force || cached == nil {
		return true
	}
	return math.Abs(float64(epoch-last))*timesys.SecondsPerDay >= d.updateInterval()
}

// ComputePrecessionMatrix returns the IAU-1976 precession matrix, which rotates mean-of-J2000
// vectors into mean-of-date vectors, for tTDB Julian centuries since J2000.
func (d *dynamicAxes) ComputePrecessionMatrix(tTDB float64, epoch timesys.Epoch, force bool) *mat.Dense {
	if !d.due(d.precEpoch, d.prec, epoch, force) {
		return d.prec
	}
	d.prec = PrecessionMatrix(tTDB)
	d.precEpoch = epoch
	d.recomputed++
	return d.prec
}

// ComputeNutationMatrix returns the IAU-1980 nutation matrix, which rotates mean-of-date vectors
// into true-of-date vectors, and the nutation angles.
func (d *dynamicAxes) ComputeNutationMatrix(tTDB float64, epoch timesys.Epoch, force bool) (*mat.Dense, NutationAngles) {
	if !d.due(d.nutEpoch, d.nut, epoch, force) {
		return d.nut, d.angles
	}
	d.nut, d.angles = NutationMatrix(tTDB)
	d.nutEpoch = epoch
	d.logger.Log("level", "debug", "subsys", "axes", "nutation", "recomputed", "epoch", float64(epoch), "Δψ", d.angles.Δψ)
	return d.nut, d.angles
}

// PrecessionMatrix returns R3(-z)·R2(θ)·R3(-ζ), Vallado (3-88, 3-89).
func PrecessionMatrix(tTDB float64) *mat.Dense {
	t2 := tTDB * tTDB
	t3 := t2 * tTDB
	ζ := (2306.2181*tTDB + 0.30188*t2 + 0.017998*t3) * arcsec2rad
	θ := (2004.3109*tTDB - 0.42665*t2 - 0.041833*t3) * arcsec2rad
	z := (2306.2181*tTDB + 1.09468*t2 + 0.018203*t3) * arcsec2rad
	return gmat.Chain(gmat.R3(-z), gmat.R2(θ), gmat.R3(-ζ))
}

// NutationMatrix returns R1(-ε)·R3(-Δψ)·R1(ε̄), Vallado (3-86).
func NutationMatrix(tTDB float64) (*mat.Dense, NutationAngles) {
	jde := tTDB*36525 + timesys.J2000.JD()
	Δψ, Δε := nutation.Nutation(jde)
	εbar := nutation.MeanObliquity(jde).Rad()
	angles := NutationAngles{
		Δψ:               Δψ.Rad(),
		Δε:               Δε.Rad(),
		MeanObliquity:    εbar,
		LongAscNodeLunar: lunarAscendingNode(tTDB),
	}
	ε := εbar + angles.Δε
	return gmat.Chain(gmat.R1(-ε), gmat.R3(-angles.Δψ), gmat.R1(εbar)), angles
}

// lunarAscendingNode is Meeus (22.1) in radians.
func lunarAscendingNode(t float64) float64 {
	deg := 125.04452 - 1934.136261*t + 0.0020708*t*t + t*t*t/450000
	return math.Mod(deg, 360) * math.Pi / 180
}
