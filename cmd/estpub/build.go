package main

import (
	"fmt"
	"strings"

	"github.com/ChristopherRabotin/gmat"
	"github.com/ChristopherRabotin/gmat/axes"
	"github.com/ChristopherRabotin/gmat/ccsds"
	"github.com/ChristopherRabotin/gmat/timesys"
	"github.com/ChristopherRabotin/gmat/tle"
	kitlog "github.com/go-kit/kit/log"
	"gonum.org/v1/gonum/mat"
)

// buildSpacecraft creates the spacecraft of a configuration at the scenario start (A1).
// TLE states are rotated from TEME to mean-of-J2000 with the provided axes.
func buildSpacecraft(conf gmat.SpacecraftConfig, s *gmat.Scenario, start timesys.PreciseEpoch, teme *axes.Axes, logger kitlog.Logger) (*gmat.Spacecraft, error) {
	var (
		orbit *gmat.Orbit
		epoch = start
		P0    *mat.SymDense
	)
	switch conf.Source {
	case gmat.SourceRV:
		orbit = gmat.NewOrbitFromRV(conf.R, conf.V, conf.Body)
	case gmat.SourceOE:
		orbit = gmat.NewOrbitFromOE(conf.OE[0], conf.OE[1], conf.OE[2], conf.OE[3], conf.OE[4], conf.OE[5], conf.Body)
	case gmat.SourceTLE:
		if !conf.Body.Equals(gmat.Earth) {
			return nil, fmt.Errorf("%w: %s: TLE orbits are about Earth, not %s", gmat.ErrConfiguration, conf.Name, conf.Body.Name)
		}
		elements, err := tle.ReadFile(conf.File)
		if err != nil {
			return nil, err
		}
		R, V, err := elements.StateAt(s.Start)
		if err != nil {
			return nil, err
		}
		R, V = teme.ToMJ2000(start.Epoch(), R, V)
		orbit = gmat.NewOrbitFromRV(R, V, gmat.Earth)
		logger.Log("level", "info", "spacecraft", conf.Name, "tle", elements.SatelliteNumber, "tleEpoch", elements.Epoch)
	case gmat.SourceOEM:
		var err error
		if orbit, epoch, P0, err = loadOEM(conf); err != nil {
			return nil, err
		}
		if start.Before(epoch) {
			return nil, fmt.Errorf("%w: %s: first OEM state is after the mission start", gmat.ErrConfiguration, conf.Name)
		}
	default:
		return nil, fmt.Errorf("%w: %s: unknown source `%s`", gmat.ErrConfiguration, conf.Name, conf.Source)
	}

	sc := gmat.NewSpacecraft(conf.Name, orbit, epoch)
	sc.Cd, sc.Cr = conf.Cd, conf.Cr
	sc.Perts.Jn = conf.Jn
	if s.Step < sc.Step {
		sc.Step = s.Step
	}
	if *debug {
		sc.SetLogger(logger)
	}
	if conf.SigmaPosition > 0 || conf.SigmaVelocity > 0 {
		P0 = mat.NewSymDense(6, nil)
		for i := 0; i < 3; i++ {
			P0.SetSym(i, i, conf.SigmaPosition*conf.SigmaPosition)
			P0.SetSym(i+3, i+3, conf.SigmaVelocity*conf.SigmaVelocity)
		}
	}
	if P0 != nil {
		if err := sc.SetCovariance(P0); err != nil {
			return nil, err
		}
	}
	if conf.Disperse {
		state, err := sc.Disperse()
		if err != nil {
			return nil, err
		}
		if err := sc.SetParameter(0, state); err != nil {
			return nil, err
		}
		logger.Log("level", "info", "spacecraft", conf.Name, "dispersed", fmt.Sprintf("%v", state))
	}
	// OEM states may predate the mission.
	if err := sc.PropagateTo(start); err != nil {
		return nil, err
	}
	return sc, nil
}

// loadOEM returns the first state of the segment of the spacecraft (or of the first segment),
// with the first covariance of that segment if any.
func loadOEM(conf gmat.SpacecraftConfig) (*gmat.Orbit, timesys.PreciseEpoch, *mat.SymDense, error) {
	oem, err := ccsds.ReadFile(conf.File)
	if err != nil {
		return nil, timesys.PreciseEpoch{}, nil, err
	}
	seg := oem.Segments[0]
	for _, candidate := range oem.Segments {
		if candidate.Meta.ObjectName == conf.Name {
			seg = candidate
			break
		}
	}
	switch strings.ToUpper(seg.Meta.RefFrame) {
	case "EME2000", "ICRF", "GCRF":
	default:
		return nil, timesys.PreciseEpoch{}, nil, fmt.Errorf("%w: %s: unsupported OEM frame %s", gmat.ErrConfiguration, conf.Name, seg.Meta.RefFrame)
	}
	if len(seg.States) == 0 {
		return nil, timesys.PreciseEpoch{}, nil, fmt.Errorf("%w: %s: OEM segment has no state", gmat.ErrConfiguration, conf.Name)
	}
	center, err := gmat.CelestialObjectFromString(seg.Meta.CenterName)
	if err != nil {
		return nil, timesys.PreciseEpoch{}, nil, fmt.Errorf("%s: %w", conf.Name, err)
	}
	sv := seg.States[0]
	var P0 *mat.SymDense
	if len(seg.Covariances) > 0 {
		P0 = seg.Covariances[0].P
	}
	return gmat.NewOrbitFromRV(sv.R, sv.V, center), seg.Meta.ToA1(sv.Epoch), P0, nil
}
