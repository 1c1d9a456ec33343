package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/ChristopherRabotin/gmat"
	"github.com/ChristopherRabotin/gmat/axes"
	"github.com/ChristopherRabotin/gmat/ccsds"
	"github.com/ChristopherRabotin/gmat/estimation"
	"github.com/ChristopherRabotin/gmat/timesys"
	kitlog "github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/mat"
)

var (
	scenario = flag.String("scenario", "", "publication scenario TOML file")
	debug    = flag.Bool("debug", false, "verbose debug")
)

func main() {
	flag.Parse()
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	if *scenario == "" {
		logger.Log("level", "critical", "err", "no scenario provided")
		os.Exit(2)
	}
	s, err := gmat.LoadScenario(*scenario)
	if err != nil {
		logger.Log("level", "critical", "err", err)
		os.Exit(1)
	}
	reg := prometheus.NewRegistry()
	if err := run(s, reg, logger); err != nil {
		logger.Log("level", "critical", "err", err)
		os.Exit(1)
	}
}

// run builds the participants of the scenario, propagates them from start to end and publishes
// their state, covariance and acceleration at every step.
func run(s *gmat.Scenario, reg prometheus.Registerer, logger kitlog.Logger) (err error) {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	metrics, err := estimation.NewCollector(reg)
	if err != nil {
		return err
	}
	if s.MetricsAddress != "" {
		ln, err := net.Listen("tcp", s.MetricsAddress)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		defer serveMetrics(ln, metrics.Handler(), logger, time.Second)()
	}

	start := timesys.PreciseFromTime(s.Start, timesys.A1)
	teme, err := axes.New(axes.TEME, axes.Config{
		Origin:                 gmat.Earth,
		UpdateInterval:         s.AxesUpdateInterval,
		OverrideOriginInterval: s.AxesOverrideOriginRate,
		NutationModel:          s.NutationModel,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		metrics.SetRotationRecomputes(teme.Recomputations())
	}()

	registry := gmat.NewRegistry()
	for _, conf := range s.Spacecraft {
		sc, err := buildSpacecraft(conf, s, start, teme, logger)
		if err != nil {
			return err
		}
		if err := registry.Add(sc); err != nil {
			return err
		}
	}
	for _, fc := range s.Formations {
		f := gmat.NewFormation(fc.Name)
		for _, name := range fc.Members {
			obj, err := registry.Get(name)
			if err != nil {
				return err
			}
			f.Add(obj.(*gmat.Spacecraft))
		}
		if err := registry.Add(f); err != nil {
			return err
		}
	}

	sm := estimation.NewStateManager(registry, logger, metrics)
	if s.CovariancePolicy == estimation.TransitionMatrix.String() {
		sm.SetCovariancePolicy(estimation.TransitionMatrix)
	}
	for _, name := range s.Participants {
		obj, err := registry.Get(name)
		if err != nil {
			return err
		}
		if err := sm.SetObject(obj); err != nil {
			return err
		}
	}
	elements := s.Elements
	if len(elements) == 0 {
		for _, name := range s.Participants {
			elements = append(elements, gmat.ElementConfig{Object: name, Element: gmat.ParamCartesianState})
		}
	}
	for _, el := range elements {
		if err := sm.SetProperty(el.Object, el.Element); err != nil {
			return err
		}
	}
	if err := sm.BuildState(); err != nil {
		return err
	}
	scs, err := sm.Spacecraft()
	if err != nil {
		return err
	}

	stateRecords, err := sm.PrepareStateInfoToPublish()
	if err != nil {
		return err
	}
	stateNames := estimation.ElementNames(stateRecords)
	var covNames []string
	if withCovariance(scs) {
		covRecords, err := sm.CovarianceInfoToPublish()
		if err != nil {
			return err
		}
		covNames = estimation.ElementNames(covRecords)
	} else {
		logger.Log("level", "warning", "covariance", "disabled", "reason", "a participant has no orbit error covariance")
	}
	header := append(append([]string(nil), stateNames...), covNames...)
	buffer := make([]float64, s.BufferCapacity)
	if len(header) > len(buffer) {
		return fmt.Errorf("%w: %d published values but a buffer of %d", gmat.ErrCapacity, len(header), len(buffer))
	}

	rows := make(chan gmat.Row, 10)
	exported := make(chan error, 1)
	if s.Export.IsUseless() {
		go func() {
			for range rows {
			}
			exported <- nil
		}()
	} else {
		conf := s.Export
		conf.Logger = logger
		go func() {
			exported <- gmat.StreamRows(conf, header, rows)
		}()
	}
	// The exporter always drains the channel, so closing it and waiting cannot block.
	defer func() {
		close(rows)
		if exportErr := <-exported; err == nil {
			err = exportErr
		}
	}()

	ephem := newEphemeris(s, scs, covNames != nil)
	end := timesys.PreciseFromTime(s.End, timesys.A1)
	steps := 0
	for epoch := start; !end.Before(epoch); epoch = epoch.Add(s.Step) {
		for _, sc := range scs {
			if err := sc.PropagateTo(epoch); err != nil {
				return err
			}
		}
		if err := sm.MapObjectsToVector(); err != nil {
			return err
		}
		if _, err := sm.PrepareStateDataToPublish(stateNames, buffer); err != nil {
			return err
		}
		if covNames != nil {
			if _, err := sm.PublishCovarianceAndAcceleration(buffer, len(stateNames), epoch, true); err != nil {
				return err
			}
		}
		values := append([]float64(nil), buffer[:len(header)]...)
		rows <- gmat.Row{Epoch: epoch, Values: values}
		if err := ephem.add(epoch, scs, values[len(stateNames):]); err != nil {
			return err
		}
		steps++
	}
	logger.Log("level", "info", "steps", steps, "published", len(header), "rotations", teme.Recomputations())
	if s.OEMOutput != "" {
		if err := ephem.oem.WriteFile(s.OEMOutput); err != nil {
			return err
		}
		logger.Log("level", "info", "oem", s.OEMOutput)
	}
	return nil
}

func withCovariance(scs []*gmat.Spacecraft) bool {
	for _, sc := range scs {
		if _, err := sc.RmatrixParameter(gmat.ParamOrbitErrorCovariance); err != nil {
			return false
		}
	}
	return len(scs) > 0
}

// ephemeris accumulates the published states and covariances as an OEM, one segment per spacecraft.
type ephemeris struct {
	oem      *ccsds.OEM
	segments map[*gmat.Spacecraft]*ccsds.Segment
	withCov  bool
}

func newEphemeris(s *gmat.Scenario, scs []*gmat.Spacecraft, withCov bool) *ephemeris {
	e := &ephemeris{oem: &ccsds.OEM{Version: ccsds.Version, Created: time.Now().UTC(), Originator: "GMAT"}, segments: make(map[*gmat.Spacecraft]*ccsds.Segment), withCov: withCov}
	for _, sc := range scs {
		seg := &ccsds.Segment{Meta: ccsds.Metadata{
			ObjectName: sc.Name(),
			CenterName: sc.Orbit.Origin.Name,
			RefFrame:   "EME2000",
			TimeSystem: timesys.UTC,
			StartTime:  s.Start,
			StopTime:   s.End,
		}}
		e.oem.Segments = append(e.oem.Segments, seg)
		e.segments[sc] = seg
	}
	return e
}

// add records the spacecraft states at epoch. published holds the covariance and acceleration
// blocks in spacecraft order, or nothing when covariances are not published.
func (e *ephemeris) add(epoch timesys.PreciseEpoch, scs []*gmat.Spacecraft, published []float64) error {
	utc := timesys.ToTime(epoch, timesys.A1)
	for i, sc := range scs {
		seg := e.segments[sc]
		R, V := sc.Orbit.RV()
		sv := ccsds.StateVector{Epoch: utc, R: R, V: V}
		if !e.withCov {
			acc, err := sc.Acceleration(epoch)
			if err != nil {
				return err
			}
			sv.A = acc
			seg.States = append(seg.States, sv)
			continue
		}
		block := published[i*estimation.PublishedPerSpacecraft : (i+1)*estimation.PublishedPerSpacecraft]
		sv.A = append([]float64(nil), block[21:24]...)
		seg.States = append(seg.States, sv)
		P := mat.NewSymDense(6, nil)
		k := 0
		for r := 0; r < 6; r++ {
			for c := 0; c <= r; c++ {
				P.SetSym(r, c, block[k])
				k++
			}
		}
		seg.Covariances = append(seg.Covariances, ccsds.Covariance{Epoch: utc, P: P})
	}
	return nil
}

// serveMetrics serves the handler on the listener until the returned function is called, which
// waits up to the grace period for in-flight requests.
func serveMetrics(ln net.Listener, h http.Handler, logger kitlog.Logger, grace time.Duration) (stop func()) {
	logger = kitlog.With(logger, "subsys", "metrics")
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log("level", "error", "err", err)
		}
	}()
	logger.Log("level", "info", "address", ln.Addr())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Log("level", "error", "err", err)
			srv.Close()
		}
		<-done
	}
}
