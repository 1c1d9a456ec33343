package gmat

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ChristopherRabotin/gmat/timesys"
	"github.com/spf13/viper"
)

const dateTimeFormat = "2006-01-02 15:04:05"

// Orbit sources of a configured spacecraft.
const (
	SourceRV  = "rv"
	SourceOE  = "oe"
	SourceTLE = "tle"
	SourceOEM = "oem"
)

// SpacecraftConfig is the configuration of one spacecraft of a scenario.
type SpacecraftConfig struct {
	Name   string
	Body   CelestialObject
	Source string
	R, V   []float64  // SourceRV, km and km/s
	OE     [6]float64 // SourceOE: a, e, i, Ω, ω, ν; angles in degrees
	File   string     // SourceTLE and SourceOEM
	Cd, Cr float64
	Jn     uint8
	// One sigma of the initial position (km) and velocity (km/s) errors; zero for no covariance.
	SigmaPosition, SigmaVelocity float64
	// Disperse draws the initial state from the covariance.
	Disperse bool
}

// FormationConfig is a named group of configured spacecraft.
type FormationConfig struct {
	Name    string
	Members []string
}

// ElementConfig is an estimated element, read as "Object.Element".
type ElementConfig struct {
	Object, Element string
}

// Scenario is a publication scenario.
type Scenario struct {
	Start, End time.Time
	Step       time.Duration

	Spacecraft   []SpacecraftConfig
	Formations   []FormationConfig
	Participants []string
	Elements     []ElementConfig

	CovariancePolicy string
	// Frame rotation applied to TLE sourced states.
	AxesUpdateInterval     float64
	AxesOverrideOriginRate bool
	NutationModel          string

	BufferCapacity int
	Export         ExportConfig
	OEMOutput      string
	MetricsAddress string
}

// LoadScenario reads a scenario file (any format viper supports, usually TOML).
func LoadScenario(path string) (*Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrConfiguration, path, err)
	}
	v.SetDefault("mission.step", "10s")
	v.SetDefault("estimation.covariance_policy", "HoldInitial")
	v.SetDefault("axes.update_interval", 60.0)
	v.SetDefault("axes.nutation", "IAU1980")
	v.SetDefault("publish.capacity", 4096)
	v.SetDefault("export.filename", "published")

	s := &Scenario{}
	var err error
	if s.Start, err = readJDEorTime(v, "mission.start"); err != nil {
		return nil, err
	}
	if s.End, err = readJDEorTime(v, "mission.end"); err != nil {
		return nil, err
	}
	if s.End.Before(s.Start) {
		return nil, fmt.Errorf("%w: mission ends (%s) before it starts (%s)", ErrConfiguration, s.End, s.Start)
	}
	if s.Step = v.GetDuration("mission.step"); s.Step <= 0 {
		return nil, fmt.Errorf("%w: mission.step must be positive", ErrConfiguration)
	}

	dir := filepath.Dir(path)
	// Arrays of tables keep the case of the names, unlike viper keys.
	var rawSCs []rawSpacecraft
	if err := v.UnmarshalKey("spacecraft", &rawSCs); err != nil {
		return nil, fmt.Errorf("%w: spacecraft: %s", ErrConfiguration, err)
	}
	for _, raw := range rawSCs {
		sc, err := raw.config(dir)
		if err != nil {
			return nil, err
		}
		if s.hasSpacecraft(sc.Name) {
			return nil, fmt.Errorf("%w: duplicate spacecraft `%s`", ErrConfiguration, sc.Name)
		}
		s.Spacecraft = append(s.Spacecraft, sc)
	}
	if err := v.UnmarshalKey("formation", &s.Formations); err != nil {
		return nil, fmt.Errorf("%w: formation: %s", ErrConfiguration, err)
	}
	for _, f := range s.Formations {
		for _, m := range f.Members {
			if !s.hasSpacecraft(m) {
				return nil, fmt.Errorf("%w: formation %s: unknown member `%s`", ErrConfiguration, f.Name, m)
			}
		}
	}

	s.Participants = v.GetStringSlice("estimation.participants")
	if len(s.Participants) == 0 {
		for _, sc := range s.Spacecraft {
			s.Participants = append(s.Participants, sc.Name)
		}
	}
	for _, p := range s.Participants {
		if !s.hasSpacecraft(p) && !s.hasFormation(p) {
			return nil, fmt.Errorf("%w: unknown participant `%s`", ErrConfiguration, p)
		}
	}
	for _, el := range v.GetStringSlice("estimation.elements") {
		dot := strings.Index(el, ".")
		if dot <= 0 || dot == len(el)-1 {
			return nil, fmt.Errorf("%w: estimated element `%s` is not Object.Element", ErrConfiguration, el)
		}
		s.Elements = append(s.Elements, ElementConfig{Object: el[:dot], Element: el[dot+1:]})
	}

	s.CovariancePolicy = v.GetString("estimation.covariance_policy")
	switch s.CovariancePolicy {
	case "HoldInitial", "TransitionMatrix":
	default:
		return nil, fmt.Errorf("%w: unknown covariance policy `%s`", ErrConfiguration, s.CovariancePolicy)
	}
	s.AxesUpdateInterval = v.GetFloat64("axes.update_interval")
	s.AxesOverrideOriginRate = v.GetBool("axes.override_origin_interval")
	s.NutationModel = v.GetString("axes.nutation")

	s.BufferCapacity = v.GetInt("publish.capacity")
	s.Export = ExportConfig{
		OutputDir: v.GetString("export.directory"),
		Filename:  v.GetString("export.filename"),
		AsCSV:     v.GetBool("export.csv"),
		AsCBOR:    v.GetBool("export.cbor"),
		Timestamp: v.GetBool("export.timestamp"),
	}
	s.OEMOutput = v.GetString("export.oem")
	s.MetricsAddress = v.GetString("metrics.address")
	return s, nil
}

type rawSpacecraft struct {
	Name          string
	Body          string
	Source        string
	R, V          []float64
	SMA           float64 `mapstructure:"sma"`
	Ecc           float64 `mapstructure:"ecc"`
	Inc           float64 `mapstructure:"inc"`
	RAAN          float64 `mapstructure:"raan"`
	ArgPeri       float64 `mapstructure:"argperi"`
	TAnomaly      float64 `mapstructure:"tanomaly"`
	File          string
	Cd, Cr        float64
	Jn            uint8
	SigmaPosition float64 `mapstructure:"sigma_position"`
	SigmaVelocity float64 `mapstructure:"sigma_velocity"`
	Disperse      bool
}

func (raw rawSpacecraft) config(dir string) (SpacecraftConfig, error) {
	name := raw.Name
	sc := SpacecraftConfig{
		Name:          name,
		Source:        strings.ToLower(raw.Source),
		Cd:            raw.Cd,
		Cr:            raw.Cr,
		Jn:            raw.Jn,
		SigmaPosition: raw.SigmaPosition,
		SigmaVelocity: raw.SigmaVelocity,
		Disperse:      raw.Disperse,
	}
	if name == "" || strings.Contains(name, ".") {
		return sc, fmt.Errorf("%w: invalid spacecraft name `%s`", ErrConfiguration, name)
	}
	if sc.Cd == 0 {
		sc.Cd = 2.2
	}
	if sc.Cr == 0 {
		sc.Cr = 1.8
	}
	if raw.Body == "" {
		raw.Body = "Earth"
	}
	body, err := CelestialObjectFromString(raw.Body)
	if err != nil {
		return sc, fmt.Errorf("spacecraft %s: %w", name, err)
	}
	sc.Body = body
	switch sc.Source {
	case SourceRV:
		if len(raw.R) != 3 || len(raw.V) != 3 {
			return sc, fmt.Errorf("%w: spacecraft %s: R and V need three components", ErrConfiguration, name)
		}
		sc.R, sc.V = raw.R, raw.V
	case SourceOE:
		sc.OE = [6]float64{raw.SMA, raw.Ecc, raw.Inc, raw.RAAN, raw.ArgPeri, raw.TAnomaly}
		if raw.SMA <= 0 || raw.Ecc < 0 || raw.Ecc >= 1 {
			return sc, fmt.Errorf("%w: spacecraft %s: invalid elliptical orbit", ErrConfiguration, name)
		}
	case SourceTLE, SourceOEM:
		sc.File = raw.File
		if sc.File == "" {
			return sc, fmt.Errorf("%w: spacecraft %s: missing %s file", ErrConfiguration, name, sc.Source)
		}
		if !filepath.IsAbs(sc.File) {
			sc.File = filepath.Join(dir, sc.File)
		}
	default:
		return sc, fmt.Errorf("%w: spacecraft %s: unknown source `%s`", ErrConfiguration, name, raw.Source)
	}
	if sc.Jn > 3 {
		return sc, fmt.Errorf("%w: spacecraft %s: only zonal harmonics up to J3 are supported", ErrConfiguration, name)
	}
	return sc, nil
}

// readJDEorTime reads a date either as a Julian date or as a UTC date time.
func readJDEorTime(v *viper.Viper, key string) (time.Time, error) {
	if jde := v.GetFloat64(key); jde != 0 {
		return timesys.JDToTime(jde), nil
	}
	dt, err := time.Parse(dateTimeFormat, v.GetString(key))
	if err != nil {
		return dt, fmt.Errorf("%w: %s: %s", ErrConfiguration, key, err)
	}
	return dt, nil
}

func (s *Scenario) hasSpacecraft(name string) bool {
	for _, sc := range s.Spacecraft {
		if sc.Name == name {
			return true
		}
	}
	return false
}

func (s *Scenario) hasFormation(name string) bool {
	for _, f := range s.Formations {
		if f.Name == name {
			return true
		}
	}
	return false
}
