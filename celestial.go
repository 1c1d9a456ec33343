package gmat

import (
	"fmt"
	"strings"
)

// CelestialObject defines a celestial object used as an orbit or axes origin.
type CelestialObject struct {
	Name   string
	Radius float64
	μ      float64
	J2     float64
	J3     float64
	J4     float64
	// NutationUpdateInterval is the time (in seconds) during which nutation of this body's
	// rotating axes is considered constant.
	NutationUpdateInterval float64
}

// GM returns μ (which is unexported because it's a lowercase letter)
func (c CelestialObject) GM() float64 {
	return c.μ
}

// J returns the perturbing J_n factor for the provided n.
func (c CelestialObject) J(n uint8) float64 {
	switch n {
	case 2:
		return c.J2
	case 3:
		return c.J3
	case 4:
		return c.J4
	default:
		return 0.0
	}
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return c.Name + " body"
}

// Equals returns whether the provided celestial object is the same.
func (c CelestialObject) Equals(b CelestialObject) bool {
	return c.Name == b.Name && c.Radius == b.Radius && c.μ == b.μ && c.J2 == b.J2
}

// CelestialObjectFromString returns the object from its name
func CelestialObjectFromString(name string) (CelestialObject, error) {
	switch strings.ToLower(name) {
	case "earth":
		return Earth, nil
	case "luna", "moon":
		return Luna, nil
	case "sun":
		return Sun, nil
	case "mars":
		return Mars, nil
	default:
		return CelestialObject{}, fmt.Errorf("%w: undefined body '%s'", ErrUnknownObject, name)
	}
}

/* Definitions */

// Sun is our closest star.
var Sun = CelestialObject{"Sun", 695700, 1.32712440017987e11, 0, 0, 0, 60}

// Earth is home.
var Earth = CelestialObject{"Earth", 6378.1363, 3.98600433e5, 1082.6269e-6, -2.5324e-6, -1.6204e-6, 60}

// Luna is the Earth's moon.
var Luna = CelestialObject{"Luna", 1738.2, 4902.8005821478, 2.0330530e-4, 8.4759049e-6, -9.5919600e-6, 60}

// Mars is the vacation place.
var Mars = CelestialObject{"Mars", 3396.19, 4.28283100e4, 1964e-6, 36e-6, -18e-6, 60}
