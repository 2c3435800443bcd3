package kinetics

import (
	"fmt"
	"math"
)

// Reversal holds the constants of the Nernst equation for a single ion
// species.
type Reversal struct {
	GasConstant float64 `yaml:"gas_constant"`
	Temperature float64 `yaml:"temperature"`
	Faraday     float64 `yaml:"faraday"`
	Valency     float64 `yaml:"valency"`
	Outside     float64 `yaml:"outside"`
	Inside      float64 `yaml:"inside"`
	// Scale converts the result to the voltage unit of the protocol.
	Scale float64 `yaml:"scale"`
}

// DefaultReversal uses the potassium constants of the reference channel
// model as given there: temperature 25 and no unit conversion.
func DefaultReversal() Reversal {
	return Reversal{
		GasConstant: 8.3145,
		Temperature: 25,
		Faraday:     96485,
		Valency:     1,
		Outside:     4,
		Inside:      130,
		Scale:       1,
	}
}

func (r Reversal) Validate() error {
	if r.Faraday == 0 || r.Valency == 0 {
		return fmt.Errorf("reversal potential: faraday and valency must be non-zero")
	}
	if r.Outside <= 0 || r.Inside <= 0 {
		return fmt.Errorf("reversal potential: concentrations must be positive, got out=%g in=%g", r.Outside, r.Inside)
	}
	return nil
}

// Potential returns E_rev = Scale * R*T/(z*F) * ln(out/in).
func (r Reversal) Potential() float64 {
	return r.Scale * r.GasConstant * r.Temperature / (r.Valency * r.Faraday) * math.Log(r.Outside/r.Inside)
}
