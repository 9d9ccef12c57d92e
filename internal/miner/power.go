package miner

import (
	"log"

	"scrapworks.ai/internal/host"
)

// PowerSource names the host API shape a reading came from.
type PowerSource int

const (
	SourceNone PowerSource = iota
	SourceEnergy
	SourcePassthrough
	SourcePoweredFlag
)

func (s PowerSource) String() string {
	switch s {
	case SourceEnergy:
		return "energy"
	case SourcePassthrough:
		return "passthrough"
	case SourcePoweredFlag:
		return "powered_flag"
	default:
		return "none"
	}
}

type PowerReading struct {
	Measured int
	// Watts is Measured plus the compensation offset.
	Watts  int
	Source PowerSource
}

// PowerGate estimates the power delivered to an entity.
//
// Hosts report power through one of several accessors depending on their version and
// there is no way to ask which one is present, so the gate tries them in order of how
// common they are.
type PowerGate struct {
	compensation int

	log   *log.Logger
	debug bool
}

func NewPowerGate(compensation int, logger *log.Logger) *PowerGate {
	g := &PowerGate{log: logger}
	g.SetCompensation(compensation)
	return g
}

func (g *PowerGate) SetDebug(on bool) { g.debug = on }

// SetCompensation sets the watts added back to every reading. Negative values count
// as zero.
func (g *PowerGate) SetCompensation(w int) { g.compensation = max(0, w) }

// HasPowerInput reports whether e exposes any supported power accessor.
func HasPowerInput(e host.Entity) bool {
	switch e.(type) {
	case host.EnergyReader, host.PassthroughReader, host.PoweredFlag:
		return true
	}
	return false
}

func (g *PowerGate) ReadAdjustedPower(e host.Entity) PowerReading {
	measured, src := measurePower(e)
	r := PowerReading{
		Measured: measured,
		Watts:    measured + g.compensation,
		Source:   src,
	}
	if g.debug {
		g.log.Printf("[debug] measured=%dw (%s), +comp=%d => adjusted=%dw", r.Measured, r.Source, g.compensation, r.Watts)
	}
	return r
}

func measurePower(e host.Entity) (int, PowerSource) {
	if r, ok := e.(host.EnergyReader); ok {
		if n, err := callPower(r.CurrentEnergy); err == nil {
			return max(0, n), SourceEnergy
		}
	}
	if r, ok := e.(host.PassthroughReader); ok {
		if n, err := callPower(func() (int, error) { return r.PassthroughAmount(0) }); err == nil {
			return max(0, n), SourcePassthrough
		}
	}
	if r, ok := e.(host.PoweredFlag); ok {
		on, err := callPower(func() (int, error) {
			if r.IsPowered() {
				return 1, nil
			}
			return 0, nil
		})
		if err == nil {
			return on, SourcePoweredFlag
		}
	}
	return 0, SourceNone
}

type powerPanic struct{ v any }

func (p powerPanic) Error() string { return "power accessor panicked" }

// callPower turns a panicking accessor into an error so the next shape is tried.
func callPower(fn func() (int, error)) (n int, err error) {
	defer func() {
		if v := recover(); v != nil {
			n, err = 0, powerPanic{v: v}
		}
	}()
	return fn()
}
