package offline

import (
	"math"

	"idleforge/internal/content"
	"idleforge/internal/modifier"
	"idleforge/internal/state"
	"idleforge/internal/wallet"
)

// minCycleSeconds bounds the effective cycle duration so a runaway speed
// multiplier cannot divide by zero.
const minCycleSeconds = 1e-6

// Batch accumulates offline gains per resource id. The gain multiplier is
// already folded in, so a batch must be applied through the ledger's raw
// path.
type Batch map[string]float64

// Options tunes the simulator.
type Options struct {
	// MaxSeconds caps the simulated window; 0 means uncapped.
	MaxSeconds float64
}

// Simulator computes production accrued while the engine was not running.
// It is a closed-form integration over whole production cycles, decoupled
// from the live tick scheduler; it never replays ticks.
type Simulator struct {
	def      *content.Definition
	resolver *modifier.Resolver
	opts     Options
}

func NewSimulator(def *content.Definition, resolver *modifier.Resolver, opts Options) *Simulator {
	return &Simulator{def: def, resolver: resolver, opts: opts}
}

// Simulate returns the gain batch for elapsedSeconds of absence given a
// persisted generator snapshot. Only instances that are owned and
// automated (purchase, persisted flag, or modifier) contribute, and only
// toward the primary accrual resource.
func (s *Simulator) Simulate(elapsedSeconds float64, states []state.GeneratorState) Batch {
	batch := Batch{}
	if math.IsNaN(elapsedSeconds) || elapsedSeconds <= 0 {
		return batch
	}
	if s.opts.MaxSeconds > 0 && elapsedSeconds > s.opts.MaxSeconds {
		elapsedSeconds = s.opts.MaxSeconds
	}

	resource := s.def.PrimaryResource()
	for _, gs := range states {
		if !gs.Owned {
			continue
		}
		if !gs.AutomationPurchased && !gs.Automated && !s.resolver.AutomationEnabled(resource, gs.ID) {
			continue
		}
		inst, ok := s.def.InstanceByID(gs.ID)
		if !ok {
			continue
		}
		node, ok := s.def.NodeByID(inst.Node)
		if !ok {
			continue
		}
		perCycle := outputPerCycle(node, resource)
		if perCycle <= 0 || node.CycleSeconds <= 0 {
			continue
		}

		speed := s.resolver.Resolve(modifier.KindSpeed, resource, gs.ID)
		cycleSeconds := math.Max(minCycleSeconds, node.CycleSeconds/speed)
		cycles := math.Floor(elapsedSeconds / cycleSeconds)
		if cycles <= 0 {
			continue
		}

		// Owned implies at least one functional level even if the
		// snapshot says 0.
		level := gs.Level
		if level < 1 {
			level = 1
		}

		outMult := s.resolver.Resolve(modifier.KindOutput, resource, gs.ID)
		gainMult := s.resolver.Resolve(modifier.KindResourceGain, resource, gs.ID)
		batch[resource] += perCycle * float64(level) * outMult * cycles * gainMult
	}
	return batch
}

// Apply lands a batch on the ledger through the raw gain path: the gain
// multiplier was already applied per instance and must not compound.
func Apply(w *wallet.Wallet, b Batch) error {
	for resource, amount := range b {
		if err := w.AddRaw(resource, amount); err != nil {
			return err
		}
	}
	return nil
}

// outputPerCycle derives a node's per-cycle output for one resource from
// whichever payout mode is populated: fixed payout, then per-cycle amount,
// then per-second rate integrated over the cycle.
func outputPerCycle(node content.Node, resourceID string) float64 {
	for _, out := range node.Outputs {
		if out.Resource != resourceID {
			continue
		}
		switch {
		case out.Payout > 0:
			return out.Payout
		case out.PerCycle > 0:
			return out.PerCycle
		case out.PerSecond > 0:
			return out.PerSecond * node.CycleSeconds
		}
	}
	return 0
}
