package session

import (
	"errors"
	"log"
	"math/rand"
	"time"

	"idleforge/internal/content"
	"idleforge/internal/event"
	"idleforge/internal/modifier"
	"idleforge/internal/offline"
	"idleforge/internal/state"
	"idleforge/internal/trigger"
	"idleforge/internal/wallet"
)

// Options configures a Session. Definition and Store are required; the
// rest defaults sensibly.
type Options struct {
	Definition *content.Definition
	Store      state.Store
	Bus        *event.Bus
	Clock      Clock
	RNG        *rand.Rand
	Logger     *log.Logger
	// OfflineCap bounds offline catch-up; 0 means uncapped.
	OfflineCap time.Duration
}

// Session composes the economy core onto one bus: content definitions feed
// the resolver, simulator, and trigger engine; the wallet owns balances;
// inbound IncrementBalance and MilestoneFired events are wired to the
// wallet and trigger engine respectively.
type Session struct {
	Def      *content.Definition
	Bus      *event.Bus
	Wallet   *wallet.Wallet
	Resolver *modifier.Resolver
	Sim      *offline.Simulator
	Triggers *trigger.Engine

	store  state.Store
	clock  Clock
	logger *log.Logger
}

func New(opts Options) (*Session, error) {
	if opts.Definition == nil {
		return nil, errors.New("session: content definition is required")
	}
	if opts.Store == nil {
		return nil, errors.New("session: state store is required")
	}
	if opts.Bus == nil {
		opts.Bus = event.NewBus()
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.RNG == nil {
		opts.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	resolver := modifier.NewResolver(opts.Definition)

	w := wallet.New(wallet.Options{
		Store: opts.Store,
		Bus:   opts.Bus,
		Gain: func(resourceID string) float64 {
			return resolver.Resolve(modifier.KindResourceGain, resourceID, "")
		},
	})
	if err := w.Initialize(opts.Definition.Resources); err != nil {
		return nil, err
	}

	engine, err := trigger.NewEngine(opts.Definition, w, opts.RNG)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Def:      opts.Definition,
		Bus:      opts.Bus,
		Wallet:   w,
		Resolver: resolver,
		Sim: offline.NewSimulator(opts.Definition, resolver, offline.Options{
			MaxSeconds: opts.OfflineCap.Seconds(),
		}),
		Triggers: engine,
		store:    opts.Store,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}

	s.Bus.Subscribe(event.TypeIncrementBalance, func(payload any) {
		ev, ok := payload.(event.IncrementBalance)
		if !ok {
			return
		}
		if err := s.Wallet.Add(ev.Resource, ev.Amount); err != nil {
			s.logger.Printf("increment balance %s: %v", ev.Resource, err)
		}
	})
	s.Bus.Subscribe(event.TypeMilestoneFired, func(payload any) {
		ev, ok := payload.(event.MilestoneFired)
		if !ok {
			return
		}
		if err := s.Triggers.HandleMilestoneFired(ev); err != nil {
			s.logger.Printf("milestone %s triggers: %v", ev.MilestoneID, err)
		}
	})

	return s, nil
}

// Start restores generator states, runs offline catch-up against the
// store's last-seen timestamp, applies the gain batch through the raw
// path, and checkpoints. It returns the applied batch.
func (s *Session) Start() (offline.Batch, error) {
	states, err := s.restoreGenerators()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	elapsed := 0.0
	if last, ok, err := s.store.LastSeen(); err != nil {
		return nil, err
	} else if ok {
		elapsed = now.Sub(last).Seconds()
	}

	batch := s.Sim.Simulate(elapsed, states)
	if err := offline.Apply(s.Wallet, batch); err != nil {
		return nil, err
	}

	if err := s.store.TouchSeen(now); err != nil {
		return nil, err
	}
	s.store.RequestSave()
	return batch, nil
}

// restoreGenerators loads persisted generator states and seeds one for any
// node instance that has never run before. One state per instance id,
// never duplicated.
func (s *Session) restoreGenerators() ([]state.GeneratorState, error) {
	persisted, err := s.store.Generators()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]state.GeneratorState, len(persisted))
	for _, gs := range persisted {
		byID[gs.ID] = gs
	}

	out := make([]state.GeneratorState, 0, len(s.Def.NodeInstances))
	for _, inst := range s.Def.NodeInstances {
		gs, ok := byID[inst.ID]
		if !ok {
			gs = state.GeneratorState{
				ID:      inst.ID,
				Level:   inst.Level,
				Owned:   inst.Level > 0,
				Enabled: inst.Enabled,
			}
			if err := s.store.WriteGenerator(gs); err != nil {
				return nil, err
			}
		}
		out = append(out, gs)
	}
	return out, nil
}

// Generators returns the current persisted generator states.
func (s *Session) Generators() ([]state.GeneratorState, error) {
	return s.store.Generators()
}

// Checkpoint marks the session as seen now and asks the store to save.
// Call it on shutdown so the next run's offline window starts here.
func (s *Session) Checkpoint() error {
	if err := s.store.TouchSeen(s.clock.Now()); err != nil {
		return err
	}
	s.store.RequestSave()
	return nil
}
