// Package drc implements the board design rule check: a fixed sequence of
// geometric and structural checks which report violations as messages.
//
// Clearances are checked by shrinking or growing the involved areas so that
// a violation shows up as a non-empty intersection of two path sets. The
// intersection is reported as the message location.
package drc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/OpenTraceLab/OpenTraceFab/internal/logging"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

// ErrAlreadyRunning is returned when Run is called on a busy checker.
var ErrAlreadyRunning = errors.New("design rule check already running")

// Observer receives progress while a check runs. Calls happen synchronously
// on the goroutine calling Run.
type Observer interface {
	OnProgress(percent int)
	OnStatus(status string)
	OnMessage(m Message)
}

// NopObserver ignores all progress.
type NopObserver struct{}

func (NopObserver) OnProgress(int)    {}
func (NopObserver) OnStatus(string)   {}
func (NopObserver) OnMessage(Message) {}

// Options select the scope of a run.
type Options struct {
	// Quick skips the plane rebuild and every check after the copper hole
	// clearances. Planes are ignored.
	Quick bool
}

// State is the lifecycle state of a Checker.
type State int

const (
	Idle State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Checker runs design rule checks. A Checker runs one check at a time and
// may be reused.
type Checker struct {
	mu    sync.Mutex
	state State
}

// NewChecker returns an idle checker.
func NewChecker() *Checker {
	return &Checker{}
}

// State returns the current lifecycle state.
func (c *Checker) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run checks b against s. Messages are returned in the order they were
// found; use SortMessages for reports. Rule violations never cause an
// error; an error means a check could not be completed.
//
// Unless opts.Quick is set the plane fragments of b are rebuilt, which is
// the only modification made to the board.
func (c *Checker) Run(ctx context.Context, b *board.Board, s Settings, opts Options, obs Observer) ([]Message, error) {
	c.mu.Lock()
	if c.state == Running {
		c.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	c.state = Running
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.state = Finished
		c.mu.Unlock()
	}()

	if obs == nil {
		obs = NopObserver{}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	r := &run{
		ctx:      ctx,
		board:    b,
		settings: s,
		quick:    opts.Quick,
		obs:      obs,
		cache:    board.NewCopperPathCache(b, opts.Quick),
	}
	if err := r.execute(); err != nil {
		return nil, err
	}
	return r.messages, nil
}

// Run is a shortcut for running a new Checker.
func Run(ctx context.Context, b *board.Board, s Settings, opts Options, obs Observer) ([]Message, error) {
	return NewChecker().Run(ctx, b, s, opts, obs)
}

type step struct {
	progress int
	name     string
	check    func() error
}

// run holds the state of one check run.
type run struct {
	ctx      context.Context
	board    *board.Board
	settings Settings
	quick    bool
	obs      Observer
	cache    *board.CopperPathCache
	messages []Message
}

func (r *run) execute() error {
	log := logging.Logger()
	r.obs.OnProgress(2)

	var steps []step
	if !r.quick {
		steps = append(steps, step{12, "rebuild planes", r.rebuildPlanes})
	}
	steps = append(steps,
		step{14, "copper widths", r.checkMinimumCopperWidth},
		step{24, "copper clearances", r.checkCopperCopperClearances},
		step{34, "board clearances", r.checkCopperBoardClearances},
		step{44, "hole clearances", r.checkCopperHoleClearances},
	)
	if !r.quick {
		steps = append(steps,
			step{49, "drill clearances", r.checkDrillDrillClearances},
			step{54, "drill board clearances", r.checkDrillBoardClearances},
			step{64, "annular rings", r.checkMinimumPthAnnularRing},
			step{66, "npth drill diameters", r.checkMinimumNpthDrillDiameter},
			step{68, "npth slot widths", r.checkMinimumNpthSlotWidth},
			step{70, "pth drill diameters", r.checkMinimumPthDrillDiameter},
			step{72, "pth slot widths", r.checkMinimumPthSlotWidth},
			step{74, "npth slots", r.checkAllowedNpthSlots},
			step{76, "pth slots", r.checkAllowedPthSlots},
			step{78, "pad connections", r.checkInvalidPadConnections},
			step{88, "courtyards", r.checkCourtyardClearances},
			step{91, "board outline", r.checkBoardOutline},
			step{92, "unplaced components", r.checkForUnplacedComponents},
			step{93, "default devices", r.checkCircuitDefaultDevices},
			step{95, "missing connections", r.checkForMissingConnections},
			step{97, "stale objects", r.checkForStaleObjects},
		)
	}

	for _, st := range steps {
		if err := r.ctx.Err(); err != nil {
			return fmt.Errorf("design rule check cancelled: %w", err)
		}
		before := len(r.messages)
		if err := st.check(); err != nil {
			return fmt.Errorf("failed to check %s: %w", st.name, err)
		}
		log.Debug("drc step done", "step", st.name, "messages", len(r.messages)-before)
		r.obs.OnProgress(st.progress)
	}

	r.obs.OnStatus(fmt.Sprintf("Finished with %d message(s)!", len(r.messages)))
	r.obs.OnProgress(100)
	return nil
}

func (r *run) status(s string) {
	r.obs.OnStatus(s)
}

func (r *run) emit(m Message) {
	r.messages = append(r.messages, m)
	r.obs.OnMessage(m)
}

func (r *run) rebuildPlanes() error {
	r.status("Rebuild planes...")
	return r.board.RebuildPlanes()
}

// tolerance is the arc tolerance of all generated paths.
const tolerance = geometry.MaxArcTolerance
