package sparkles

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/glint/internal/logger"
	"github.com/Faultbox/glint/internal/source"
)

// ErrInvalidTransition is returned when a lifecycle call does not apply to
// the effect's current state.
var ErrInvalidTransition = errors.New("invalid effect state transition")

// State is the lifecycle state of an Effect.
type State uint8

// Effect states.
const (
	Uninitialized State = iota
	Active
	Disabled
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Active:
		return "active"
	case Disabled:
		return "disabled"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Effect owns a sparkle mesh across its lifecycle:
//
//	Uninitialized --Start--> Active <--Disable/Enable--> Disabled
//	any --Destroy--> Destroyed
//
// Only an Active effect animates. An Effect is not safe for concurrent use.
type Effect struct {
	settings Settings
	state    State
	mesh     *Mesh
	log      *zap.Logger
}

// NewEffect creates an uninitialized effect. A nil log uses the package
// logger.
func NewEffect(settings Settings, log *zap.Logger) *Effect {
	if log == nil {
		log = logger.Named("sparkles")
	}
	return &Effect{settings: settings, log: log}
}

// State returns the current lifecycle state.
func (e *Effect) State() State {
	return e.state
}

// Mesh returns the generated mesh, or nil before Start and after Destroy.
func (e *Effect) Mesh() *Mesh {
	return e.mesh
}

// Settings returns the settings the effect was created with.
func (e *Effect) Settings() Settings {
	return e.settings
}

// Start builds the mesh from src and activates the effect. On a build error
// the effect stays uninitialized.
func (e *Effect) Start(src *source.Mesh) error {
	if e.state != Uninitialized {
		return e.invalid("start")
	}

	mesh, err := Build(src, e.settings)
	if err != nil {
		e.log.Warn("sparkle build failed", zap.Error(err))
		return err
	}

	e.mesh = mesh
	e.mesh.Animate(e.settings, 0)
	e.transition(Active)
	e.log.Info("sparkles generated",
		zap.String("source", mesh.Name),
		zap.Int("requested", e.settings.SampleCount),
		zap.Int("quads", mesh.QuadCount()))
	return nil
}

// Update animates the mesh to time t (seconds). A disabled effect ignores
// updates.
func (e *Effect) Update(t float32) error {
	switch e.state {
	case Active:
		e.mesh.Animate(e.settings, t)
		return nil
	case Disabled:
		return nil
	default:
		return e.invalid("update")
	}
}

// Disable pauses animation.
func (e *Effect) Disable() error {
	if e.state != Active {
		return e.invalid("disable")
	}
	e.transition(Disabled)
	return nil
}

// Enable resumes animation.
func (e *Effect) Enable() error {
	if e.state != Disabled {
		return e.invalid("enable")
	}
	e.transition(Active)
	return nil
}

// Destroy releases the mesh. Destroying twice is a no-op.
func (e *Effect) Destroy() {
	if e.state == Destroyed {
		return
	}
	e.mesh = nil
	e.transition(Destroyed)
}

func (e *Effect) transition(to State) {
	e.log.Debug("effect state",
		zap.Stringer("from", e.state),
		zap.Stringer("to", to))
	e.state = to
}

func (e *Effect) invalid(op string) error {
	return fmt.Errorf("%s while %s: %w", op, e.state, ErrInvalidTransition)
}
