package navigation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// StepType discriminates the two kinds of route steps.
type StepType string

const (
	StepTypeTravel StepType = "TRAVEL"
	StepTypeRefuel StepType = "REFUEL"
)

// Step is one action in a route plan: either a travel leg or a refuel stop.
// Steps are immutable values and serialize to JSON for the RPC surface.
type Step struct {
	Type StepType `json:"type"`

	// TRAVEL fields
	From     string            `json:"from,omitempty"`
	To       string            `json:"to,omitempty"`
	Mode     shared.FlightMode `json:"mode,omitempty"`
	FuelCost int               `json:"fuel_cost,omitempty"`
	Distance float64           `json:"distance,omitempty"`

	// REFUEL field
	At string `json:"at,omitempty"`

	// Estimated duration of the step.
	Seconds int `json:"seconds,omitempty"`
}

// NewTravelStep creates a travel leg.
func NewTravelStep(from, to string, mode shared.FlightMode, fuelCost int, distance float64, seconds int) Step {
	return Step{
		Type:     StepTypeTravel,
		From:     from,
		To:       to,
		Mode:     mode,
		FuelCost: fuelCost,
		Distance: distance,
		Seconds:  seconds,
	}
}

// NewRefuelStep creates a refuel stop at the ship's current position.
func NewRefuelStep(at string, seconds int) Step {
	return Step{
		Type:    StepTypeRefuel,
		At:      at,
		Seconds: seconds,
	}
}

// MarshalJSON emits only the fields relevant to the step's type.
func (s Step) MarshalJSON() ([]byte, error) {
	if s.Type == StepTypeRefuel {
		return json.Marshal(struct {
			Type    StepType `json:"type"`
			At      string   `json:"at"`
			Seconds int      `json:"seconds"`
		}{s.Type, s.At, s.Seconds})
	}
	return json.Marshal(struct {
		Type     StepType          `json:"type"`
		From     string            `json:"from"`
		To       string            `json:"to"`
		Mode     shared.FlightMode `json:"mode"`
		FuelCost int               `json:"fuel_cost"`
		Distance float64           `json:"distance"`
		Seconds  int               `json:"seconds"`
	}{s.Type, s.From, s.To, s.Mode, s.FuelCost, s.Distance, s.Seconds})
}

func (s Step) IsTravel() bool {
	return s.Type == StepTypeTravel
}

func (s Step) IsRefuel() bool {
	return s.Type == StepTypeRefuel
}

// Location returns where the ship is after executing this step.
func (s Step) Location() string {
	if s.Type == StepTypeRefuel {
		return s.At
	}
	return s.To
}

func (s Step) String() string {
	if s.Type == StepTypeRefuel {
		return fmt.Sprintf("REFUEL at %s", s.At)
	}
	return fmt.Sprintf("%s %s -> %s (%.2fu, %d fuel, %ds)",
		s.Mode, s.From, s.To, s.Distance, s.FuelCost, s.Seconds)
}

// RouteStatus represents route execution status.
type RouteStatus string

const (
	RouteStatusPlanned   RouteStatus = "PLANNED"
	RouteStatusExecuting RouteStatus = "EXECUTING"
	RouteStatusCompleted RouteStatus = "COMPLETED"
	RouteStatusFailed    RouteStatus = "FAILED"
	RouteStatusAborted   RouteStatus = "ABORTED"
)

// Route is a complete navigation plan for one ship. It lives only for the
// duration of its execution and is never persisted.
//
// Invariants, checked by Validate:
//   - the first travel step departs from the route start
//   - each step departs from where the previous one ended
//   - the last step ends at the goal
//   - fuel spent between refuel stops never exceeds tank capacity
//   - DRIFT never appears
type Route struct {
	routeID          string
	shipSymbol       string
	playerID         shared.PlayerID
	start            string
	goal             string
	steps            []Step
	shipFuelCapacity int
	lifecycle        *shared.LifecycleStateMachine
	currentStepIndex int
}

// NewRoute creates a validated route. An empty step list is a valid
// zero-travel route (start == goal).
func NewRoute(
	routeID, shipSymbol string,
	playerID shared.PlayerID,
	start, goal string,
	steps []Step,
	shipFuelCapacity int,
	clock shared.Clock,
) (*Route, error) {
	r := &Route{
		routeID:          routeID,
		shipSymbol:       shipSymbol,
		playerID:         playerID,
		start:            start,
		goal:             goal,
		steps:            steps,
		shipFuelCapacity: shipFuelCapacity,
		lifecycle:        shared.NewLifecycleStateMachine(clock),
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks the route invariants.
func (r *Route) Validate() error {
	if len(r.steps) == 0 {
		if r.start != r.goal {
			return fmt.Errorf("empty route but start %s differs from goal %s", r.start, r.goal)
		}
		return nil
	}

	position := r.start
	fuelSinceRefuel := 0

	for i, step := range r.steps {
		switch step.Type {
		case StepTypeTravel:
			if step.From != position {
				return fmt.Errorf("step %d departs from %s but ship is at %s", i, step.From, position)
			}
			if step.Mode == shared.FlightModeDrift {
				return fmt.Errorf("step %d uses DRIFT", i)
			}
			fuelSinceRefuel += step.FuelCost
			if fuelSinceRefuel > r.shipFuelCapacity {
				return fmt.Errorf("steps since last refuel need %d fuel but capacity is %d",
					fuelSinceRefuel, r.shipFuelCapacity)
			}
			position = step.To
		case StepTypeRefuel:
			if step.At != position {
				return fmt.Errorf("step %d refuels at %s but ship is at %s", i, step.At, position)
			}
			fuelSinceRefuel = 0
		default:
			return fmt.Errorf("step %d has unknown type %q", i, step.Type)
		}
	}

	if position != r.goal {
		return fmt.Errorf("route ends at %s, want %s", position, r.goal)
	}

	return nil
}

func (r *Route) RouteID() string           { return r.routeID }
func (r *Route) ShipSymbol() string        { return r.shipSymbol }
func (r *Route) PlayerID() shared.PlayerID { return r.playerID }
func (r *Route) Start() string             { return r.start }
func (r *Route) Goal() string              { return r.goal }
func (r *Route) ShipFuelCapacity() int     { return r.shipFuelCapacity }

// Steps returns a copy of the route's steps.
func (r *Route) Steps() []Step {
	steps := make([]Step, len(r.steps))
	copy(steps, r.steps)
	return steps
}

// Status maps the lifecycle state to route-specific names.
func (r *Route) Status() RouteStatus {
	switch r.lifecycle.Status() {
	case shared.LifecycleStatusPending:
		return RouteStatusPlanned
	case shared.LifecycleStatusRunning:
		return RouteStatusExecuting
	case shared.LifecycleStatusCompleted:
		return RouteStatusCompleted
	case shared.LifecycleStatusFailed:
		return RouteStatusFailed
	case shared.LifecycleStatusStopped:
		return RouteStatusAborted
	default:
		return RouteStatusPlanned
	}
}

func (r *Route) CreatedAt() time.Time    { return r.lifecycle.CreatedAt() }
func (r *Route) StartedAt() *time.Time   { return r.lifecycle.StartedAt() }
func (r *Route) CompletedAt() *time.Time { return r.lifecycle.StoppedAt() }
func (r *Route) LastError() error        { return r.lifecycle.LastError() }
func (r *Route) CurrentStepIndex() int   { return r.currentStepIndex }

// StartExecution begins route execution.
func (r *Route) StartExecution() error {
	if r.Status() != RouteStatusPlanned {
		return fmt.Errorf("cannot start route in status %s", r.Status())
	}
	if len(r.steps) == 0 {
		// Zero-travel route completes immediately.
		if err := r.lifecycle.Start(); err != nil {
			return err
		}
		return r.lifecycle.Complete()
	}
	return r.lifecycle.Start()
}

// CompleteStep marks the current step done and advances. Completing the last
// step completes the route.
func (r *Route) CompleteStep() error {
	if r.Status() != RouteStatusExecuting {
		return fmt.Errorf("cannot complete step when route status is %s", r.Status())
	}

	r.currentStepIndex++
	r.lifecycle.UpdateTimestamp()

	if r.currentStepIndex >= len(r.steps) {
		return r.lifecycle.Complete()
	}
	return nil
}

// Fail marks the route failed.
func (r *Route) Fail(reason string) {
	_ = r.lifecycle.Fail(fmt.Errorf("route failed: %s", reason))
}

// Abort stops route execution without marking it failed.
func (r *Route) Abort() {
	_ = r.lifecycle.Stop()
}

// CurrentStep returns the step being executed, or nil when done.
func (r *Route) CurrentStep() *Step {
	if r.currentStepIndex < len(r.steps) {
		step := r.steps[r.currentStepIndex]
		return &step
	}
	return nil
}

func (r *Route) IsComplete() bool {
	return r.Status() == RouteStatusCompleted
}

// HasTravelSteps reports whether the route moves the ship at all.
func (r *Route) HasTravelSteps() bool {
	for _, step := range r.steps {
		if step.IsTravel() {
			return true
		}
	}
	return false
}

// TotalDistance sums travel distances.
func (r *Route) TotalDistance() float64 {
	total := 0.0
	for _, step := range r.steps {
		total += step.Distance
	}
	return total
}

// TotalFuelRequired sums fuel costs assuming refuels happen as planned.
func (r *Route) TotalFuelRequired() int {
	total := 0
	for _, step := range r.steps {
		total += step.FuelCost
	}
	return total
}

// TotalSeconds sums the estimated duration of every step.
func (r *Route) TotalSeconds() int {
	total := 0
	for _, step := range r.steps {
		total += step.Seconds
	}
	return total
}

// RefuelStops counts refuel steps.
func (r *Route) RefuelStops() int {
	count := 0
	for _, step := range r.steps {
		if step.IsRefuel() {
			count++
		}
	}
	return count
}

func (r *Route) String() string {
	return fmt.Sprintf("Route(id=%s, ship=%s, %s->%s, steps=%d, status=%s)",
		r.routeID, r.shipSymbol, r.start, r.goal, len(r.steps), r.Status())
}
