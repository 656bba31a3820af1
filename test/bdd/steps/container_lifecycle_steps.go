package steps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

type containerLifecycleContext struct {
	clock         *shared.MockClock
	container     *container.Container
	transitionErr error
}

func (cc *containerLifecycleContext) reset() {
	cc.clock = shared.NewMockClock(time.Time{})
	cc.container = nil
	cc.transitionErr = nil
}

func (cc *containerLifecycleContext) newContainer(maxIterations int) error {
	playerID, err := shared.NewPlayerID(1)
	if err != nil {
		return err
	}
	cc.container = container.NewContainer(
		"bdd-container-1",
		container.ContainerTypeArbitrage,
		playerID,
		"SHIP-1",
		maxIterations,
		nil,
		cc.clock,
	)
	return nil
}

func (cc *containerLifecycleContext) aPendingContainerWithIterations(count int) error {
	return cc.newContainer(count)
}

func (cc *containerLifecycleContext) aPendingContainerWithInfiniteIterations() error {
	return cc.newContainer(container.InfiniteIterations)
}

func (cc *containerLifecycleContext) theContainerStarts() error {
	cc.transitionErr = cc.container.Start()
	return nil
}

func (cc *containerLifecycleContext) theContainerCompletes() error {
	cc.transitionErr = cc.container.Complete()
	return nil
}

func (cc *containerLifecycleContext) theContainerFails() error {
	cc.transitionErr = cc.container.Fail(errors.New("iteration error"))
	return nil
}

func (cc *containerLifecycleContext) theContainerIsAskedToStop() error {
	cc.transitionErr = cc.container.Stop()
	return nil
}

func (cc *containerLifecycleContext) theContainerAcknowledgesTheStop() error {
	cc.transitionErr = cc.container.MarkStopped()
	return nil
}

func (cc *containerLifecycleContext) theContainerRestarts() error {
	if err := cc.container.ResetForRestart(); err != nil {
		cc.transitionErr = err
		return nil
	}
	cc.transitionErr = cc.container.Start()
	return nil
}

func (cc *containerLifecycleContext) theContainerFinishesIterations(count int) error {
	for i := 0; i < count; i++ {
		if err := cc.container.IncrementIteration(); err != nil {
			return err
		}
	}
	return nil
}

func (cc *containerLifecycleContext) theContainerStatusShouldBe(status string) error {
	actual := string(cc.container.Status())
	if actual != status {
		return fmt.Errorf("container status is %s, expected %s", actual, status)
	}
	return nil
}

func (cc *containerLifecycleContext) theContainerShouldContinue() error {
	if !cc.container.ShouldContinue() {
		return fmt.Errorf("container should continue at iteration %d of %d",
			cc.container.CurrentIteration(), cc.container.MaxIterations())
	}
	return nil
}

func (cc *containerLifecycleContext) theContainerShouldNotContinue() error {
	if cc.container.ShouldContinue() {
		return fmt.Errorf("container should be done at iteration %d of %d",
			cc.container.CurrentIteration(), cc.container.MaxIterations())
	}
	return nil
}

func (cc *containerLifecycleContext) theContainerCanRestart() error {
	if !cc.container.CanRestart() {
		return fmt.Errorf("container cannot restart after %d of %d attempts",
			cc.container.RestartCount(), cc.container.MaxRestarts())
	}
	return nil
}

func (cc *containerLifecycleContext) theContainerCannotRestart() error {
	if cc.container.CanRestart() {
		return fmt.Errorf("container can still restart after %d of %d attempts",
			cc.container.RestartCount(), cc.container.MaxRestarts())
	}
	return nil
}

func (cc *containerLifecycleContext) theTransitionShouldFail() error {
	if cc.transitionErr == nil {
		return fmt.Errorf("expected the transition to fail")
	}
	return nil
}

// InitializeContainerLifecycleScenario registers container lifecycle steps.
func InitializeContainerLifecycleScenario(sc *godog.ScenarioContext) {
	cc := &containerLifecycleContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		cc.reset()
		return ctx, nil
	})

	sc.Step(`^a pending container with (\d+) iterations?$`, cc.aPendingContainerWithIterations)
	sc.Step(`^a pending container with infinite iterations$`, cc.aPendingContainerWithInfiniteIterations)
	sc.Step(`^the container starts$`, cc.theContainerStarts)
	sc.Step(`^the container completes$`, cc.theContainerCompletes)
	sc.Step(`^the container fails$`, cc.theContainerFails)
	sc.Step(`^the container is asked to stop$`, cc.theContainerIsAskedToStop)
	sc.Step(`^the container acknowledges the stop$`, cc.theContainerAcknowledgesTheStop)
	sc.Step(`^the container restarts$`, cc.theContainerRestarts)
	sc.Step(`^the container finishes (\d+) iterations$`, cc.theContainerFinishesIterations)
	sc.Step(`^the container status should be "([^"]+)"$`, cc.theContainerStatusShouldBe)
	sc.Step(`^the container should continue$`, cc.theContainerShouldContinue)
	sc.Step(`^the container should not continue$`, cc.theContainerShouldNotContinue)
	sc.Step(`^the container can restart$`, cc.theContainerCanRestart)
	sc.Step(`^the container cannot restart$`, cc.theContainerCannotRestart)
	sc.Step(`^the transition should fail$`, cc.theTransitionShouldFail)
}
