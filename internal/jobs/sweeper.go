// Package jobs contains the background workers that advance group and RCA
// lifecycles without an inbound request.
package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/rcapilot/rcapilot/internal/database"
	"github.com/rcapilot/rcapilot/internal/rca"
)

// Notifier is notified after an RCA has been generated and committed
type Notifier interface {
	NotifyRCAGenerated(group *database.CorrelationGroup, record *database.RCA)
}

// SweeperJob periodically closes correlation groups whose inactivity window
// has elapsed and, when enabled, kicks off RCA generation for each group it
// closes.
type SweeperJob struct {
	engine       GroupCloser
	orchestrator *rca.Orchestrator
	notifier     Notifier
	interval     time.Duration
	autoRCA      bool
}

// GroupCloser is the part of the correlation engine the sweeper needs
type GroupCloser interface {
	CloseEligibleGroups() ([]database.CorrelationGroup, error)
}

// NewSweeperJob creates a sweeper. notifier may be nil.
func NewSweeperJob(engine GroupCloser, orchestrator *rca.Orchestrator, notifier Notifier, interval time.Duration, autoRCA bool) *SweeperJob {
	return &SweeperJob{
		engine:       engine,
		orchestrator: orchestrator,
		notifier:     notifier,
		interval:     interval,
		autoRCA:      autoRCA,
	}
}

// Run executes one sweep iteration and returns the number of groups closed
func (j *SweeperJob) Run(ctx context.Context) (int, error) {
	closed, err := j.engine.CloseEligibleGroups()
	if err != nil {
		return 0, err
	}

	if len(closed) > 0 {
		log.Printf("Sweeper closed %d group(s)", len(closed))
	}

	if j.autoRCA && j.orchestrator != nil {
		for i := range closed {
			j.generateRCA(ctx, &closed[i])
		}
	}

	return len(closed), nil
}

// generateRCA runs one generation for a freshly closed group. Failures are
// logged and never abort the sweep; the group stays closed and an operator
// can re-trigger generation through the API.
func (j *SweeperJob) generateRCA(ctx context.Context, group *database.CorrelationGroup) {
	record, err := j.orchestrator.Generate(ctx, group, rca.Options{UseHistoricalContext: true})
	if err != nil {
		if errors.Is(err, rca.ErrGenerationInProgress) {
			return
		}
		log.Printf("Auto RCA generation failed for group %s: %v", group.UUID, err)
		return
	}

	if j.notifier != nil {
		j.notifier.NotifyRCAGenerated(group, record)
	}
}

// Start begins the periodic sweep loop and blocks until stop is closed
func (j *SweeperJob) Start(stop <-chan struct{}) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := j.Run(context.Background()); err != nil {
				log.Printf("Sweeper job error: %v", err)
			}
		case <-stop:
			log.Println("Sweeper job stopped")
			return
		}
	}
}
