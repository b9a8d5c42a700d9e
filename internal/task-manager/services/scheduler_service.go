package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"

	"household-task-service/internal/task-manager/db"
)

const (
	// DefaultSweepCron runs shortly after midnight so every group gets its due
	// tasks without waiting for someone to open the task list.
	DefaultSweepCron = "5 0 * * *"
)

// SweepEnabled reads the opt-in switch for the scheduled generation sweep. The
// default is off: generation stays lazy, triggered by task-list reads, which
// also means a due day nobody looks at generates nothing and is never caught
// up. The sweep exists for deployments that want that gap closed.
func SweepEnabled() bool {
	return os.Getenv("GENERATION_SWEEP_ENABLED") == "true"
}

// SchedulerService drives the optional generation sweep with gocron. It walks
// every group and runs the same batch loop the lazy trigger uses, with the
// same per-template failure isolation.
type SchedulerService struct {
	Scheduler  gocron.Scheduler
	Engine     *GenerationService
	Groups     *db.GroupStore
	appContext context.Context
}

func NewSchedulerService(ctx context.Context, engine *GenerationService, groups *db.GroupStore) (*SchedulerService, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &SchedulerService{Scheduler: s, Engine: engine, Groups: groups, appContext: ctx}, nil
}

func (s *SchedulerService) Start() error {
	cronExpr := os.Getenv("GENERATION_SWEEP_CRON")
	if cronExpr == "" {
		cronExpr = DefaultSweepCron
	}
	job, err := s.Scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(s.RunSweep),
		gocron.WithName("generation_sweep"),
		gocron.WithTags("generation_sweep"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule generation sweep with cron %q: %w", cronExpr, err)
	}
	s.Scheduler.Start()
	if nextRun, err := job.NextRun(); err == nil {
		log.Printf("Generation sweep scheduled with cron '%s'. Next run: %s", cronExpr, nextRun.Format(time.RFC3339))
	} else {
		log.Printf("Generation sweep scheduled with cron '%s'.", cronExpr)
	}
	return nil
}

func (s *SchedulerService) Stop() {
	if err := s.Scheduler.Shutdown(); err != nil {
		log.Printf("Error shutting down gocron scheduler: %v", err)
	} else {
		log.Println("Gocron scheduler shut down successfully.")
	}
}

// RunSweep visits every group once. Group-level failures are logged and do not
// stop the sweep, mirroring the per-template isolation inside each batch run.
func (s *SchedulerService) RunSweep() {
	groupIDs, err := s.Groups.ListGroupIDs(s.appContext)
	if err != nil {
		log.Printf("Generation sweep: listing groups failed: %v", err)
		return
	}
	var created, failed int
	for _, groupID := range groupIDs {
		result, err := s.Engine.runGroup(s.appContext, groupID)
		if err != nil {
			log.Printf("Generation sweep: group %d failed: %v", groupID, err)
			continue
		}
		created += len(result.Created)
		failed += len(result.Failures)
	}
	log.Printf("Generation sweep complete: %d groups visited, %d tasks created, %d template failures.", len(groupIDs), created, failed)
}
