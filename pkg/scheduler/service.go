package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// ScheduleEvaluator runs a time-based automation pass for one equipment
type ScheduleEvaluator interface {
	EvaluateSchedule(ctx context.Context, equipmentID, equipmentType string, actx models.AutomationContext) *models.AutomationResult
}

// EquipmentSource lists the equipment the sweep covers
type EquipmentSource interface {
	ListActiveEquipment(ctx context.Context) ([]*models.Equipment, error)
	HasOpenScheduledTask(ctx context.Context, equipmentID string) (bool, error)
}

// Service runs the scheduled maintenance sweep on a cron schedule. Each sweep
// evaluates the maintenance schedule of every active equipment.
type Service struct {
	evaluator ScheduleEvaluator
	equipment EquipmentSource
	cron      *cron.Cron
	cronExpr  string
	schedule  cron.Schedule

	mu      sync.RWMutex
	entryID cron.EntryID
	lastRun *models.SweepRun
}

// NewService creates a new sweep scheduler for a standard cron expression
func NewService(evaluator ScheduleEvaluator, equipment EquipmentSource, cronExpr string) (*Service, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	return &Service{
		evaluator: evaluator,
		equipment: equipment,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		cronExpr:  cronExpr,
		schedule:  schedule,
	}, nil
}

// Start starts the scheduler
func (s *Service) Start() {
	s.mu.Lock()
	s.entryID = s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		s.Sweep(context.Background())
	}))
	s.mu.Unlock()

	s.cron.Start()
	log.Printf("Maintenance sweep scheduler started with schedule: %s", s.cronExpr)
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	log.Println("Maintenance sweep scheduler stopped")
}

// NextRun returns the next time the sweep is due
func (s *Service) NextRun() time.Time {
	s.mu.RLock()
	entryID := s.entryID
	s.mu.RUnlock()

	if entry := s.cron.Entry(entryID); entry.Valid() && !entry.Next.IsZero() {
		return entry.Next
	}
	return s.schedule.Next(time.Now())
}

// LastRun returns the most recent sweep, or nil if none has run
func (s *Service) LastRun() *models.SweepRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastRun == nil {
		return nil
	}
	run := *s.lastRun
	run.Errors = append([]string(nil), s.lastRun.Errors...)
	return &run
}

// Sweep evaluates the maintenance schedule of every active equipment. Equipment
// that already has an open scheduled task is skipped so repeated sweeps do not
// pile up duplicate work.
func (s *Service) Sweep(ctx context.Context) *models.SweepRun {
	run := &models.SweepRun{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		Errors:    []string{},
	}
	log.Printf("Running maintenance sweep %s", run.ID)

	equipment, err := s.equipment.ListActiveEquipment(ctx)
	if err != nil {
		run.Errors = append(run.Errors, fmt.Sprintf("failed to list equipment: %v", err))
		return s.finish(run)
	}

	for _, eq := range equipment {
		if ctx.Err() != nil {
			run.Errors = append(run.Errors, ctx.Err().Error())
			break
		}

		open, err := s.equipment.HasOpenScheduledTask(ctx, eq.ID)
		if err != nil {
			run.Errors = append(run.Errors, fmt.Sprintf("equipment %s: %v", eq.ID, err))
			continue
		}
		if open {
			run.EquipmentSkipped++
			continue
		}

		result := s.evaluator.EvaluateSchedule(ctx, eq.ID, eq.Type, models.AutomationContext{Location: eq.Location})
		run.EquipmentChecked++
		if !result.Success {
			run.Errors = append(run.Errors, fmt.Sprintf("equipment %s: %s", eq.ID, result.Error))
			continue
		}
		run.TasksCreated += len(result.Tasks)
	}

	return s.finish(run)
}

func (s *Service) finish(run *models.SweepRun) *models.SweepRun {
	completed := time.Now()
	run.CompletedAt = &completed

	s.mu.Lock()
	s.lastRun = run
	s.mu.Unlock()

	log.Printf("Maintenance sweep %s completed: checked %d, skipped %d, created %d tasks, %d errors",
		run.ID, run.EquipmentChecked, run.EquipmentSkipped, run.TasksCreated, len(run.Errors))
	return s.LastRun()
}
