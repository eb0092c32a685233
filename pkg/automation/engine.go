package automation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// Engine runs automation passes: it turns a diagnosis (or a schedule check) into
// persisted, linked, assigned and announced maintenance tasks. An Engine keeps no
// mutable state between passes and is safe for concurrent use as long as its
// collaborators are.
type Engine struct {
	rules    *RuleSet
	catalog  *Catalog
	store    Store
	notifier Notifier
	now      func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithNotifier sets the notification transport
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine over an immutable rule set and catalog
func NewEngine(rules *RuleSet, catalog *Catalog, store Store, opts ...Option) (*Engine, error) {
	if rules == nil {
		return nil, fmt.Errorf("rule set is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if err := catalog.CheckRules(rules); err != nil {
		return nil, err
	}

	e := &Engine{
		rules:    rules,
		catalog:  catalog,
		store:    store,
		notifier: nopNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Rules returns the engine's rule set
func (e *Engine) Rules() *RuleSet {
	return e.rules
}

// Catalog returns the engine's catalog
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// ProcessDiagnosis runs one automation pass for a diagnosis record. It never
// returns an error: collaborator failures and panics are reported through a
// result with Success=false and empty task and rule lists.
func (e *Engine) ProcessDiagnosis(ctx context.Context, record *models.DiagnosisRecord, actx models.AutomationContext) (result *models.AutomationResult) {
	passID := uuid.New().String()
	p := &pass{}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Automation pass %s panicked: %v", passID, r)
			e.discard(ctx, passID, p)
			result = e.failed(passID, fmt.Errorf("automation pass panicked: %v", r))
		}
	}()

	log.Printf("Processing diagnosis for equipment %q (pass %s)", actx.EquipmentID, passID)

	tasks, triggered, deps, err := e.runDiagnosis(ctx, p, record, actx)
	if err != nil {
		log.Printf("Automation pass %s failed: %v", passID, err)
		e.discard(ctx, passID, p)
		return e.failed(passID, err)
	}

	log.Printf("Generated %d tasks from diagnosis (pass %s, rules: %v)", len(tasks), passID, triggered)

	return &models.AutomationResult{
		Success:        true,
		PassID:         passID,
		Tasks:          tasks,
		TriggeredRules: triggered,
		Dependencies:   deps,
		Timestamp:      e.now(),
	}
}

// EvaluateSchedule runs a time-based pass for one equipment, independent of any
// diagnosis. Errors are reported through the result like ProcessDiagnosis.
func (e *Engine) EvaluateSchedule(ctx context.Context, equipmentID, equipmentType string, actx models.AutomationContext) (result *models.AutomationResult) {
	passID := uuid.New().String()
	p := &pass{}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Schedule pass %s panicked: %v", passID, r)
			e.discard(ctx, passID, p)
			result = e.failed(passID, fmt.Errorf("schedule pass panicked: %v", r))
		}
	}()

	actx.EquipmentID = equipmentID
	actx.EquipmentType = equipmentType

	tasks, deps, err := e.runSchedule(ctx, p, equipmentType, actx)
	if err != nil {
		log.Printf("Schedule pass %s for equipment %q failed: %v", passID, equipmentID, err)
		e.discard(ctx, passID, p)
		return e.failed(passID, err)
	}

	if len(tasks) > 0 {
		log.Printf("Generated %d scheduled tasks for equipment %q (pass %s)", len(tasks), equipmentID, passID)
	}

	return &models.AutomationResult{
		Success:        true,
		PassID:         passID,
		Tasks:          tasks,
		TriggeredRules: []string{},
		Dependencies:   deps,
		Timestamp:      e.now(),
	}
}

// GetStatistics aggregates automation statistics since the given date
func (e *Engine) GetStatistics(ctx context.Context, since time.Time) (*models.AutomationStats, error) {
	generated, err := e.store.CountTasksCreatedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count generated tasks: %w", err)
	}
	completed, err := e.store.ListCompletedTasksSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed tasks: %w", err)
	}
	distribution, err := e.store.PriorityDistributionSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get priority distribution: %w", err)
	}
	return AggregateStats(since, generated, completed, distribution), nil
}

// GetStatisticsForRange aggregates statistics for a range key such as "7d"
func (e *Engine) GetStatisticsForRange(ctx context.Context, rangeKey string) (*models.AutomationStats, error) {
	return e.GetStatistics(ctx, StartDateForRange(rangeKey, e.now()))
}

func (e *Engine) runDiagnosis(ctx context.Context, p *pass, record *models.DiagnosisRecord, actx models.AutomationContext) ([]*models.Task, []string, []models.TaskDependency, error) {
	now := e.now()
	triggered := []string{}
	tasks := []*models.Task{}

	for _, rule := range e.rules.Evaluate(record) {
		log.Printf("Rule triggered: %s", rule.Name)
		triggered = append(triggered, rule.Name)

		task, err := e.catalog.BuildTask(rule, record, actx, now)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := e.persist(ctx, p, task); err != nil {
			return nil, nil, nil, err
		}
		if rule.AutoAssign {
			if err := e.autoAssign(ctx, task); err != nil {
				return nil, nil, nil, err
			}
		}
		if actx.PhotoID != "" {
			if err := e.store.LinkTaskToPhoto(ctx, task.ID, actx.PhotoID); err != nil {
				return nil, nil, nil, fmt.Errorf("failed to link task %s to photo %s: %w", task.ID, actx.PhotoID, err)
			}
		}
		tasks = append(tasks, task)
	}

	equipmentType := ResolveEquipmentType(record, actx)
	scheduled, err := e.dueTasks(ctx, p, record.EquipmentType(), actx, now)
	if err != nil {
		return nil, nil, nil, err
	}
	tasks = append(tasks, scheduled...)

	tasks, deps, err := e.finish(ctx, tasks, equipmentType)
	if err != nil {
		return nil, nil, nil, err
	}
	return tasks, triggered, deps, nil
}

func (e *Engine) runSchedule(ctx context.Context, p *pass, equipmentType string, actx models.AutomationContext) ([]*models.Task, []models.TaskDependency, error) {
	tasks, err := e.dueTasks(ctx, p, equipmentType, actx, e.now())
	if err != nil {
		return nil, nil, err
	}
	if equipmentType == "" {
		equipmentType = UnknownEquipment
	}
	return e.finish(ctx, tasks, equipmentType)
}

// dueTasks creates the routine and preventive tasks that are due. The diagnosed
// equipment type wins over the context type.
func (e *Engine) dueTasks(ctx context.Context, p *pass, equipmentType string, actx models.AutomationContext, now time.Time) ([]*models.Task, error) {
	if equipmentType == "" {
		equipmentType = actx.EquipmentType
	}
	if _, ok := e.catalog.Schedule(equipmentType); !ok {
		return []*models.Task{}, nil
	}

	var last *time.Time
	if actx.EquipmentID != "" {
		var err error
		last, err = e.store.LastMaintenanceDate(ctx, actx.EquipmentID)
		if err != nil {
			return nil, fmt.Errorf("failed to get last maintenance date for equipment %s: %w", actx.EquipmentID, err)
		}
	}

	tasks := []*models.Task{}
	for _, st := range e.catalog.DueScheduleTypes(equipmentType, last, now) {
		task, err := e.catalog.BuildScheduledTask(st, equipmentType, actx, now)
		if err != nil {
			return nil, err
		}
		if err := e.persist(ctx, p, task); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// finish orders and links co-generated tasks, then announces them
func (e *Engine) finish(ctx context.Context, tasks []*models.Task, equipmentType string) ([]*models.Task, []models.TaskDependency, error) {
	var deps []models.TaskDependency
	if len(tasks) > 1 {
		tasks = OrderByPriority(tasks)
		deps = LinkDependencies(tasks)
		for i := range deps {
			deps[i].CreatedAt = e.now()
			if err := e.store.SaveDependency(ctx, &deps[i]); err != nil {
				return nil, nil, fmt.Errorf("failed to save dependency %s -> %s: %w", deps[i].DependentTaskID, deps[i].BlockingTaskID, err)
			}
		}
	}

	for _, n := range BuildNotifications(tasks, equipmentType, e.now()) {
		if err := e.notifier.Deliver(ctx, n); err != nil {
			log.Printf("Failed to deliver %s notification for task %s: %v", n.Severity, n.TaskID, err)
		}
	}

	return tasks, deps, nil
}

func (e *Engine) persist(ctx context.Context, p *pass, task *models.Task) error {
	id, err := e.store.SaveTask(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to save task %q: %w", task.Title, err)
	}
	task.ID = id
	p.taskIDs = append(p.taskIDs, id)
	return nil
}

// pass tracks the rows written by one automation pass
type pass struct {
	taskIDs []string
}

// discard removes the tasks a failed pass already wrote. It runs even when ctx
// is already cancelled.
func (e *Engine) discard(ctx context.Context, passID string, p *pass) {
	if len(p.taskIDs) == 0 {
		return
	}
	if err := e.store.DeleteTasks(context.WithoutCancel(ctx), p.taskIDs); err != nil {
		log.Printf("Failed to discard %d tasks of pass %s: %v", len(p.taskIDs), passID, err)
		return
	}
	log.Printf("Discarded %d tasks of failed pass %s", len(p.taskIDs), passID)
}

func (e *Engine) autoAssign(ctx context.Context, task *models.Task) error {
	pool, err := e.store.AvailableTechnicians(ctx)
	if err != nil {
		return fmt.Errorf("failed to get available technicians: %w", err)
	}

	tech, ok := SelectTechnician(pool)
	if !ok {
		log.Printf("No technician available for task %s, leaving unassigned", task.ID)
		return nil
	}

	now := e.now()
	if err := e.store.AssignTask(ctx, task.ID, tech.ID, now); err != nil {
		return fmt.Errorf("failed to assign task %s to %s: %w", task.ID, tech.ID, err)
	}
	task.AssignedTo = tech.ID
	task.AssignedAt = &now

	log.Printf("Auto-assigned task %s to %s", task.ID, tech.Name)
	return nil
}

func (e *Engine) failed(passID string, err error) *models.AutomationResult {
	return &models.AutomationResult{
		Success:        false,
		PassID:         passID,
		Tasks:          []*models.Task{},
		TriggeredRules: []string{},
		Timestamp:      e.now(),
		Error:          err.Error(),
	}
}
