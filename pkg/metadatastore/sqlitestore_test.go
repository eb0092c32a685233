package metadatastore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mimir-aip/maintenance-automation/pkg/automation"
	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

var baseTime = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) (*SQLiteStore, string) {
	tmpDir, err := os.MkdirTemp("", "metadatastore-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	store, err := NewSQLiteStore(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}
	return store, tmpDir
}

func cleanupTestStore(store *SQLiteStore, tmpDir string) {
	store.Close()
	os.RemoveAll(tmpDir)
}

func saveTask(t *testing.T, store *SQLiteStore, task *models.Task) string {
	t.Helper()
	id, err := store.SaveTask(context.Background(), task)
	if err != nil {
		t.Fatalf("Failed to save task: %v", err)
	}
	return id
}

func TestSaveAndGetTask(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanupTestStore(store, tmpDir)
	ctx := context.Background()

	due := baseTime.Add(4 * time.Hour)
	task := &models.Task{
		Title:        "URGENT: Critical Issue - Treadmill",
		Category:     models.TaskCategoryEmergency,
		Priority:     models.PriorityCritical,
		RulePriority: models.PriorityCritical,
		EquipmentID:  "eq-1",
		Location:     "Cardio Floor",
		CreatedAt:    baseTime,
		DueAt:        &due,
		RuleName:     automation.RuleCriticalIssues,
	}

	id := saveTask(t, store, task)
	if id == "" {
		t.Fatal("Expected task ID to be generated")
	}
	if task.ID != "" {
		t.Error("Expected caller's task to be left untouched")
	}

	got, err := store.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.Title != task.Title {
		t.Errorf("Expected title %q, got %q", task.Title, got.Title)
	}
	if got.Status != models.TaskStatusPending {
		t.Errorf("Expected status pending, got %s", got.Status)
	}
	if got.DueAt == nil || !got.DueAt.Equal(due) {
		t.Errorf("Expected due date %v, got %v", due, got.DueAt)
	}

	if _, err := store.GetTask(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Error("Expected error for missing task")
	}
}

func TestListTasksByEquipment(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanupTestStore(store, tmpDir)
	ctx := context.Background()

	saveTask(t, store, &models.Task{Title: "a", Category: models.TaskCategoryRepair, Priority: models.PriorityHigh, EquipmentID: "eq-1", CreatedAt: baseTime})
	saveTask(t, store, &models.Task{Title: "b", Category: models.TaskCategoryRepair, Priority: models.PriorityHigh, EquipmentID: "eq-1", CreatedAt: baseTime.Add(time.Hour)})
	saveTask(t, store, &models.Task{Title: "c", Category: models.TaskCategoryRepair, Priority: models.PriorityHigh, EquipmentID: "eq-2", CreatedAt: baseTime})

	tasks, err := store.ListTasks(ctx, "eq-1")
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].Title != "b" {
		t.Errorf("Expected newest task first, got %q", tasks[0].Title)
	}

	all, err := store.ListTasks(ctx, "")
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 tasks, got %d", len(all))
	}
}

func TestCompleteTaskAndLastMaintenanceDate(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanupTestStore(store, tmpDir)
	ctx := context.Background()

	last, err := store.LastMaintenanceDate(ctx, "eq-1")
	if err != nil {
		t.Fatalf("Failed to get last maintenance date: %v", err)
	}
	if last != nil {
		t.Fatalf("Expected no last maintenance date, got %v", last)
	}

	repair := saveTask(t, store, &models.Task{Title: "repair", Category: models.TaskCategoryRepair, Priority: models.PriorityHigh, EquipmentID: "eq-1", CreatedAt: baseTime})
	maint := saveTask(t, store, &models.Task{Title: "maint", Category: models.TaskCategoryMaintenance, Priority: models.PriorityMedium, EquipmentID: "eq-1", CreatedAt: baseTime})
	safety := saveTask(t, store, &models.Task{Title: "safety", Category: models.TaskCategorySafety, Priority: models.PriorityHigh, EquipmentID: "eq-1", CreatedAt: baseTime})

	for id, at := range map[string]time.Time{
		repair: baseTime.Add(24 * time.Hour),
		maint:  baseTime.Add(72 * time.Hour),
		safety: baseTime.Add(240 * time.Hour),
	} {
		if _, err := store.CompleteTask(ctx, id, at); err != nil {
			t.Fatalf("Failed to complete task: %v", err)
		}
	}

	last, err = store.LastMaintenanceDate(ctx, "eq-1")
	if err != nil {
		t.Fatalf("Failed to get last maintenance date: %v", err)
	}
	// safety work does not count as maintenance
	if last == nil || !last.Equal(baseTime.Add(72*time.Hour)) {
		t.Errorf("Expected last maintenance %v, got %v", baseTime.Add(72*time.Hour), last)
	}

	if _, err := store.CompleteTask(ctx, maint, baseTime); !errors.Is(err, ErrAlreadyCompleted) {
		t.Error("Expected error completing an already completed task")
	}
	if _, err := store.CompleteTask(ctx, "missing", baseTime); !errors.Is(err, ErrNotFound) {
		t.Error("Expected error completing a missing task")
	}
}

func TestAvailableTechnicians(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanupTestStore(store, tmpDir)
	ctx := context.Background()

	for i, status := range []models.TechnicianStatus{
		models.TechnicianStatusBusy,
		models.TechnicianStatusAvailable,
		models.TechnicianStatusAvailable,
		models.TechnicianStatusOff,
		models.TechnicianStatusAvailable,
		models.TechnicianStatusAvailable,
		models.TechnicianStatusAvailable,
		models.TechnicianStatusAvailable,
	} {
		tech := &models.Technician{
			ID:        string(rune('a' + i)),
			Name:      "tech",
			Status:    status,
			CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveTechnician(ctx, tech); err != nil {
			t.Fatalf("Failed to save technician: %v", err)
		}
	}

	pool, err := store.AvailableTechnicians(ctx)
	if err != nil {
		t.Fatalf("Failed to get available technicians: %v", err)
	}
	if len(pool) != availableTechnicianLimit {
		t.Fatalf("Expected %d technicians, got %d", availableTechnicianLimit, len(pool))
	}
	if pool[0].ID != "b" {
		t.Errorf("Expected first available technician b, got %s", pool[0].ID)
	}
	for _, tech := range pool {
		if tech.Status != models.TechnicianStatusAvailable {
			t.Errorf("Expected only available technicians, got %s", tech.Status)
		}
	}

	all, err := store.ListTechnicians(ctx)
	if err != nil {
		t.Fatalf("Failed to list technicians: %v", err)
	}
	if len(all) != 8 {
		t.Errorf("Expected 8 technicians, got %d", len(all))
	}
}

func TestAssignTask(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanupTestStore(store, tmpDir)
	ctx := context.Background()

	id := saveTask(t, store, &models.Task{Title: "x", Category: models.TaskCategorySafety, Priority: models.PriorityHigh, CreatedAt: baseTime})
	if err := store.AssignTask(ctx, id, "tech-1", baseTime.Add(time.Minute)); err != nil {
		t.Fatalf("Failed to assign task: %v", err)
	}

	task, err := store.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if task.AssignedTo != "tech-1" {
		t.Errorf("Expected task assigned to tech-1, got %q", task.AssignedTo)
	}
	if task.AssignedAt == nil || !task.AssignedAt.Equal(baseTime.Add(time.Minute)) {
		t.Errorf("Unexpected assignment date %v", task.AssignedAt)
	}

	if err := store.AssignTask(ctx, "missing", "tech-1", baseTime); err == nil {
		t.Error("Expected error assigning a missing task")
	}
}

func TestDependenciesAndPhotoLinks(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanupTestStore(store, tmpDir)
	ctx := context.Background()

	blocking := saveTask(t, store, &models.Task{Title: "first", Category: models.TaskCategoryEmergency, Priority: models.PriorityCritical, CreatedAt: baseTime})
	dependent := saveTask(t, store, &models.Task{Title: "second", Category: models.TaskCategorySafety, Priority: models.PriorityHigh, CreatedAt: baseTime})

	dep := &models.TaskDependency{DependentTaskID: dependent, BlockingTaskID: blocking, CreatedAt: baseTime}
	if err := store.SaveDependency(ctx, dep); err != nil {
		t.Fatalf("Failed to save dependency: %v", err)
	}
	if dep.ID == "" {
		t.Error("Expected dependency ID to be set")
	}

	deps, err := store.ListDependencies(ctx, dependent)
	if err != nil {
		t.Fatalf("Failed to list dependencies: %v", err)
	}
	if len(deps) != 1 || deps[0].BlockingTaskID != blocking {
		t.Errorf("Unexpected dependencies: %+v", deps)
	}

	if err := store.LinkTaskToPhoto(ctx, blocking, "photo-1"); err != nil {
		t.Fatalf("Failed to link photo: %v", err)
	}
	if err := store.LinkTaskToPhoto(ctx, dependent, "photo-1"); err != nil {
		t.Fatalf("Failed to relink photo: %v", err)
	}
	taskID, err := store.GetPhotoTask(ctx, "photo-1")
	if err != nil {
		t.Fatalf("Failed to get photo task: %v", err)
	}
	if taskID != dependent {
		t.Errorf("Expected photo linked to %s, got %s", dependent, taskID)
	}
}

func TestStatisticsQueries(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanupTestStore(store, tmpDir)
	ctx := context.Background()

	old := saveTask(t, store, &models.Task{Title: "old", Category: models.TaskCategoryRepair, Priority: models.PriorityHigh, CreatedAt: baseTime.Add(-60 * 24 * time.Hour)})
	recent := saveTask(t, store, &models.Task{Title: "recent", Category: models.TaskCategoryRepair, Priority: models.PriorityHigh, CreatedAt: baseTime})
	saveTask(t, store, &models.Task{Title: "low", Category: models.TaskCategoryPreventive, Priority: models.PriorityLow, CreatedAt: baseTime.Add(time.Hour)})

	// completed inside the range, although created before it
	if _, err := store.CompleteTask(ctx, old, baseTime.Add(2*time.Hour)); err != nil {
		t.Fatalf("Failed to complete task: %v", err)
	}
	if _, err := store.CompleteTask(ctx, recent, baseTime.Add(48*time.Hour)); err != nil {
		t.Fatalf("Failed to complete task: %v", err)
	}

	since := baseTime.Add(-7 * 24 * time.Hour)

	generated, err := store.CountTasksCreatedSince(ctx, since)
	if err != nil {
		t.Fatalf("Failed to count tasks: %v", err)
	}
	if generated != 2 {
		t.Errorf("Expected 2 generated tasks, got %d", generated)
	}

	completed, err := store.ListCompletedTasksSince(ctx, since)
	if err != nil {
		t.Fatalf("Failed to list completed tasks: %v", err)
	}
	if len(completed) != 2 {
		t.Errorf("Expected 2 completed tasks, got %d", len(completed))
	}

	distribution, err := store.PriorityDistributionSince(ctx, since)
	if err != nil {
		t.Fatalf("Failed to get distribution: %v", err)
	}
	if distribution[models.PriorityHigh] != 1 || distribution[models.PriorityLow] != 1 {
		t.Errorf("Unexpected distribution: %v", distribution)
	}
}

func TestEquipment(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanupTestStore(store, tmpDir)
	ctx := context.Background()

	active := &models.Equipment{ID: "eq-1", Name: "Treadmill 1", Type: "Treadmill", Status: models.EquipmentStatusActive, CreatedAt: baseTime, UpdatedAt: baseTime}
	retired := &models.Equipment{ID: "eq-2", Name: "Old bike", Type: "Exercise Bike", Status: models.EquipmentStatusRetired, CreatedAt: baseTime, UpdatedAt: baseTime}
	for _, eq := range []*models.Equipment{active, retired} {
		if err := store.SaveEquipment(ctx, eq); err != nil {
			t.Fatalf("Failed to save equipment: %v", err)
		}
	}

	got, err := store.GetEquipment(ctx, "eq-1")
	if err != nil {
		t.Fatalf("Failed to get equipment: %v", err)
	}
	if got.Type != "Treadmill" {
		t.Errorf("Expected type Treadmill, got %s", got.Type)
	}

	list, err := store.ListActiveEquipment(ctx)
	if err != nil {
		t.Fatalf("Failed to list active equipment: %v", err)
	}
	if len(list) != 1 || list[0].ID != "eq-1" {
		t.Errorf("Expected only eq-1 to be active, got %+v", list)
	}

	all, err := store.ListEquipment(ctx)
	if err != nil {
		t.Fatalf("Failed to list equipment: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 equipment, got %d", len(all))
	}

	if _, err := store.GetEquipment(ctx, "missing"); err == nil {
		t.Error("Expected error for missing equipment")
	}
}

func TestHasOpenScheduledTask(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanupTestStore(store, tmpDir)
	ctx := context.Background()

	open, err := store.HasOpenScheduledTask(ctx, "eq-1")
	if err != nil {
		t.Fatalf("Failed to check scheduled tasks: %v", err)
	}
	if open {
		t.Error("Expected no open scheduled task")
	}

	id := saveTask(t, store, &models.Task{
		Title:        "SCHEDULED: Routine Maintenance - Treadmill",
		Category:     models.TaskCategoryScheduled,
		Priority:     models.PriorityMedium,
		EquipmentID:  "eq-1",
		IsScheduled:  true,
		ScheduleType: models.ScheduleTypeRoutine,
		CreatedAt:    baseTime,
	})

	open, _ = store.HasOpenScheduledTask(ctx, "eq-1")
	if !open {
		t.Error("Expected an open scheduled task")
	}

	if _, err := store.CompleteTask(ctx, id, baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("Failed to complete task: %v", err)
	}
	open, _ = store.HasOpenScheduledTask(ctx, "eq-1")
	if open {
		t.Error("Expected completed scheduled task to be closed")
	}
}

func TestEngineAgainstSQLiteStore(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanupTestStore(store, tmpDir)
	ctx := context.Background()

	if err := store.SaveTechnician(ctx, &models.Technician{ID: "tech-1", Name: "Ada", Status: models.TechnicianStatusAvailable, CreatedAt: baseTime}); err != nil {
		t.Fatalf("Failed to save technician: %v", err)
	}

	engine, err := automation.NewEngine(automation.DefaultRules(), automation.DefaultCatalog(), store,
		automation.WithClock(func() time.Time { return baseTime }))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	record := &models.DiagnosisRecord{
		Equipment:  &models.EquipmentIdentity{Type: "Treadmill"},
		Damages:    &models.DamageReport{HasCriticalIssues: true},
		Components: &models.ComponentReport{NeedsReplacement: 1},
	}
	result := engine.ProcessDiagnosis(ctx, record, models.AutomationContext{EquipmentID: "eq-1", PhotoID: "photo-7"})
	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}

	// critical + replacement + routine + preventive (never maintained)
	if len(result.Tasks) != 4 {
		t.Fatalf("Expected 4 tasks, got %d", len(result.Tasks))
	}

	critical, err := store.GetTask(ctx, result.Tasks[0].ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if critical.AssignedTo != "tech-1" {
		t.Errorf("Expected critical task assigned to tech-1, got %q", critical.AssignedTo)
	}

	photoTask, err := store.GetPhotoTask(ctx, "photo-7")
	if err != nil {
		t.Fatalf("Failed to get photo task: %v", err)
	}
	if photoTask != result.Tasks[1].ID {
		t.Errorf("Expected photo linked to the last rule task %s, got %s", result.Tasks[1].ID, photoTask)
	}

	deps, err := store.ListDependencies(ctx, result.Tasks[1].ID)
	if err != nil {
		t.Fatalf("Failed to list dependencies: %v", err)
	}
	if len(deps) != 1 || deps[0].BlockingTaskID != result.Tasks[0].ID {
		t.Errorf("Expected replacement task to depend on critical task, got %+v", deps)
	}

	stats, err := engine.GetStatisticsForRange(ctx, "7d")
	if err != nil {
		t.Fatalf("Failed to get statistics: %v", err)
	}
	if stats.TasksGenerated != 4 || stats.TasksCompleted != 0 || stats.AutomationEfficiency != 0 {
		t.Errorf("Unexpected statistics: %+v", stats)
	}
}

func TestConnectionPragmas(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanupTestStore(store, tmpDir)

	var journalMode string
	if err := store.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to read journal mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal mode wal, got %s", journalMode)
	}

	var busyTimeout int
	if err := store.db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("Failed to read busy timeout: %v", err)
	}
	if busyTimeout != busyTimeoutMillis {
		t.Errorf("Expected busy timeout %d, got %d", busyTimeoutMillis, busyTimeout)
	}
}

func TestDeleteTasks(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanupTestStore(store, tmpDir)
	ctx := context.Background()

	critical := saveTask(t, store, &models.Task{Title: "critical", Category: models.TaskCategoryEmergency, Priority: models.PriorityCritical, EquipmentID: "eq-1", CreatedAt: baseTime})
	replacement := saveTask(t, store, &models.Task{Title: "replacement", Category: models.TaskCategoryRepair, Priority: models.PriorityHigh, EquipmentID: "eq-1", CreatedAt: baseTime})
	other := saveTask(t, store, &models.Task{Title: "other", Category: models.TaskCategoryMaintenance, Priority: models.PriorityMedium, EquipmentID: "eq-2", CreatedAt: baseTime})

	if err := store.SaveDependency(ctx, &models.TaskDependency{DependentTaskID: replacement, BlockingTaskID: critical, CreatedAt: baseTime}); err != nil {
		t.Fatalf("Failed to save dependency: %v", err)
	}
	if err := store.LinkTaskToPhoto(ctx, replacement, "photo-1"); err != nil {
		t.Fatalf("Failed to link photo: %v", err)
	}
	if err := store.LinkTaskToPhoto(ctx, other, "photo-2"); err != nil {
		t.Fatalf("Failed to link photo: %v", err)
	}

	if err := store.DeleteTasks(ctx, []string{critical, replacement}); err != nil {
		t.Fatalf("Failed to delete tasks: %v", err)
	}

	for _, id := range []string{critical, replacement} {
		if _, err := store.GetTask(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected task %s to be deleted, got %v", id, err)
		}
	}
	deps, err := store.ListDependencies(ctx, replacement)
	if err != nil {
		t.Fatalf("Failed to list dependencies: %v", err)
	}
	if len(deps) != 0 {
		t.Errorf("Expected no dependencies, got %+v", deps)
	}
	if _, err := store.GetPhotoTask(ctx, "photo-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected photo-1 link to be deleted, got %v", err)
	}

	if _, err := store.GetTask(ctx, other); err != nil {
		t.Errorf("Expected unrelated task to survive: %v", err)
	}
	if taskID, err := store.GetPhotoTask(ctx, "photo-2"); err != nil || taskID != other {
		t.Errorf("Expected photo-2 to stay linked to %s, got %q (%v)", other, taskID, err)
	}

	if err := store.DeleteTasks(ctx, nil); err != nil {
		t.Errorf("Expected deleting nothing to succeed: %v", err)
	}
}

func TestConcurrentAutomationPasses(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanupTestStore(store, tmpDir)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tech := &models.Technician{ID: fmt.Sprintf("tech-%d", i), Name: "Tech", Status: models.TechnicianStatusAvailable, CreatedAt: baseTime}
		if err := store.SaveTechnician(ctx, tech); err != nil {
			t.Fatalf("Failed to save technician: %v", err)
		}
	}

	engine, err := automation.NewEngine(automation.DefaultRules(), automation.DefaultCatalog(), store,
		automation.WithClock(func() time.Time { return baseTime }))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	record := &models.DiagnosisRecord{
		Equipment:  &models.EquipmentIdentity{Type: "Treadmill"},
		Damages:    &models.DamageReport{HasCriticalIssues: true, HasSafetyRisks: true},
		Components: &models.ComponentReport{NeedsReplacement: 1},
	}

	const passes = 20
	results := make([]*models.AutomationResult, passes)
	var wg sync.WaitGroup
	for i := 0; i < passes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actx := models.AutomationContext{EquipmentID: fmt.Sprintf("eq-%d", i), PhotoID: fmt.Sprintf("photo-%d", i)}
			results[i] = engine.ProcessDiagnosis(ctx, record, actx)
		}(i)
	}
	wg.Wait()

	for i, result := range results {
		if !result.Success {
			t.Errorf("Pass %d failed: %s", i, result.Error)
			continue
		}
		// critical + safety + replacement + routine + preventive
		if len(result.Tasks) != 5 {
			t.Errorf("Pass %d: expected 5 tasks, got %d", i, len(result.Tasks))
		}
	}

	generated, err := store.CountTasksCreatedSince(ctx, baseTime)
	if err != nil {
		t.Fatalf("Failed to count tasks: %v", err)
	}
	if generated != passes*5 {
		t.Errorf("Expected %d tasks, got %d", passes*5, generated)
	}
}
