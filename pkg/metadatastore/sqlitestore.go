package metadatastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// timeLayout is fixed-width so stored timestamps compare correctly as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// availableTechnicianLimit caps the technician pool returned for auto-assignment
const availableTechnicianLimit = 5

const (
	busyTimeoutMillis = 10000
	maxBusyRetries    = 5
)

var _ MetadataStore = (*SQLiteStore)(nil)

var (
	// ErrNotFound is wrapped by lookups of records that do not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyCompleted is returned when completing a completed task
	ErrAlreadyCompleted = errors.New("task already completed")
)

// SQLiteStore provides SQLite-based persistence for tasks, dependencies,
// technicians, equipment and photo links
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based storage instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// modernc.org/sqlite applies each _pragma to every pooled connection
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dbPath, busyTimeoutMillis)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writes are serialized by SQLite anyway, keep the pool small
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return nil, fmt.Errorf("failed to check journal mode: %w", err)
	}
	// In-memory databases cannot use WAL and report "memory"
	if journalMode != "wal" && journalMode != "memory" {
		return nil, fmt.Errorf("unexpected journal mode: expected wal, got %s", journalMode)
	}

	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy retries a database operation if it fails due to SQLITE_BUSY.
// This is a safety net on top of the busy_timeout pragma.
func (s *SQLiteStore) retryOnBusy(ctx context.Context, operation func() error) error {
	var err error
	for i := 0; i < maxBusyRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}

		// 10ms, 20ms, 40ms, 80ms, 160ms
		backoff := time.Duration(10*(1<<uint(i))) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxBusyRetries, err)
}

// initSchema creates the database schema if it doesn't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS equipment (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		location TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_equipment_status ON equipment(status);

	CREATE TABLE IF NOT EXISTS technicians (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_technicians_status ON technicians(status);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT NOT NULL,
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		equipment_id TEXT,
		is_scheduled INTEGER NOT NULL DEFAULT 0,
		schedule_type TEXT,
		assigned_to TEXT,
		creation_date TEXT NOT NULL,
		completion_date TEXT,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_equipment_id ON tasks(equipment_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_creation_date ON tasks(creation_date);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

	CREATE TABLE IF NOT EXISTS task_dependencies (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		depends_on_task_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE,
		FOREIGN KEY (depends_on_task_id) REFERENCES tasks(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_task_dependencies_task_id ON task_dependencies(task_id);

	CREATE TABLE IF NOT EXISTS photos (
		id TEXT PRIMARY KEY,
		task_id TEXT,
		linked_at TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := formatTime(*t)
	return &v
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored time %q: %w", v, err)
	}
	return t, nil
}

// SaveTask persists a task and returns its ID. A task without an ID gets a new one;
// the caller's task is not modified.
func (s *SQLiteStore) SaveTask(ctx context.Context, task *models.Task) (string, error) {
	t := *task
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}
	if err := s.writeTask(ctx, &t); err != nil {
		return "", err
	}
	return t.ID, nil
}

func (s *SQLiteStore) writeTask(ctx context.Context, task *models.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	scheduled := 0
	if task.IsScheduled {
		scheduled = 1
	}

	query := `
		INSERT OR REPLACE INTO tasks (id, title, category, priority, status, equipment_id, is_scheduled, schedule_type, assigned_to, creation_date, completion_date, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = s.retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, query,
			task.ID,
			task.Title,
			task.Category,
			task.Priority,
			task.Status,
			task.EquipmentID,
			scheduled,
			task.ScheduleType,
			task.AssignedTo,
			formatTime(task.CreatedAt),
			formatTimePtr(task.CompletedAt),
			string(data),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM tasks WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	var task models.Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

// ListTasks lists tasks, newest first, optionally filtered by equipment
func (s *SQLiteStore) ListTasks(ctx context.Context, equipmentID string) ([]*models.Task, error) {
	query := `SELECT data FROM tasks ORDER BY creation_date DESC`
	args := []any{}
	if equipmentID != "" {
		query = `SELECT data FROM tasks WHERE equipment_id = ? ORDER BY creation_date DESC`
		args = append(args, equipmentID)
	}
	return s.queryTasks(ctx, query, args...)
}

func (s *SQLiteStore) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		var task models.Task
		if err := json.Unmarshal([]byte(data), &task); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task: %w", err)
		}
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}

// AssignTask records the technician a task is assigned to
func (s *SQLiteStore) AssignTask(ctx context.Context, taskID, technicianID string, at time.Time) error {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	task.AssignedTo = technicianID
	task.AssignedAt = &at
	return s.writeTask(ctx, task)
}

// CompleteTask marks a task completed at the given time
func (s *SQLiteStore) CompleteTask(ctx context.Context, id string, at time.Time) (*models.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status == models.TaskStatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyCompleted, id)
	}
	task.Status = models.TaskStatusCompleted
	task.CompletedAt = &at
	if err := s.writeTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// LastMaintenanceDate returns the latest completion date of a completed
// Maintenance or Repair task for the equipment
func (s *SQLiteStore) LastMaintenanceDate(ctx context.Context, equipmentID string) (*time.Time, error) {
	if equipmentID == "" {
		return nil, nil
	}

	query := `
		SELECT MAX(completion_date) FROM tasks
		WHERE equipment_id = ? AND status = ? AND category IN (?, ?)
	`
	var last sql.NullString
	err := s.db.QueryRowContext(ctx, query,
		equipmentID,
		models.TaskStatusCompleted,
		models.TaskCategoryMaintenance,
		models.TaskCategoryRepair,
	).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("failed to get last maintenance date: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}

	t, err := parseTime(last.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// HasOpenScheduledTask reports whether the equipment has a scheduled task that
// is not yet completed or cancelled
func (s *SQLiteStore) HasOpenScheduledTask(ctx context.Context, equipmentID string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM tasks
		WHERE equipment_id = ? AND is_scheduled = 1 AND status NOT IN (?, ?)
	`
	var count int
	err := s.db.QueryRowContext(ctx, query, equipmentID, models.TaskStatusCompleted, models.TaskStatusCancelled).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count open scheduled tasks: %w", err)
	}
	return count > 0, nil
}

// SaveDependency persists a blocking edge between two tasks
func (s *SQLiteStore) SaveDependency(ctx context.Context, dep *models.TaskDependency) error {
	id := dep.ID
	if id == "" {
		id = uuid.New().String()
	}

	query := `
		INSERT INTO task_dependencies (id, task_id, depends_on_task_id, created_at)
		VALUES (?, ?, ?, ?)
	`
	err := s.retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, query, id, dep.DependentTaskID, dep.BlockingTaskID, formatTime(dep.CreatedAt))
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to save task dependency: %w", err)
	}
	dep.ID = id
	return nil
}

// ListDependencies lists the tasks blocking the given task
func (s *SQLiteStore) ListDependencies(ctx context.Context, taskID string) ([]models.TaskDependency, error) {
	query := `
		SELECT id, task_id, depends_on_task_id, created_at FROM task_dependencies
		WHERE task_id = ? ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task dependencies: %w", err)
	}
	defer rows.Close()

	deps := make([]models.TaskDependency, 0)
	for rows.Next() {
		var dep models.TaskDependency
		var createdAt string
		if err := rows.Scan(&dep.ID, &dep.DependentTaskID, &dep.BlockingTaskID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan task dependency: %w", err)
		}
		if dep.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}

// LinkTaskToPhoto records the task generated from a photo
func (s *SQLiteStore) LinkTaskToPhoto(ctx context.Context, taskID, photoID string) error {
	query := `
		INSERT INTO photos (id, task_id, linked_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET task_id = excluded.task_id, linked_at = excluded.linked_at
	`
	err := s.retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, query, photoID, taskID, formatTime(time.Now()))
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to link task to photo: %w", err)
	}
	return nil
}

// DeleteTasks removes tasks with their dependency edges and photo links in one
// transaction. Assignments live on the task rows and go with them.
func (s *SQLiteStore) DeleteTasks(ctx context.Context, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(taskIDs)), ",")
	args := make([]any, 0, len(taskIDs))
	for _, id := range taskIDs {
		args = append(args, id)
	}
	depArgs := append(append([]any{}, args...), args...)

	err := s.retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM task_dependencies WHERE task_id IN (`+placeholders+`) OR depends_on_task_id IN (`+placeholders+`)`,
			depArgs...); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE task_id IN (`+placeholders+`)`, args...); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id IN (`+placeholders+`)`, args...); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	return nil
}

// GetPhotoTask returns the task linked to a photo, or an empty string
func (s *SQLiteStore) GetPhotoTask(ctx context.Context, photoID string) (string, error) {
	var taskID sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT task_id FROM photos WHERE id = ?`, photoID).Scan(&taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("photo %w: %s", ErrNotFound, photoID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get photo: %w", err)
	}
	return taskID.String, nil
}

// CountTasksCreatedSince counts tasks created at or after since
func (s *SQLiteStore) CountTasksCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE creation_date >= ?`, formatTime(since)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

// ListCompletedTasksSince lists completed tasks whose completion date is at or after since
func (s *SQLiteStore) ListCompletedTasksSince(ctx context.Context, since time.Time) ([]*models.Task, error) {
	query := `
		SELECT data FROM tasks
		WHERE status = ? AND completion_date IS NOT NULL AND completion_date >= ?
		ORDER BY completion_date
	`
	return s.queryTasks(ctx, query, models.TaskStatusCompleted, formatTime(since))
}

// PriorityDistributionSince groups tasks created at or after since by priority
func (s *SQLiteStore) PriorityDistributionSince(ctx context.Context, since time.Time) (map[models.Priority]int, error) {
	query := `SELECT priority, COUNT(*) FROM tasks WHERE creation_date >= ? GROUP BY priority`
	rows, err := s.db.QueryContext(ctx, query, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to get priority distribution: %w", err)
	}
	defer rows.Close()

	distribution := make(map[models.Priority]int)
	for rows.Next() {
		var priority string
		var count int
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, fmt.Errorf("failed to scan priority distribution: %w", err)
		}
		distribution[models.Priority(priority)] = count
	}
	return distribution, rows.Err()
}

// SaveTechnician saves a technician to the database
func (s *SQLiteStore) SaveTechnician(ctx context.Context, technician *models.Technician) error {
	data, err := json.Marshal(technician)
	if err != nil {
		return fmt.Errorf("failed to marshal technician: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO technicians (id, name, email, status, created_at, data)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		technician.ID,
		technician.Name,
		technician.Email,
		technician.Status,
		formatTime(technician.CreatedAt),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save technician: %w", err)
	}
	return nil
}

// ListTechnicians lists all technicians in registration order
func (s *SQLiteStore) ListTechnicians(ctx context.Context) ([]*models.Technician, error) {
	return s.queryTechnicians(ctx, `SELECT data FROM technicians ORDER BY created_at, id`)
}

// AvailableTechnicians returns up to availableTechnicianLimit available
// technicians in registration order
func (s *SQLiteStore) AvailableTechnicians(ctx context.Context) ([]models.Technician, error) {
	query := `SELECT data FROM technicians WHERE status = ? ORDER BY created_at, id LIMIT ?`
	techs, err := s.queryTechnicians(ctx, query, models.TechnicianStatusAvailable, availableTechnicianLimit)
	if err != nil {
		return nil, err
	}

	pool := make([]models.Technician, 0, len(techs))
	for _, t := range techs {
		pool = append(pool, *t)
	}
	return pool, nil
}

func (s *SQLiteStore) queryTechnicians(ctx context.Context, query string, args ...any) ([]*models.Technician, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list technicians: %w", err)
	}
	defer rows.Close()

	technicians := make([]*models.Technician, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan technician: %w", err)
		}

		var technician models.Technician
		if err := json.Unmarshal([]byte(data), &technician); err != nil {
			return nil, fmt.Errorf("failed to unmarshal technician: %w", err)
		}
		technicians = append(technicians, &technician)
	}
	return technicians, rows.Err()
}

// SaveEquipment saves equipment to the database
func (s *SQLiteStore) SaveEquipment(ctx context.Context, equipment *models.Equipment) error {
	data, err := json.Marshal(equipment)
	if err != nil {
		return fmt.Errorf("failed to marshal equipment: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO equipment (id, name, type, location, status, created_at, updated_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		equipment.ID,
		equipment.Name,
		equipment.Type,
		equipment.Location,
		equipment.Status,
		formatTime(equipment.CreatedAt),
		formatTime(equipment.UpdatedAt),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save equipment: %w", err)
	}
	return nil
}

// GetEquipment retrieves equipment by ID
func (s *SQLiteStore) GetEquipment(ctx context.Context, id string) (*models.Equipment, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM equipment WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("equipment %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}

	var equipment models.Equipment
	if err := json.Unmarshal([]byte(data), &equipment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal equipment: %w", err)
	}
	return &equipment, nil
}

// ListEquipment lists all registered equipment
func (s *SQLiteStore) ListEquipment(ctx context.Context) ([]*models.Equipment, error) {
	return s.queryEquipment(ctx, `SELECT data FROM equipment ORDER BY created_at, id`)
}

// ListActiveEquipment lists equipment that is still in service
func (s *SQLiteStore) ListActiveEquipment(ctx context.Context) ([]*models.Equipment, error) {
	return s.queryEquipment(ctx, `SELECT data FROM equipment WHERE status = ? ORDER BY created_at, id`, models.EquipmentStatusActive)
}

func (s *SQLiteStore) queryEquipment(ctx context.Context, query string, args ...any) ([]*models.Equipment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	defer rows.Close()

	list := make([]*models.Equipment, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan equipment: %w", err)
		}

		var equipment models.Equipment
		if err := json.Unmarshal([]byte(data), &equipment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal equipment: %w", err)
		}
		list = append(list, &equipment)
	}
	return list, rows.Err()
}
