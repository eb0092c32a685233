package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// memStore is an in-memory Store used by the engine tests
type memStore struct {
	mu           sync.Mutex
	tasks        []*models.Task
	deps         []models.TaskDependency
	assignments  map[string]string
	photoLinks   map[string]string
	technicians  []models.Technician
	lastDates    map[string]time.Time
	saveErr      error
	saveErrAfter int
	saved        int
	techErr      error
	deleted      []string
	deleteErr    error

	generated    int
	completed    []*models.Task
	distribution map[models.Priority]int
	statsErr     error
}

func newMemStore() *memStore {
	return &memStore{
		assignments: make(map[string]string),
		photoLinks:  make(map[string]string),
		lastDates:   make(map[string]time.Time),
	}
}

func (s *memStore) LastMaintenanceDate(ctx context.Context, equipmentID string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.lastDates[equipmentID]; ok {
		return &d, nil
	}
	return nil, nil
}

func (s *memStore) AvailableTechnicians(ctx context.Context) ([]models.Technician, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.techErr != nil {
		return nil, s.techErr
	}
	return append([]models.Technician(nil), s.technicians...), nil
}

func (s *memStore) SaveTask(ctx context.Context, task *models.Task) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil && s.saved >= s.saveErrAfter {
		return "", s.saveErr
	}
	s.saved++
	stored := *task
	stored.ID = fmt.Sprintf("task-%d", s.saved)
	s.tasks = append(s.tasks, &stored)
	return stored.ID, nil
}

func (s *memStore) DeleteTasks(ctx context.Context, taskIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}

	drop := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		drop[id] = true
		delete(s.assignments, id)
		delete(s.photoLinks, id)
	}

	kept := s.tasks[:0]
	for _, task := range s.tasks {
		if !drop[task.ID] {
			kept = append(kept, task)
		}
	}
	s.tasks = kept

	deps := s.deps[:0]
	for _, dep := range s.deps {
		if !drop[dep.DependentTaskID] && !drop[dep.BlockingTaskID] {
			deps = append(deps, dep)
		}
	}
	s.deps = deps

	s.deleted = append(s.deleted, taskIDs...)
	return nil
}

func (s *memStore) SaveDependency(ctx context.Context, dep *models.TaskDependency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps = append(s.deps, *dep)
	return nil
}

func (s *memStore) AssignTask(ctx context.Context, taskID, technicianID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[taskID] = technicianID
	return nil
}

func (s *memStore) LinkTaskToPhoto(ctx context.Context, taskID, photoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photoLinks[taskID] = photoID
	return nil
}

func (s *memStore) CountTasksCreatedSince(ctx context.Context, since time.Time) (int, error) {
	if s.statsErr != nil {
		return 0, s.statsErr
	}
	return s.generated, nil
}

func (s *memStore) ListCompletedTasksSince(ctx context.Context, since time.Time) ([]*models.Task, error) {
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	return s.completed, nil
}

func (s *memStore) PriorityDistributionSince(ctx context.Context, since time.Time) (map[models.Priority]int, error) {
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	return s.distribution, nil
}

// recordingNotifier captures delivered notifications
type recordingNotifier struct {
	mu            sync.Mutex
	notifications []*models.Notification
	err           error
}

func (n *recordingNotifier) Deliver(ctx context.Context, msg *models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, msg)
	return n.err
}

var errDatabaseLocked = errors.New("database is locked")

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }
