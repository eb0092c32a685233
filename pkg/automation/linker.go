package automation

import (
	"sort"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// orderingPriority is the priority used to order co-generated tasks: the nominal
// priority of the rule or schedule that produced the task.
func orderingPriority(task *models.Task) models.Priority {
	if task.RulePriority.Valid() {
		return task.RulePriority
	}
	return task.Priority
}

// OrderByPriority returns a copy of tasks stable-sorted by descending ordering priority
func OrderByPriority(tasks []*models.Task) []*models.Task {
	ordered := make([]*models.Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return orderingPriority(ordered[i]).Rank() > orderingPriority(ordered[j]).Rank()
	})
	return ordered
}

// LinkDependencies chains co-generated tasks by descending priority: each task is
// blocked by its immediate predecessor in priority order when that predecessor
// ranks strictly higher. Equal-rank neighbours are not linked, so the result is
// a simple chain rather than a full DAG. Fewer than two tasks yield no edges.
func LinkDependencies(tasks []*models.Task) []models.TaskDependency {
	if len(tasks) < 2 {
		return nil
	}

	ordered := OrderByPriority(tasks)
	var deps []models.TaskDependency
	for i := 0; i < len(ordered)-1; i++ {
		higher, lower := ordered[i], ordered[i+1]
		if orderingPriority(higher).Rank() > orderingPriority(lower).Rank() {
			deps = append(deps, models.TaskDependency{
				DependentTaskID: lower.ID,
				BlockingTaskID:  higher.ID,
			})
		}
	}
	return deps
}
