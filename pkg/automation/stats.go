package automation

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

const day = 24 * time.Hour

// StartDateForRange converts a range key (7d, 30d, 90d) into a start date.
// Unknown keys fall back to 30 days.
func StartDateForRange(rangeKey string, now time.Time) time.Time {
	switch rangeKey {
	case "7d":
		return now.Add(-7 * day)
	case "90d":
		return now.Add(-90 * day)
	default:
		return now.Add(-30 * day)
	}
}

// Efficiency is the share of generated tasks that were completed, as a rounded
// percentage clamped to [0,100]. It is 0 when nothing was generated.
func Efficiency(generated, completed int) int {
	if generated <= 0 || completed <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(completed) / float64(generated)))
	if pct > 100 {
		return 100
	}
	return pct
}

// AverageCompletionDays is the mean of completion minus creation time, in days,
// over tasks with a completion date. It is 0 when there are none.
func AverageCompletionDays(completed []*models.Task) float64 {
	durations := make([]float64, 0, len(completed))
	for _, task := range completed {
		if task.CompletedAt == nil {
			continue
		}
		durations = append(durations, task.CompletedAt.Sub(task.CreatedAt).Hours()/24)
	}
	if len(durations) == 0 {
		return 0
	}
	return stat.Mean(durations, nil)
}

// AggregateStats combines the raw counts for a window into automation statistics
func AggregateStats(since time.Time, generated int, completed []*models.Task, distribution map[models.Priority]int) *models.AutomationStats {
	if distribution == nil {
		distribution = map[models.Priority]int{}
	}
	return &models.AutomationStats{
		Since:                     since,
		TasksGenerated:            generated,
		TasksCompleted:            len(completed),
		AverageCompletionTimeDays: AverageCompletionDays(completed),
		PriorityDistribution:      distribution,
		AutomationEfficiency:      Efficiency(generated, len(completed)),
	}
}
