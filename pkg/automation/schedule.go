package automation

import (
	"math"
	"time"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// evaluatedScheduleTypes are the schedule types that generate tasks. Inspection
// cadences are kept in the schedule table but never produce tasks.
var evaluatedScheduleTypes = []models.ScheduleType{
	models.ScheduleTypeRoutine,
	models.ScheduleTypePreventive,
}

// ElapsedDays returns the whole days elapsed between last and now, rounded down
func ElapsedDays(last, now time.Time) int {
	return int(math.Floor(now.Sub(last).Hours() / 24))
}

// IsMaintenanceDue reports whether a cadence is due given the last completed
// maintenance. No recorded maintenance means it is due immediately; an unknown
// cadence is never due.
func IsMaintenanceDue(last *time.Time, cadence models.Cadence, now time.Time) bool {
	threshold, ok := cadence.ThresholdDays()
	if !ok {
		return false
	}
	if last == nil {
		return true
	}
	return ElapsedDays(*last, now) >= threshold
}

// DueScheduleTypes returns the schedule types due for an equipment type, in
// routine-then-preventive order. An equipment type without a schedule has
// nothing due.
func (c *Catalog) DueScheduleTypes(equipmentType string, last *time.Time, now time.Time) []models.ScheduleType {
	schedule, ok := c.Schedule(equipmentType)
	if !ok {
		return nil
	}

	var due []models.ScheduleType
	for _, st := range evaluatedScheduleTypes {
		if IsMaintenanceDue(last, schedule.Cadence(st), now) {
			due = append(due, st)
		}
	}
	return due
}
