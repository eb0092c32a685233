package automation

import "github.com/mimir-aip/maintenance-automation/pkg/models"

// SelectTechnician picks the first technician of the pool. The pool order is
// whatever the store returns; no load balancing is attempted. An empty pool
// selects nobody.
func SelectTechnician(pool []models.Technician) (models.Technician, bool) {
	if len(pool) == 0 {
		return models.Technician{}, false
	}
	return pool[0], true
}
