package automation

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

var (
	ErrMissingTemplate  = errors.New("no template for action")
	ErrUnknownCadence   = errors.New("unknown maintenance cadence")
	ErrInvalidPriority  = errors.New("invalid priority")
	ErrMissingScheduled = errors.New("no scheduled template for schedule type")
)

// DetailKind selects which part of a diagnosis is itemized in a task description
type DetailKind string

const (
	DetailCriticalIssues        DetailKind = "critical_issues"
	DetailSafetyIssues          DetailKind = "safety_issues"
	DetailReplacementComponents DetailKind = "replacement_components"
	DetailRecommendations       DetailKind = "recommendations"
)

// TaskTemplate is the archetype a rule action materializes. Title and Description
// may reference {equipment} and {location}.
type TaskTemplate struct {
	Title         string              `yaml:"title"`
	Description   string              `yaml:"description"`
	Category      models.TaskCategory `yaml:"category"`
	EstimatedTime string              `yaml:"estimated_time"`
	Detail        DetailKind          `yaml:"detail"`
	DetailLabel   string              `yaml:"detail_label"`
}

// ScheduledTemplate is the archetype for time-based maintenance tasks
type ScheduledTemplate struct {
	Title         string              `yaml:"title"`
	Description   string              `yaml:"description"`
	Category      models.TaskCategory `yaml:"category"`
	Priority      models.Priority     `yaml:"priority"`
	EstimatedTime string              `yaml:"estimated_time"`
}

// Catalog holds the immutable lookup tables used by the engine: task archetypes
// keyed by action, scheduled-task templates keyed by schedule type, and
// maintenance schedules keyed by equipment type.
type Catalog struct {
	templates          map[models.TaskAction]TaskTemplate
	scheduledTemplates map[models.ScheduleType]ScheduledTemplate
	schedules          map[string]models.MaintenanceSchedule
}

// NewCatalog copies the given tables into a validated catalog
func NewCatalog(
	templates map[models.TaskAction]TaskTemplate,
	scheduledTemplates map[models.ScheduleType]ScheduledTemplate,
	schedules map[string]models.MaintenanceSchedule,
) (*Catalog, error) {
	c := &Catalog{
		templates:          make(map[models.TaskAction]TaskTemplate, len(templates)),
		scheduledTemplates: make(map[models.ScheduleType]ScheduledTemplate, len(scheduledTemplates)),
		schedules:          make(map[string]models.MaintenanceSchedule, len(schedules)),
	}
	for k, v := range templates {
		c.templates[k] = v
	}
	for k, v := range scheduledTemplates {
		c.scheduledTemplates[k] = v
	}
	for k, v := range schedules {
		c.schedules[k] = v
	}

	for _, st := range []models.ScheduleType{models.ScheduleTypeRoutine, models.ScheduleTypePreventive} {
		tmpl, ok := c.scheduledTemplates[st]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingScheduled, st)
		}
		if !tmpl.Priority.Valid() {
			return nil, fmt.Errorf("%w for %s scheduled template: %q", ErrInvalidPriority, st, tmpl.Priority)
		}
	}
	for equipmentType, schedule := range c.schedules {
		for _, cadence := range []models.Cadence{schedule.Routine, schedule.Preventive, schedule.Inspection} {
			if cadence == "" {
				continue
			}
			if _, ok := cadence.ThresholdDays(); !ok {
				return nil, fmt.Errorf("%w %q for %s", ErrUnknownCadence, cadence, equipmentType)
			}
		}
	}

	return c, nil
}

// DefaultCatalog returns the built-in archetypes and schedules
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		map[models.TaskAction]TaskTemplate{
			models.ActionCreateUrgentTask: {
				Title:         "URGENT: Critical Issue - {equipment}",
				Description:   "Critical issue detected on {equipment} at {location}. Immediate attention required.",
				Category:      models.TaskCategoryEmergency,
				EstimatedTime: "4 hours",
				Detail:        DetailCriticalIssues,
				DetailLabel:   "Critical Issues",
			},
			models.ActionCreateSafetyTask: {
				Title:         "SAFETY: Safety Risk - {equipment}",
				Description:   "Safety risk detected on {equipment} at {location}. Safety inspection required.",
				Category:      models.TaskCategorySafety,
				EstimatedTime: "2 hours",
				Detail:        DetailSafetyIssues,
				DetailLabel:   "Safety Issues",
			},
			models.ActionCreateReplacementTask: {
				Title:         "REPLACEMENT: Component Replacement - {equipment}",
				Description:   "Component replacement needed on {equipment} at {location}.",
				Category:      models.TaskCategoryRepair,
				EstimatedTime: "6 hours",
				Detail:        DetailReplacementComponents,
				DetailLabel:   "Components to Replace",
			},
			models.ActionCreateMaintenanceTask: {
				Title:         "MAINTENANCE: Routine Maintenance - {equipment}",
				Description:   "Routine maintenance needed on {equipment} at {location}.",
				Category:      models.TaskCategoryMaintenance,
				EstimatedTime: "1 hour",
				Detail:        DetailRecommendations,
				DetailLabel:   "Recommendations",
			},
			models.ActionCreatePreventiveTask: {
				Title:         "PREVENTIVE: Preventive Maintenance - {equipment}",
				Description:   "Preventive maintenance recommended for {equipment} at {location}.",
				Category:      models.TaskCategoryPreventive,
				EstimatedTime: "30 minutes",
				Detail:        DetailRecommendations,
				DetailLabel:   "Recommendations",
			},
		},
		map[models.ScheduleType]ScheduledTemplate{
			models.ScheduleTypeRoutine: {
				Title:         "SCHEDULED: Routine Maintenance - {equipment}",
				Description:   "Scheduled routine maintenance for {equipment}",
				Category:      models.TaskCategoryScheduled,
				Priority:      models.PriorityMedium,
				EstimatedTime: "1 hour",
			},
			models.ScheduleTypePreventive: {
				Title:         "SCHEDULED: Preventive Maintenance - {equipment}",
				Description:   "Scheduled preventive maintenance for {equipment}",
				Category:      models.TaskCategoryScheduled,
				Priority:      models.PriorityLow,
				EstimatedTime: "30 minutes",
			},
		},
		map[string]models.MaintenanceSchedule{
			"Treadmill":      {Routine: models.CadenceWeekly, Preventive: models.CadenceMonthly, Inspection: models.CadenceDaily},
			"Elliptical":     {Routine: models.CadenceWeekly, Preventive: models.CadenceMonthly, Inspection: models.CadenceDaily},
			"Weight Machine": {Routine: models.CadenceBiWeekly, Preventive: models.CadenceMonthly, Inspection: models.CadenceWeekly},
			"Exercise Bike":  {Routine: models.CadenceWeekly, Preventive: models.CadenceMonthly, Inspection: models.CadenceDaily},
		},
	)
	if err != nil {
		panic(fmt.Sprintf("invalid default catalog: %v", err))
	}
	return c
}

// Template returns the archetype for an action
func (c *Catalog) Template(action models.TaskAction) (TaskTemplate, bool) {
	t, ok := c.templates[action]
	return t, ok
}

// ScheduledTemplate returns the template for a schedule type
func (c *Catalog) ScheduledTemplate(st models.ScheduleType) (ScheduledTemplate, bool) {
	t, ok := c.scheduledTemplates[st]
	return t, ok
}

// Schedule returns the maintenance schedule for an equipment type
func (c *Catalog) Schedule(equipmentType string) (models.MaintenanceSchedule, bool) {
	s, ok := c.schedules[equipmentType]
	return s, ok
}

// EquipmentTypes returns the number of equipment types with a schedule
func (c *Catalog) EquipmentTypes() int {
	return len(c.schedules)
}

// CheckRules verifies that every rule's action has an archetype
func (c *Catalog) CheckRules(rules *RuleSet) error {
	for _, rule := range rules.rules {
		if _, ok := c.templates[rule.Action]; !ok {
			return fmt.Errorf("%w %s (rule %s)", ErrMissingTemplate, rule.Action, rule.Name)
		}
	}
	return nil
}

// CatalogFile is the YAML overlay for the built-in catalog and rule settings
type CatalogFile struct {
	Templates          map[models.TaskAction]TaskTemplate        `yaml:"templates"`
	ScheduledTemplates map[models.ScheduleType]ScheduledTemplate `yaml:"scheduled_templates"`
	Schedules          map[string]models.MaintenanceSchedule     `yaml:"schedules"`
	Rules              map[string]RuleOverride                   `yaml:"rules"`
}

// LoadCatalogFile reads a YAML catalog overlay from disk
func LoadCatalogFile(path string) (*CatalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalogFile(data)
}

// ParseCatalogFile parses a YAML catalog overlay
func ParseCatalogFile(data []byte) (*CatalogFile, error) {
	var f CatalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	return &f, nil
}

// Apply overlays the file onto a base catalog and rule set and returns new ones.
// Template fields left empty in the file keep their base values.
func (f *CatalogFile) Apply(base *Catalog, rules *RuleSet) (*Catalog, *RuleSet, error) {
	templates := make(map[models.TaskAction]TaskTemplate, len(base.templates))
	for k, v := range base.templates {
		templates[k] = v
	}
	for action, o := range f.Templates {
		templates[action] = mergeTemplate(templates[action], o)
	}

	scheduled := make(map[models.ScheduleType]ScheduledTemplate, len(base.scheduledTemplates))
	for k, v := range base.scheduledTemplates {
		scheduled[k] = v
	}
	for st, o := range f.ScheduledTemplates {
		scheduled[st] = mergeScheduledTemplate(scheduled[st], o)
	}

	schedules := make(map[string]models.MaintenanceSchedule, len(base.schedules)+len(f.Schedules))
	for k, v := range base.schedules {
		schedules[k] = v
	}
	for equipmentType, s := range f.Schedules {
		schedules[equipmentType] = s
	}

	catalog, err := NewCatalog(templates, scheduled, schedules)
	if err != nil {
		return nil, nil, err
	}

	ruleSet := rules
	if len(f.Rules) > 0 {
		ruleSet, err = rules.WithOverrides(f.Rules)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := catalog.CheckRules(ruleSet); err != nil {
		return nil, nil, err
	}

	return catalog, ruleSet, nil
}

func mergeTemplate(base, o TaskTemplate) TaskTemplate {
	if o.Title != "" {
		base.Title = o.Title
	}
	if o.Description != "" {
		base.Description = o.Description
	}
	if o.Category != "" {
		base.Category = o.Category
	}
	if o.EstimatedTime != "" {
		base.EstimatedTime = o.EstimatedTime
	}
	if o.Detail != "" {
		base.Detail = o.Detail
	}
	if o.DetailLabel != "" {
		base.DetailLabel = o.DetailLabel
	}
	return base
}

func mergeScheduledTemplate(base, o ScheduledTemplate) ScheduledTemplate {
	if o.Title != "" {
		base.Title = o.Title
	}
	if o.Description != "" {
		base.Description = o.Description
	}
	if o.Category != "" {
		base.Category = o.Category
	}
	if o.Priority != "" {
		base.Priority = o.Priority
	}
	if o.EstimatedTime != "" {
		base.EstimatedTime = o.EstimatedTime
	}
	return base
}
