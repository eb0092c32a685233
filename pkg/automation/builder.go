package automation

import (
	"fmt"
	"strings"
	"time"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

const (
	UnknownEquipment = "Unknown Equipment"
	UnknownLocation  = "Unknown Location"
)

// DeterminePriority derives the stored task priority from the diagnosis alone,
// regardless of which rule fired.
func DeterminePriority(record *models.DiagnosisRecord) models.Priority {
	switch {
	case record.HasCriticalIssues():
		return models.PriorityCritical
	case record.HasSafetyRisks(), record.NeedsReplacement() > 0:
		return models.PriorityHigh
	case record.OverallCondition() == models.ConditionGood:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// ResolveEquipmentType prefers the diagnosed type over the caller's context
func ResolveEquipmentType(record *models.DiagnosisRecord, actx models.AutomationContext) string {
	if t := record.EquipmentType(); t != "" {
		return t
	}
	if actx.EquipmentType != "" {
		return actx.EquipmentType
	}
	return UnknownEquipment
}

// ResolveLocation returns the context location or the unknown placeholder
func ResolveLocation(actx models.AutomationContext) string {
	if actx.Location != "" {
		return actx.Location
	}
	return UnknownLocation
}

// BuildTask materializes the task for a triggered rule. The returned task has no
// ID yet; it is assigned when the task is persisted.
func (c *Catalog) BuildTask(rule Rule, record *models.DiagnosisRecord, actx models.AutomationContext, now time.Time) (*models.Task, error) {
	tmpl, ok := c.Template(rule.Action)
	if !ok {
		return nil, fmt.Errorf("%w %s (rule %s)", ErrMissingTemplate, rule.Action, rule.Name)
	}

	equipment := ResolveEquipmentType(record, actx)
	location := ResolveLocation(actx)
	fill := strings.NewReplacer("{equipment}", equipment, "{location}", location)

	var b strings.Builder
	b.WriteString(fill.Replace(tmpl.Description))
	writeSection(&b, tmpl.DetailLabel, detailLines(tmpl.Detail, record))
	writeSection(&b, "Parts Needed", bullets(record.PartsNeeded()))
	if est := record.EstimatedRepairTime(); est != "" {
		fmt.Fprintf(&b, "\n\nEstimated Time: %s", est)
	}

	task := &models.Task{
		Title:            fill.Replace(tmpl.Title),
		Description:      b.String(),
		Category:         tmpl.Category,
		Priority:         DeterminePriority(record),
		RulePriority:     rule.Priority,
		EstimatedTime:    tmpl.EstimatedTime,
		EquipmentID:      actx.EquipmentID,
		Location:         location,
		Status:           models.TaskStatusPending,
		CreatedAt:        now,
		RuleName:         rule.Name,
		Action:           rule.Action,
		AutoAssigned:     rule.AutoAssign,
		SourcePhotoID:    actx.PhotoID,
		CompletionWindow: rule.CompletionWindow,
	}
	if rule.CompletionWindow > 0 {
		due := now.Add(rule.CompletionWindow)
		task.DueAt = &due
	}

	return task, nil
}

// BuildScheduledTask materializes a time-based maintenance task
func (c *Catalog) BuildScheduledTask(st models.ScheduleType, equipmentType string, actx models.AutomationContext, now time.Time) (*models.Task, error) {
	tmpl, ok := c.ScheduledTemplate(st)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingScheduled, st)
	}
	if equipmentType == "" {
		equipmentType = UnknownEquipment
	}
	fill := strings.NewReplacer("{equipment}", equipmentType, "{location}", ResolveLocation(actx))

	return &models.Task{
		Title:         fill.Replace(tmpl.Title),
		Description:   fill.Replace(tmpl.Description),
		Category:      tmpl.Category,
		Priority:      tmpl.Priority,
		RulePriority:  tmpl.Priority,
		EstimatedTime: tmpl.EstimatedTime,
		EquipmentID:   actx.EquipmentID,
		Location:      ResolveLocation(actx),
		Status:        models.TaskStatusPending,
		CreatedAt:     now,
		IsScheduled:   true,
		ScheduleType:  st,
	}, nil
}

// detailLines itemizes the part of the record selected by the archetype
func detailLines(kind DetailKind, record *models.DiagnosisRecord) []string {
	var lines []string
	switch kind {
	case DetailCriticalIssues:
		for _, issue := range record.Issues() {
			if issue.Severity == models.SeverityCritical {
				lines = append(lines, labelled(issue.Type, issue.Description))
			}
		}
	case DetailSafetyIssues:
		for _, issue := range record.Issues() {
			if issue.SafetyRisk {
				lines = append(lines, labelled(issue.Type, issue.Description))
			}
		}
	case DetailReplacementComponents:
		for _, comp := range record.IdentifiedComponents() {
			if comp.MaintenanceStatus == models.ComponentStatusReplace {
				lines = append(lines, labelled(comp.Name, comp.Notes))
			}
		}
	case DetailRecommendations:
		lines = bullets(record.Recommendations())
	}
	return lines
}

func labelled(name, text string) string {
	if text == "" {
		return "- " + name
	}
	return "- " + name + ": " + text
}

func bullets(items []string) []string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return lines
}

// writeSection appends "\n\n<label>:\n<lines>" when there is anything to list
func writeSection(b *strings.Builder, label string, lines []string) {
	if len(lines) == 0 || label == "" {
		return
	}
	b.WriteString("\n\n")
	b.WriteString(label)
	b.WriteString(":\n")
	b.WriteString(strings.Join(lines, "\n"))
}
