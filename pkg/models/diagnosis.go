package models

// Severity is the severity an inspection assigns to a single damage finding
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// ComponentStatus is the maintenance verdict for an identified component
type ComponentStatus string

const (
	ComponentStatusReplace ComponentStatus = "replace"
	ComponentStatusMonitor ComponentStatus = "monitor"
	ComponentStatusOK      ComponentStatus = "ok"
)

// Condition is the overall condition grade of a piece of equipment
type Condition string

const (
	ConditionExcellent Condition = "Excellent"
	ConditionGood      Condition = "Good"
	ConditionFair      Condition = "Fair"
	ConditionPoor      Condition = "Poor"
)

// AssessedPriority is the urgency the diagnosis itself proposes.
// It uses "Normal" where task priorities use "Medium".
type AssessedPriority string

const (
	AssessedPriorityCritical AssessedPriority = "Critical"
	AssessedPriorityHigh     AssessedPriority = "High"
	AssessedPriorityNormal   AssessedPriority = "Normal"
	AssessedPriorityLow      AssessedPriority = "Low"
)

// DiagnosisRecord is the structured equipment-condition assessment consumed by the
// automation engine. Every section and field is optional: a missing section reads as
// its zero value through the accessor methods, which are safe to call on a nil record.
// JSON keys follow the camelCase shape produced by the vision pipeline.
type DiagnosisRecord struct {
	Equipment  *EquipmentIdentity `json:"equipment,omitempty"`
	Damages    *DamageReport      `json:"damages,omitempty"`
	Components *ComponentReport   `json:"components,omitempty"`
	Assessment *Assessment        `json:"assessment,omitempty"`
}

// EquipmentIdentity identifies the photographed equipment
type EquipmentIdentity struct {
	Type       string   `json:"type,omitempty"`
	Brand      string   `json:"brand,omitempty"`
	Model      string   `json:"model,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// DamageReport summarizes visible damage
type DamageReport struct {
	HasCriticalIssues bool    `json:"hasCriticalIssues,omitempty"`
	HasSafetyRisks    bool    `json:"hasSafetyRisks,omitempty"`
	TotalIssues       int     `json:"totalIssues,omitempty"`
	Issues            []Issue `json:"issues,omitempty"`
}

// Issue is a single damage finding
type Issue struct {
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Severity    Severity `json:"severity,omitempty"`
	SafetyRisk  bool     `json:"safetyRisk,omitempty"`
	Location    string   `json:"location,omitempty"`
}

// ComponentReport lists identified components and how many need work
type ComponentReport struct {
	NeedsReplacement int         `json:"needsReplacement,omitempty"`
	NeedsAttention   int         `json:"needsAttention,omitempty"`
	Identified       []Component `json:"identified,omitempty"`
}

// Component is a single identified component
type Component struct {
	Name              string          `json:"name,omitempty"`
	Function          string          `json:"function,omitempty"`
	Condition         string          `json:"condition,omitempty"`
	MaintenanceStatus ComponentStatus `json:"maintenanceStatus,omitempty"`
	Notes             string          `json:"notes,omitempty"`
}

// Assessment is the overall verdict of the diagnosis
type Assessment struct {
	OverallCondition           Condition        `json:"overallCondition,omitempty"`
	Priority                   AssessedPriority `json:"priority,omitempty"`
	EstimatedRepairTime        string           `json:"estimatedRepairTime,omitempty"`
	PartsNeeded                []string         `json:"partsNeeded,omitempty"`
	MaintenanceRecommendations []string         `json:"maintenanceRecommendations,omitempty"`
}

// EquipmentType returns the diagnosed equipment type, or "" when unknown
func (r *DiagnosisRecord) EquipmentType() string {
	if r == nil || r.Equipment == nil {
		return ""
	}
	return r.Equipment.Type
}

// HasCriticalIssues reports damages.hasCriticalIssues
func (r *DiagnosisRecord) HasCriticalIssues() bool {
	return r != nil && r.Damages != nil && r.Damages.HasCriticalIssues
}

// HasSafetyRisks reports damages.hasSafetyRisks
func (r *DiagnosisRecord) HasSafetyRisks() bool {
	return r != nil && r.Damages != nil && r.Damages.HasSafetyRisks
}

// TotalIssues returns damages.totalIssues
func (r *DiagnosisRecord) TotalIssues() int {
	if r == nil || r.Damages == nil {
		return 0
	}
	return r.Damages.TotalIssues
}

// Issues returns damages.issues
func (r *DiagnosisRecord) Issues() []Issue {
	if r == nil || r.Damages == nil {
		return nil
	}
	return r.Damages.Issues
}

// NeedsReplacement returns components.needsReplacement
func (r *DiagnosisRecord) NeedsReplacement() int {
	if r == nil || r.Components == nil {
		return 0
	}
	return r.Components.NeedsReplacement
}

// NeedsAttention returns components.needsAttention
func (r *DiagnosisRecord) NeedsAttention() int {
	if r == nil || r.Components == nil {
		return 0
	}
	return r.Components.NeedsAttention
}

// IdentifiedComponents returns components.identified
func (r *DiagnosisRecord) IdentifiedComponents() []Component {
	if r == nil || r.Components == nil {
		return nil
	}
	return r.Components.Identified
}

// OverallCondition returns assessment.overallCondition
func (r *DiagnosisRecord) OverallCondition() Condition {
	if r == nil || r.Assessment == nil {
		return ""
	}
	return r.Assessment.OverallCondition
}

// AssessedPriority returns assessment.priority
func (r *DiagnosisRecord) AssessedPriority() AssessedPriority {
	if r == nil || r.Assessment == nil {
		return ""
	}
	return r.Assessment.Priority
}

// EstimatedRepairTime returns assessment.estimatedRepairTime
func (r *DiagnosisRecord) EstimatedRepairTime() string {
	if r == nil || r.Assessment == nil {
		return ""
	}
	return r.Assessment.EstimatedRepairTime
}

// PartsNeeded returns assessment.partsNeeded
func (r *DiagnosisRecord) PartsNeeded() []string {
	if r == nil || r.Assessment == nil {
		return nil
	}
	return r.Assessment.PartsNeeded
}

// Recommendations returns assessment.maintenanceRecommendations
func (r *DiagnosisRecord) Recommendations() []string {
	if r == nil || r.Assessment == nil {
		return nil
	}
	return r.Assessment.MaintenanceRecommendations
}
