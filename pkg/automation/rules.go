package automation

import (
	"fmt"
	"log"
	"time"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// Rule names of the baseline rule set, in evaluation order
const (
	RuleCriticalIssues        = "criticalIssues"
	RuleSafetyRisks           = "safetyRisks"
	RuleComponentReplacement  = "componentReplacement"
	RuleRoutineMaintenance    = "routineMaintenance"
	RulePreventiveMaintenance = "preventiveMaintenance"
)

// Condition decides whether a rule fires for a diagnosis. Conditions must be pure
// and must tolerate a record with any section missing.
type Condition func(record *models.DiagnosisRecord) bool

// Rule maps a condition over a diagnosis to a task archetype
type Rule struct {
	Name             string
	Condition        Condition
	Action           models.TaskAction
	Priority         models.Priority
	CompletionWindow time.Duration
	AutoAssign       bool
}

// RuleSet is an immutable, ordered collection of rules. Rules are evaluated in
// declaration order and independently of each other.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet validates and freezes a list of rules
func NewRuleSet(rules ...Rule) (*RuleSet, error) {
	seen := make(map[string]bool, len(rules))
	for _, rule := range rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("rule name is required")
		}
		if seen[rule.Name] {
			return nil, fmt.Errorf("duplicate rule name: %s", rule.Name)
		}
		seen[rule.Name] = true

		if rule.Condition == nil {
			return nil, fmt.Errorf("rule %s has no condition", rule.Name)
		}
		if rule.Action == "" {
			return nil, fmt.Errorf("rule %s has no action", rule.Name)
		}
		if !rule.Priority.Valid() {
			return nil, fmt.Errorf("rule %s has invalid priority: %q", rule.Name, rule.Priority)
		}
		if rule.CompletionWindow < 0 {
			return nil, fmt.Errorf("rule %s has negative completion window", rule.Name)
		}
	}

	frozen := make([]Rule, len(rules))
	copy(frozen, rules)
	return &RuleSet{rules: frozen}, nil
}

// DefaultRules returns the baseline rule set
func DefaultRules() *RuleSet {
	rs, err := NewRuleSet(
		Rule{
			Name: RuleCriticalIssues,
			Condition: func(r *models.DiagnosisRecord) bool {
				return r.HasCriticalIssues() || r.AssessedPriority() == models.AssessedPriorityCritical
			},
			Action:           models.ActionCreateUrgentTask,
			Priority:         models.PriorityCritical,
			CompletionWindow: 4 * time.Hour,
			AutoAssign:       true,
		},
		Rule{
			Name: RuleSafetyRisks,
			Condition: func(r *models.DiagnosisRecord) bool {
				return r.HasSafetyRisks() || r.OverallCondition() == models.ConditionPoor
			},
			Action:           models.ActionCreateSafetyTask,
			Priority:         models.PriorityHigh,
			CompletionWindow: 2 * time.Hour,
			AutoAssign:       true,
		},
		Rule{
			Name: RuleComponentReplacement,
			Condition: func(r *models.DiagnosisRecord) bool {
				return r.NeedsReplacement() > 0
			},
			Action:           models.ActionCreateReplacementTask,
			Priority:         models.PriorityHigh,
			CompletionWindow: 6 * time.Hour,
		},
		Rule{
			Name: RuleRoutineMaintenance,
			Condition: func(r *models.DiagnosisRecord) bool {
				return r.OverallCondition() == models.ConditionGood && r.TotalIssues() > 0
			},
			Action:           models.ActionCreateMaintenanceTask,
			Priority:         models.PriorityMedium,
			CompletionWindow: time.Hour,
		},
		Rule{
			Name: RulePreventiveMaintenance,
			Condition: func(r *models.DiagnosisRecord) bool {
				return r.OverallCondition() == models.ConditionExcellent && r.NeedsAttention() > 0
			},
			Action:           models.ActionCreatePreventiveTask,
			Priority:         models.PriorityLow,
			CompletionWindow: 30 * time.Minute,
		},
	)
	if err != nil {
		panic(fmt.Sprintf("invalid default rule set: %v", err))
	}
	return rs
}

// Rules returns a copy of the rules in evaluation order
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Get returns the rule with the given name
func (rs *RuleSet) Get(name string) (Rule, bool) {
	for _, rule := range rs.rules {
		if rule.Name == name {
			return rule, true
		}
	}
	return Rule{}, false
}

// Len returns the number of rules
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Evaluate returns every rule whose condition holds for the record, in declaration
// order. A condition that panics is treated as not matching.
func (rs *RuleSet) Evaluate(record *models.DiagnosisRecord) []Rule {
	var matched []Rule
	for _, rule := range rs.rules {
		if matches(rule, record) {
			matched = append(matched, rule)
		}
	}
	return matched
}

func matches(rule Rule, record *models.DiagnosisRecord) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Rule %s condition panicked, treating as not triggered: %v", rule.Name, r)
			ok = false
		}
	}()
	return rule.Condition(record)
}

// RuleOverride adjusts the configuration of a named rule. Conditions cannot be overridden.
type RuleOverride struct {
	Priority         models.Priority `yaml:"priority,omitempty"`
	CompletionWindow string          `yaml:"completion_window,omitempty"`
	AutoAssign       *bool           `yaml:"auto_assign,omitempty"`
	Disabled         bool            `yaml:"disabled,omitempty"`
}

// WithOverrides returns a new rule set with the overrides applied. Disabled rules
// are dropped; the relative order of the remaining rules is preserved.
func (rs *RuleSet) WithOverrides(overrides map[string]RuleOverride) (*RuleSet, error) {
	for name := range overrides {
		if _, ok := rs.Get(name); !ok {
			return nil, fmt.Errorf("override for unknown rule: %s", name)
		}
	}

	rules := make([]Rule, 0, len(rs.rules))
	for _, rule := range rs.rules {
		o, ok := overrides[rule.Name]
		if !ok {
			rules = append(rules, rule)
			continue
		}
		if o.Disabled {
			continue
		}
		if o.Priority != "" {
			rule.Priority = o.Priority
		}
		if o.CompletionWindow != "" {
			window, err := time.ParseDuration(o.CompletionWindow)
			if err != nil {
				return nil, fmt.Errorf("invalid completion window for rule %s: %w", rule.Name, err)
			}
			rule.CompletionWindow = window
		}
		if o.AutoAssign != nil {
			rule.AutoAssign = *o.AutoAssign
		}
		rules = append(rules, rule)
	}

	return NewRuleSet(rules...)
}
