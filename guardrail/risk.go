package guardrail

import (
	"regexp"
	"strings"
	"sync"
)

// RiskLevel classifies the severity of a tool call.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskPolicy configures the scoring inputs for the risk-assessment
// stage.
type RiskPolicy struct {
	HighRiskTools        map[string]bool
	CriticalRiskTools    map[string]bool
	HighRiskPatterns     []*regexp.Regexp
	CriticalRiskPatterns []*regexp.Regexp
	HighRiskKeywords     []string
	CriticalRiskKeywords []string
	SensitiveParamNames  []string
	DestructiveKeywords  []string
	ProductionReferences []string
	RepeatWindow         int // how many recent calls to inspect; default 10
	RepeatThreshold      int // minimum repeats before scoring; default 3
}

// RiskAssessment is the scored outcome of the risk stage.
type RiskAssessment struct {
	Score   int
	Level   RiskLevel
	Reasons []string
}

func classify(score int) RiskLevel {
	switch {
	case score >= 100:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 20:
		return RiskMedium
	default:
		return RiskLow
	}
}

// riskAssessor keeps a bounded call-history ring so it can score the
// "repeated tool" pattern component without the caller threading history
// through every call.
type riskAssessor struct {
	mu      sync.Mutex
	policy  RiskPolicy
	history []string // tool names, most recent last
	cap     int
}

func newRiskAssessor(policy RiskPolicy) *riskAssessor {
	if policy.RepeatWindow <= 0 {
		policy.RepeatWindow = 10
	}
	if policy.RepeatThreshold <= 0 {
		policy.RepeatThreshold = 3
	}
	return &riskAssessor{policy: policy, cap: 100}
}

// Assess scores call and records it into the call-history ring.
func (r *riskAssessor) Assess(call ToolCall) RiskAssessment {
	r.mu.Lock()
	defer r.mu.Unlock()

	score := 0
	var reasons []string
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	if r.policy.CriticalRiskTools[call.ToolName] {
		add(100, "tool is in critical_risk_tools")
	} else if r.policy.HighRiskTools[call.ToolName] {
		add(50, "tool is in high_risk_tools")
	}

	for _, pat := range r.policy.CriticalRiskPatterns {
		if pat.MatchString(call.ToolName) {
			add(80, "tool name matches a critical-risk pattern")
			break
		}
	}
	for _, pat := range r.policy.HighRiskPatterns {
		if pat.MatchString(call.ToolName) {
			add(40, "tool name matches a high-risk pattern")
			break
		}
	}
	for _, kw := range r.policy.CriticalRiskKeywords {
		if strings.Contains(strings.ToLower(call.ToolName), strings.ToLower(kw)) {
			add(80, "tool name contains a critical-risk keyword")
			break
		}
	}
	for _, kw := range r.policy.HighRiskKeywords {
		if strings.Contains(strings.ToLower(call.ToolName), strings.ToLower(kw)) {
			add(40, "tool name contains a high-risk keyword")
			break
		}
	}

	for name := range call.Input {
		for _, sensitive := range r.policy.SensitiveParamNames {
			if strings.EqualFold(name, sensitive) {
				add(30, "parameter name is sensitive: "+name)
				break
			}
		}
	}
	for _, v := range call.Input {
		s, ok := v.(string)
		if !ok {
			continue
		}
		lower := strings.ToLower(s)
		for _, kw := range r.policy.DestructiveKeywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				add(25, "parameter value contains a destructive keyword: "+kw)
				break
			}
		}
		for _, ref := range r.policy.ProductionReferences {
			if strings.Contains(lower, strings.ToLower(ref)) {
				add(35, "parameter value references production: "+ref)
				break
			}
		}
	}

	switch call.Environment {
	case "production":
		add(30, "environment is production")
	case "staging":
		add(15, "environment is staging")
	}

	repeats := r.countRecent(call.ToolName)
	if repeats >= r.policy.RepeatThreshold {
		add(10*repeats, "tool has been called repeatedly in recent history")
	}

	r.record(call.ToolName)

	return RiskAssessment{Score: score, Level: classify(score), Reasons: reasons}
}

func (r *riskAssessor) countRecent(tool string) int {
	window := r.policy.RepeatWindow
	start := 0
	if len(r.history) > window {
		start = len(r.history) - window
	}
	count := 0
	for _, t := range r.history[start:] {
		if t == tool {
			count++
		}
	}
	return count
}

func (r *riskAssessor) record(tool string) {
	r.history = append(r.history, tool)
	if len(r.history) > r.cap {
		r.history = r.history[len(r.history)-r.cap:]
	}
}
