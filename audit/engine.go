// Package audit scores a store's crawled content against a fixed battery of
// SEO rules. Analyze is a pure function: no I/O, no clock, no shared state,
// so repeated runs over the same resource set return identical results.
package audit

import "math"

// Constant sub-score used while no real performance signal is measured.
// Kept as a stub until a performance audit integration replaces it.
const performanceScoreStub = 80

// Score deductions per issue record and per missing alt text.
const (
	criticalPenalty = 15
	warningPenalty  = 5
	altTextPenalty  = 2
)

// Analyze runs the full rule battery over a materialized resource set and
// returns the scored result. Callers must not invoke it with a partially
// fetched set; a failed fetch fails the whole run upstream.
func Analyze(rs ResourceSet) Result {
	counts := make(map[string]int, len(rules))
	issues := make([]Issue, 0, len(rules)+len(successRules))

	for _, r := range rules {
		n := r.violations(rs)
		counts[r.id] = n
		if n == 0 {
			continue
		}
		issues = append(issues, Issue{
			ID:            r.id,
			Type:          r.issueType,
			Category:      r.category,
			Title:         r.title,
			Description:   r.description,
			AffectedPages: n,
			ResourceType:  r.resource,
			Fixable:       true,
		})
	}

	for _, s := range successRules {
		if counts[s.linkedRule] != 0 || !s.guard(rs) {
			continue
		}
		issues = append(issues, Issue{
			ID:           s.id,
			Type:         IssueSuccess,
			Category:     s.category,
			Title:        s.title,
			Description:  s.description,
			ResourceType: s.resource,
		})
	}

	var critical, warnings, good int
	for _, issue := range issues {
		switch issue.Type {
		case IssueCritical:
			critical++
		case IssueWarning:
			warnings++
		case IssueSuccess:
			good++
		}
	}

	// The critical/warning pool is global across categories, so an
	// accessibility-tagged warning penalizes contentScore as well as
	// accessibilityScore. Inherited behavior, preserved as is.
	contentScore := clampScore(100 - criticalPenalty*critical - warningPenalty*warnings)
	accessibilityScore := clampScore(100 - altTextPenalty*counts["products-alt-text"])
	performanceScore := performanceScoreStub
	overall := clampScore(int(math.Round(
		float64(contentScore+accessibilityScore+performanceScore) / 3.0)))

	return Result{
		OverallScore:       overall,
		ContentScore:       contentScore,
		PerformanceScore:   performanceScore,
		AccessibilityScore: accessibilityScore,
		CriticalIssues:     critical,
		Improvements:       warnings,
		GoodResults:        good,
		Issues:             issues,
		CrawledPages:       rs.TotalResources(),
	}
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
