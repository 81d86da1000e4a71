package audit

import (
	"strings"
	"testing"
)

func text(n int) string {
	return strings.Repeat("a", n)
}

func ruleByID(t *testing.T, id string) rule {
	t.Helper()
	for _, r := range rules {
		if r.id == id {
			return r
		}
	}
	t.Fatalf("rule %q not found", id)
	return rule{}
}

func TestProductRules(t *testing.T) {
	t.Run("MetaTitleFallsBackToTitle", func(t *testing.T) {
		r := ruleByID(t, "products-meta-title")

		rs := ResourceSet{Products: []Product{
			{Title: "Blue Mug"},                   // fallback title present, no violation
			{MetaTitle: "Blue Mug | Store"},       // meta title present
			{},                                    // neither
			{Title: "", MetaTitle: ""},            // empty strings count as missing
		}}
		if got := r.violations(rs); got != 2 {
			t.Errorf("expected 2 violations, got %d", got)
		}
	})

	t.Run("MetaDescription", func(t *testing.T) {
		r := ruleByID(t, "products-meta-description")

		rs := ResourceSet{Products: []Product{
			{MetaDescription: "Hand thrown stoneware mug."},
			{MetaDescription: ""},
			{},
		}}
		if got := r.violations(rs); got != 2 {
			t.Errorf("expected 2 violations, got %d", got)
		}
	})

	t.Run("ShortDescriptionRequiresPresence", func(t *testing.T) {
		r := ruleByID(t, "products-short-description")

		rs := ResourceSet{Products: []Product{
			{Description: ""},         // absent: not a short-description violation
			{Description: text(99)},   // strictly under threshold
			{Description: text(100)},  // exactly at threshold, fine
			{Description: text(500)},
		}}
		if got := r.violations(rs); got != 1 {
			t.Errorf("expected 1 violation, got %d", got)
		}
	})

	t.Run("AltTextCountsPerImage", func(t *testing.T) {
		r := ruleByID(t, "products-alt-text")

		rs := ResourceSet{Products: []Product{
			{
				FeaturedImage: &Image{URL: "a.jpg"},
				Images: []Image{
					{URL: "b.jpg", AltText: "side view"},
					{URL: "c.jpg"},
					{URL: "d.jpg"},
				},
			},
			{Images: []Image{{URL: "e.jpg", AltText: "detail"}}},
		}}
		// featured + two gallery images on the first product.
		if got := r.violations(rs); got != 3 {
			t.Errorf("expected 3 violations, got %d", got)
		}
	})
}

func TestCollectionRules(t *testing.T) {
	rs := ResourceSet{Collections: []Collection{
		{MetaTitle: "Mugs", MetaDescription: "All our mugs.", Description: text(50)},
		{Description: text(49)},
		{},
	}}

	if got := ruleByID(t, "collections-meta-title").violations(rs); got != 2 {
		t.Errorf("meta title: expected 2 violations, got %d", got)
	}
	if got := ruleByID(t, "collections-meta-description").violations(rs); got != 2 {
		t.Errorf("meta description: expected 2 violations, got %d", got)
	}
	// Absent and short descriptions violate alike; length 50 does not.
	if got := ruleByID(t, "collections-description").violations(rs); got != 2 {
		t.Errorf("description: expected 2 violations, got %d", got)
	}
}

func TestPageContentRule(t *testing.T) {
	r := ruleByID(t, "pages-content")

	rs := ResourceSet{Pages: []Page{
		{Body: ""},
		{Body: text(99)},
		{Body: text(100)},
	}}
	if got := r.violations(rs); got != 2 {
		t.Errorf("expected 2 violations, got %d", got)
	}
}

func TestArticleRules(t *testing.T) {
	rs := ResourceSet{Articles: []Article{
		{MetaTitle: "t", MetaDescription: "d", Content: text(500)},
		{Content: text(499)},
		{Content: ""}, // absent content is not a short-content violation
	}}

	if got := ruleByID(t, "articles-meta-title").violations(rs); got != 2 {
		t.Errorf("meta title: expected 2 violations, got %d", got)
	}
	if got := ruleByID(t, "articles-meta-description").violations(rs); got != 2 {
		t.Errorf("meta description: expected 2 violations, got %d", got)
	}
	if got := ruleByID(t, "articles-short-content").violations(rs); got != 1 {
		t.Errorf("short content: expected 1 violation, got %d", got)
	}
}

func TestRulesApplyOnlyToTheirResourceType(t *testing.T) {
	// A store with only badly broken pages must not trip any product,
	// collection, or article rule.
	rs := ResourceSet{Pages: []Page{{Body: ""}, {Body: "x"}}}

	for _, r := range rules {
		if r.resource == ResourcePage {
			continue
		}
		if got := r.violations(rs); got != 0 {
			t.Errorf("rule %s: expected 0 violations for page-only set, got %d", r.id, got)
		}
	}
}

func TestRuleTableIntegrity(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range rules {
		if seen[r.id] {
			t.Errorf("duplicate rule id %s", r.id)
		}
		seen[r.id] = true
		if r.title == "" || r.description == "" {
			t.Errorf("rule %s: missing title or description", r.id)
		}
		if r.issueType != IssueCritical && r.issueType != IssueWarning {
			t.Errorf("rule %s: unexpected issue type %s", r.id, r.issueType)
		}
	}

	for _, s := range successRules {
		if !seen[s.linkedRule] {
			t.Errorf("success rule %s links to unknown rule %s", s.id, s.linkedRule)
		}
	}
}
