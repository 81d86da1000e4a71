package audit

// Content-length thresholds, in characters of the raw field value. All
// comparisons are strict less-than. No HTML stripping or trimming is
// applied before measuring.
const (
	minProductDescriptionLen    = 100
	minCollectionDescriptionLen = 50
	minPageContentLen           = 100
	minArticleContentLen        = 500
)

// rule is one entry of the fixed rule battery. violations returns the number
// of violations found in the set; most rules count resources, but
// products-alt-text counts individual images. A zero count produces no
// issue.
type rule struct {
	id          string
	issueType   IssueType
	category    Category
	resource    ResourceType
	title       string
	description string
	violations  func(rs ResourceSet) int
}

// successRule emits a positive-signal issue when its linked rule found no
// violations and the guard holds. Only product rules have a positive
// counterpart; the asymmetry is inherited from the rule set.
type successRule struct {
	id          string
	linkedRule  string
	category    Category
	resource    ResourceType
	title       string
	description string
	guard       func(rs ResourceSet) bool
}

// rules is evaluated top to bottom; issue output preserves this order.
var rules = []rule{
	{
		id:          "products-meta-title",
		issueType:   IssueCritical,
		category:    CategoryContent,
		resource:    ResourceProduct,
		title:       "Products missing meta titles",
		description: "Products without a meta title fall back to generic listings in search results. Write a unique meta title for each product.",
		violations: func(rs ResourceSet) int {
			return countViolations(rs.Products, func(p Product) int {
				if p.MetaTitle == "" && p.Title == "" {
					return 1
				}
				return 0
			})
		},
	},
	{
		id:          "products-meta-description",
		issueType:   IssueCritical,
		category:    CategoryContent,
		resource:    ResourceProduct,
		title:       "Products missing meta descriptions",
		description: "Products without a meta description lose control of their search snippet. Add a meta description summarizing each product.",
		violations: func(rs ResourceSet) int {
			return countViolations(rs.Products, func(p Product) int {
				if p.MetaDescription == "" {
					return 1
				}
				return 0
			})
		},
	},
	{
		id:          "products-alt-text",
		issueType:   IssueWarning,
		category:    CategoryAccessibility,
		resource:    ResourceProduct,
		title:       "Product images missing alt text",
		description: "Images without alt text are invisible to screen readers and image search. Describe each product image in its alt attribute.",
		violations: func(rs ResourceSet) int {
			return countViolations(rs.Products, missingAltTexts)
		},
	},
	{
		id:          "products-short-description",
		issueType:   IssueWarning,
		category:    CategoryContent,
		resource:    ResourceProduct,
		title:       "Products with thin descriptions",
		description: "Product descriptions under 100 characters give search engines little to index. Expand them with details shoppers search for.",
		violations: func(rs ResourceSet) int {
			return countViolations(rs.Products, func(p Product) int {
				if len(p.Description) > 0 && len(p.Description) < minProductDescriptionLen {
					return 1
				}
				return 0
			})
		},
	},
	{
		id:          "collections-meta-title",
		issueType:   IssueCritical,
		category:    CategoryContent,
		resource:    ResourceCollection,
		title:       "Collections missing meta titles",
		description: "Collection pages without a meta title rank poorly for category searches. Set a meta title on each collection.",
		violations: func(rs ResourceSet) int {
			return countViolations(rs.Collections, func(c Collection) int {
				if c.MetaTitle == "" {
					return 1
				}
				return 0
			})
		},
	},
	{
		id:          "collections-meta-description",
		issueType:   IssueCritical,
		category:    CategoryContent,
		resource:    ResourceCollection,
		title:       "Collections missing meta descriptions",
		description: "Collections without a meta description get an auto-generated snippet. Add one that sells the category.",
		violations: func(rs ResourceSet) int {
			return countViolations(rs.Collections, func(c Collection) int {
				if c.MetaDescription == "" {
					return 1
				}
				return 0
			})
		},
	},
	{
		id:          "collections-description",
		issueType:   IssueWarning,
		category:    CategoryContent,
		resource:    ResourceCollection,
		title:       "Collections with little or no description",
		description: "Collection pages need at least a short introduction so search engines understand what the category covers.",
		violations: func(rs ResourceSet) int {
			return countViolations(rs.Collections, func(c Collection) int {
				if len(c.Description) < minCollectionDescriptionLen {
					return 1
				}
				return 0
			})
		},
	},
	{
		id:          "pages-content",
		issueType:   IssueWarning,
		category:    CategoryContent,
		resource:    ResourcePage,
		title:       "Pages with thin content",
		description: "Store pages with under 100 characters of content are unlikely to rank. Flesh them out or consolidate them.",
		violations: func(rs ResourceSet) int {
			return countViolations(rs.Pages, func(p Page) int {
				if len(p.Body) < minPageContentLen {
					return 1
				}
				return 0
			})
		},
	},
	{
		id:          "articles-meta-title",
		issueType:   IssueCritical,
		category:    CategoryContent,
		resource:    ResourceArticle,
		title:       "Blog posts missing meta titles",
		description: "Blog posts without a meta title waste their search potential. Give each post a meta title with its target keyword.",
		violations: func(rs ResourceSet) int {
			return countViolations(rs.Articles, func(a Article) int {
				if a.MetaTitle == "" {
					return 1
				}
				return 0
			})
		},
	},
	{
		id:          "articles-meta-description",
		issueType:   IssueCritical,
		category:    CategoryContent,
		resource:    ResourceArticle,
		title:       "Blog posts missing meta descriptions",
		description: "Blog posts without a meta description get arbitrary snippets in search results. Summarize each post in 120-160 characters.",
		violations: func(rs ResourceSet) int {
			return countViolations(rs.Articles, func(a Article) int {
				if a.MetaDescription == "" {
					return 1
				}
				return 0
			})
		},
	},
	{
		id:          "articles-short-content",
		issueType:   IssueWarning,
		category:    CategoryContent,
		resource:    ResourceArticle,
		title:       "Blog posts with thin content",
		description: "Posts under 500 characters rarely rank for anything. Expand them into fuller articles or merge related posts.",
		violations: func(rs ResourceSet) int {
			return countViolations(rs.Articles, func(a Article) int {
				if len(a.Content) > 0 && len(a.Content) < minArticleContentLen {
					return 1
				}
				return 0
			})
		},
	},
}

// successRules is appended after all violation issues, in this order.
var successRules = []successRule{
	{
		id:          "products-meta-title-good",
		linkedRule:  "products-meta-title",
		category:    CategoryContent,
		resource:    ResourceProduct,
		title:       "All products have meta titles",
		description: "Every product has a meta title set. Search engines can show each product with its intended headline.",
		guard:       func(rs ResourceSet) bool { return len(rs.Products) > 0 },
	},
	{
		id:          "products-alt-text-good",
		linkedRule:  "products-alt-text",
		category:    CategoryAccessibility,
		resource:    ResourceProduct,
		title:       "All product images have alt text",
		description: "Every product image carries alt text, so the catalog is readable by screen readers and eligible for image search.",
		guard:       func(rs ResourceSet) bool { return len(rs.Products) > 0 },
	},
}

// missingAltTexts counts images on one product lacking alt text, the
// featured image included. Violations are per image, not per product.
func missingAltTexts(p Product) int {
	n := 0
	if p.FeaturedImage != nil && p.FeaturedImage.AltText == "" {
		n++
	}
	for _, img := range p.Images {
		if img.AltText == "" {
			n++
		}
	}
	return n
}

func countViolations[T any](items []T, violations func(T) int) int {
	total := 0
	for _, item := range items {
		total += violations(item)
	}
	return total
}
