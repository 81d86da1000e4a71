package audit

// ResourceType identifies which kind of store content a resource or issue
// refers to.
type ResourceType string

const (
	ResourceProduct    ResourceType = "product"
	ResourceCollection ResourceType = "collection"
	ResourcePage       ResourceType = "page"
	ResourceArticle    ResourceType = "article"
)

// IssueType is the severity/valence of an issue.
type IssueType string

const (
	IssueCritical IssueType = "critical"
	IssueWarning  IssueType = "warning"
	IssueInfo     IssueType = "info"
	IssueSuccess  IssueType = "success"
)

// Category groups issues for the dashboard.
type Category string

const (
	CategoryContent       Category = "content"
	CategoryPerformance   Category = "performance"
	CategoryAccessibility Category = "accessibility"
	CategoryTechnical     Category = "technical"
)

// Image is one image attached to a product.
type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

// Product carries the SEO-relevant fields of a store product as returned by
// the storefront data source. Fields are raw values; an absent field and an
// empty string are equivalent. Images holds the gallery images excluding
// FeaturedImage (the fetcher guarantees no overlap between the two).
type Product struct {
	ID              string  `json:"id"`
	Handle          string  `json:"handle"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	MetaTitle       string  `json:"metaTitle"`
	MetaDescription string  `json:"metaDescription"`
	FeaturedImage   *Image  `json:"featuredImage,omitempty"`
	Images          []Image `json:"images,omitempty"`
}

// Collection carries the SEO-relevant fields of a collection.
type Collection struct {
	ID              string `json:"id"`
	Handle          string `json:"handle"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
}

// Page carries the SEO-relevant fields of an online store page.
type Page struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Article carries the SEO-relevant fields of a blog article.
type Article struct {
	ID              string `json:"id"`
	Handle          string `json:"handle"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
}

// ResourceSet is the complete crawled content of one store, materialized by
// the fetcher before scoring begins. A run must never be invoked with a
// partially fetched set.
type ResourceSet struct {
	Products    []Product    `json:"products"`
	Collections []Collection `json:"collections"`
	Pages       []Page       `json:"pages"`
	Articles    []Article    `json:"articles"`
}

// TotalResources returns the number of resources examined in one run.
func (rs ResourceSet) TotalResources() int {
	return len(rs.Products) + len(rs.Collections) + len(rs.Pages) + len(rs.Articles)
}

// Issue is one detected rule violation or one confirmed compliance. Issues
// are immutable once created; a scan snapshot persists them verbatim.
type Issue struct {
	ID            string       `json:"id"`
	Type          IssueType    `json:"type"`
	Category      Category     `json:"category"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	AffectedPages int          `json:"affectedPages,omitempty"`
	ResourceType  ResourceType `json:"resourceType"`
	Fixable       bool         `json:"fixable"`
}

// Result is the aggregate output of one analysis run. All scores are
// integers in [0, 100]. Issues holds critical and warning issues in rule
// order followed by success issues.
type Result struct {
	OverallScore       int     `json:"overallScore"`
	ContentScore       int     `json:"contentScore"`
	PerformanceScore   int     `json:"performanceScore"`
	AccessibilityScore int     `json:"accessibilityScore"`
	CriticalIssues     int     `json:"criticalIssues"`
	Improvements       int     `json:"improvements"`
	GoodResults        int     `json:"goodResults"`
	Issues             []Issue `json:"issues"`
	CrawledPages       int     `json:"crawledPages"`
}
