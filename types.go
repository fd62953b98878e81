package scootblog

import "time"

// BlogPost is the core content record, keyed publicly by Slug and internally
// by ID. SEO, Open Graph, and Twitter fields are optional; empty values are
// filled along the fallback chains in normalize.go at ingestion time.
type BlogPost struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	Content  string `json:"content"`
	Category string `json:"category"`

	Image  string `json:"image"`
	Image2 string `json:"image2"`
	Image3 string `json:"image3"`

	IsActive bool `json:"isActive"`

	AuthorName  string `json:"authorName"`
	AuthorTitle string `json:"authorTitle"`
	AuthorBio   string `json:"authorBio"`

	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
	MetaTags        string `json:"metaTags"`
	CanonicalURL    string `json:"canonicalUrl"`

	// Schema.org structured data, stored as raw JSON text. Invalid JSON is
	// discarded at ingestion, so a non-empty value is always parseable.
	BlogPostingSchema string `json:"blogPostingSchema"`
	AuthorSchema      string `json:"authorSchema"`
	FAQSchema         string `json:"faqSchema"`

	OGTitle       string `json:"ogTitle"`
	OGDescription string `json:"ogDescription"`
	OGImage       string `json:"ogImage"`
	OGURL         string `json:"ogUrl"`

	TwitterTitle       string `json:"twitterTitle"`
	TwitterDescription string `json:"twitterDescription"`
	TwitterImage       string `json:"twitterImage"`

	PublishedDate time.Time `json:"publishedDate"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ListFilter narrows listing and count queries. All predicates are optional
// and AND-combined; Search matches title, content, or excerpt (OR-combined,
// case-insensitive substring).
type ListFilter struct {
	Search   string
	Category string
	Active   *bool
}

// Order selects the listing sort.
type Order int

const (
	// OrderPublished sorts by publishedDate DESC, then createdAt DESC, then
	// id DESC so pages stay deterministic even for same-day posts.
	OrderPublished Order = iota
	// OrderCreated sorts by createdAt DESC (admin dashboard order).
	OrderCreated
)

// PageInfo is the pagination envelope returned alongside every listing.
type PageInfo struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalBlogs  int  `json:"totalBlogs"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// Defaults applied when a record omits the field (see normalize.go).
const (
	DefaultCategory    = "Automobile"
	DefaultImage       = "/images/ev-logo.png"
	DefaultAuthorName  = "e-scooter.blog Team"
	DefaultAuthorTitle = "EV Specialist"
	DefaultAuthorBio   = "Expert in electric vehicles and sustainable mobility solutions."
	DefaultMetaTags    = "blog, automobile, technology"

	// DefaultPageSize is the public listing page size.
	DefaultPageSize = 6

	// RelatedLimit is how many related posts a detail lookup returns.
	RelatedLimit = 3
)
