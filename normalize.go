package scootblog

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Skip reason codes reported for rows the normalizer rejects.
const (
	SkipMissingTitle        = "missing_title"
	SkipMissingSlugAndTitle = "missing_slug_and_title"
)

// SkipError signals that a row cannot become a record and should be counted
// as skipped rather than failing the batch.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "row skipped: " + e.Reason
}

// Normalizer turns one raw tabular row into a fully-populated BlogPost,
// applying the fallback-chain defaulting policy and screening structured-data
// fields. SiteURL feeds the canonical/og URL fallbacks.
type Normalizer struct {
	SiteURL string
	Log     zerolog.Logger
	Now     func() time.Time
}

// NewNormalizer builds a Normalizer for the given site URL.
func NewNormalizer(siteURL string, log zerolog.Logger) *Normalizer {
	return &Normalizer{SiteURL: strings.TrimSuffix(siteURL, "/"), Log: log, Now: time.Now}
}

// Normalize validates and defaults a raw row. It returns a *SkipError when
// the row lacks a title (and, therefore, a derivable slug); structured-data
// parse failures only drop the offending field, never the row.
func (n *Normalizer) Normalize(row map[string]string) (BlogPost, error) {
	title := strings.TrimSpace(row["title"])
	slug := strings.ToLower(strings.TrimSpace(row["slug"]))
	if title == "" {
		if slug == "" {
			return BlogPost{}, &SkipError{Reason: SkipMissingSlugAndTitle}
		}
		return BlogPost{}, &SkipError{Reason: SkipMissingTitle}
	}
	if slug == "" {
		slug = Slugify(title)
	}

	excerpt := strings.TrimSpace(row["excerpt"])
	image := firstNonEmpty(strings.TrimSpace(row["image"]), DefaultImage)
	metaTitle := firstNonEmpty(strings.TrimSpace(row["metaTitle"]), title)
	metaDescription := firstNonEmpty(strings.TrimSpace(row["metaDescription"]), excerpt)
	postURL := n.SiteURL + "/blogs/" + slug

	p := BlogPost{
		Slug:     slug,
		Title:    title,
		Excerpt:  excerpt,
		Content:  row["content"],
		Category: firstNonEmpty(strings.TrimSpace(row["category"]), DefaultCategory),

		Image:  image,
		Image2: firstNonEmpty(strings.TrimSpace(row["image2"]), DefaultImage),
		Image3: firstNonEmpty(strings.TrimSpace(row["image3"]), DefaultImage),

		IsActive: IsTruthy(row["isActive"]),

		AuthorName:  firstNonEmpty(strings.TrimSpace(row["authorName"]), DefaultAuthorName),
		AuthorTitle: firstNonEmpty(strings.TrimSpace(row["authorTitle"]), DefaultAuthorTitle),
		AuthorBio:   firstNonEmpty(strings.TrimSpace(row["authorBio"]), DefaultAuthorBio),

		MetaTitle:       metaTitle,
		MetaDescription: metaDescription,
		MetaTags:        firstNonEmpty(strings.TrimSpace(row["metaTags"]), DefaultMetaTags),
		CanonicalURL:    firstNonEmpty(strings.TrimSpace(row["canonicalUrl"]), postURL),

		BlogPostingSchema: n.screenSchema("blogPostingSchema", row["blogPostingSchema"], title),
		AuthorSchema:      n.screenSchema("authorSchema", row["authorSchema"], title),
		FAQSchema:         n.screenSchema("faqSchema", row["faqSchema"], title),

		OGTitle:       firstNonEmpty(strings.TrimSpace(row["ogTitle"]), metaTitle),
		OGDescription: firstNonEmpty(strings.TrimSpace(row["ogDescription"]), metaDescription),
		OGImage:       firstNonEmpty(strings.TrimSpace(row["ogImage"]), image),
		OGURL:         firstNonEmpty(strings.TrimSpace(row["ogUrl"]), postURL),

		TwitterTitle:       firstNonEmpty(strings.TrimSpace(row["twitterTitle"]), metaTitle),
		TwitterDescription: firstNonEmpty(strings.TrimSpace(row["twitterDescription"]), metaDescription),
		TwitterImage:       firstNonEmpty(strings.TrimSpace(row["twitterImage"]), image),

		PublishedDate: n.parseDate(row["publishedDate"]),
	}
	return p, nil
}

// screenSchema keeps a structured-data field only if it holds valid JSON.
// Invalid content is logged against the source title and dropped so the row
// survives.
func (n *Normalizer) screenSchema(field, value, title string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !json.Valid([]byte(value)) {
		n.Log.Warn().Str("field", field).Str("title", title).Msg("invalid structured data, dropping field")
		return ""
	}
	return value
}

func (n *Normalizer) parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s != "" {
		for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "01/02/2006"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	now := n.Now
	if now == nil {
		now = time.Now
	}
	return now().UTC()
}

// Slugify derives a URL-safe slug from a title: lowercase with every
// non-alphanumeric character replaced by '-'.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// IsTruthy reports whether a raw cell holds the boolean true token.
// Only the case-insensitive literal "true" counts; everything else is false.
func IsTruthy(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// firstNonEmpty returns the first non-empty value, resolving a field's
// ordered list of fallback sources.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
