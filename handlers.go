package scootblog

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// publicPost is the listing-API projection of a record: public fields only,
// with calendar dates instead of full timestamps.
type publicPost struct {
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	Excerpt       string `json:"excerpt"`
	Category      string `json:"category"`
	Image         string `json:"image"`
	Image2        string `json:"image2"`
	AuthorName    string `json:"authorName"`
	AuthorTitle   string `json:"authorTitle"`
	AuthorBio     string `json:"authorBio"`
	PublishedDate string `json:"publishedDate"`
	CreatedAt     string `json:"createdAt"`
}

// relatedPost is the trimmed projection used for the related-posts strip.
type relatedPost struct {
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	Category      string `json:"category"`
	Image         string `json:"image"`
	Image2        string `json:"image2"`
	PublishedDate string `json:"publishedDate"`
	CreatedAt     string `json:"createdAt"`
}

const dateOnly = "2006-01-02"

func toPublicPost(p BlogPost) publicPost {
	return publicPost{
		Title:         p.Title,
		Slug:          p.Slug,
		Excerpt:       p.Excerpt,
		Category:      p.Category,
		Image:         p.Image,
		Image2:        p.Image2,
		AuthorName:    p.AuthorName,
		AuthorTitle:   p.AuthorTitle,
		AuthorBio:     p.AuthorBio,
		PublishedDate: p.PublishedDate.Format(dateOnly),
		CreatedAt:     p.CreatedAt.Format(dateOnly),
	}
}

func toRelatedPost(p BlogPost) relatedPost {
	return relatedPost{
		Title:         p.Title,
		Slug:          p.Slug,
		Category:      p.Category,
		Image:         p.Image,
		Image2:        p.Image2,
		PublishedDate: p.PublishedDate.Format(dateOnly),
		CreatedAt:     p.CreatedAt.Format(dateOnly),
	}
}

// handleListBlogs serves the public paginated listing of active posts.
func (a *App) handleListBlogs(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	active := true
	posts, info, err := a.Store.ListPage(c.Request().Context(),
		ListFilter{Active: &active}, OrderPublished, page, a.Config.PageSize)
	if err != nil {
		return err
	}
	out := make([]publicPost, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPublicPost(p))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"blogs":      out,
		"pagination": info,
	})
}

// handleGetBlog serves a single active post by slug, with up to three
// related posts (active, excluding the post itself, most recent first).
func (a *App) handleGetBlog(c echo.Context) error {
	slug := c.Param("slug")
	post, err := a.Store.GetBySlug(c.Request().Context(), slug)
	if err != nil {
		return err
	}
	related, err := a.Store.Related(c.Request().Context(), post.ID, RelatedLimit)
	if err != nil {
		return err
	}
	out := make([]relatedPost, 0, len(related))
	for _, p := range related {
		out = append(out, toRelatedPost(p))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"blog":         post,
		"relatedBlogs": out,
	})
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ActivePosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ActivePosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

// handleRobots generates robots.txt dynamically using the site URL.
func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /admin/\n\nSitemap: %s/sitemap.xml\n", a.Config.URL)
	return c.String(http.StatusOK, body)
}
