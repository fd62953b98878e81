package scootblog

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type loginPayload struct {
	Password string `json:"password" form:"password" validate:"required"`
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if subtle.ConstantTimeCompare([]byte(payload.Password), []byte(a.Config.AdminPassword)) != 1 {
		a.loginLimiter.Record(ip)
		a.Log.Warn().Str("ip", ip).Msg("failed admin login")
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}
	if err := setAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "csrfToken": CsrfToken(c)})
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// handleAdminSession lets the dashboard bootstrap: reports whether the
// session is authenticated and hands out the CSRF token for mutations.
func (a *App) handleAdminSession(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"authenticated": IsAdmin(c),
		"csrfToken":     CsrfToken(c),
	})
}

// requireAdmin guards admin routes; JSON clients get a 401 instead of the
// redirect a browser UI would want.
func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsAdmin(c) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}
		return next(c)
	}
}

// handleAdminList serves the dashboard listing: search over
// title/content/excerpt, exact category, active/inactive status, newest
// created first, plus the distinct category set for the filter dropdown.
func (a *App) handleAdminList(c echo.Context) error {
	ctx := c.Request().Context()
	page, _ := strconv.Atoi(c.QueryParam("page"))
	search := c.QueryParam("search")
	category := c.QueryParam("category")
	status := c.QueryParam("status")

	filter := ListFilter{Search: search, Category: category}
	switch status {
	case "active":
		active := true
		filter.Active = &active
	case "inactive":
		inactive := false
		filter.Active = &inactive
	}

	posts, info, err := a.Store.ListPage(ctx, filter, OrderCreated, page, a.Config.PageSize)
	if err != nil {
		return err
	}
	categories, err := a.Store.Categories(ctx)
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []BlogPost{}
	}
	if categories == nil {
		categories = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"blogs":      posts,
		"pagination": info,
		"categories": categories,
		"search":     search,
		"category":   category,
		"status":     status,
	})
}

func (a *App) handleAdminGet(c echo.Context) error {
	post, err := a.Store.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"blog": post})
}

// blogPayload is the editable field set for create and update. Structured
// data must be valid JSON; direct admin input is rejected rather than
// silently dropped the way import rows are.
type blogPayload struct {
	Title    string `json:"title" validate:"required"`
	Slug     string `json:"slug"`
	Excerpt  string `json:"excerpt" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Category string `json:"category"`

	Image  string `json:"image"`
	Image2 string `json:"image2"`
	Image3 string `json:"image3"`

	IsActive *bool `json:"isActive"`

	AuthorName  string `json:"authorName"`
	AuthorTitle string `json:"authorTitle"`
	AuthorBio   string `json:"authorBio"`

	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
	MetaTags        string `json:"metaTags"`
	CanonicalURL    string `json:"canonicalUrl"`

	BlogPostingSchema string `json:"blogPostingSchema" validate:"omitempty,json"`
	AuthorSchema      string `json:"authorSchema" validate:"omitempty,json"`
	FAQSchema         string `json:"faqSchema" validate:"omitempty,json"`

	OGTitle       string `json:"ogTitle"`
	OGDescription string `json:"ogDescription"`
	OGImage       string `json:"ogImage"`
	OGURL         string `json:"ogUrl"`

	TwitterTitle       string `json:"twitterTitle"`
	TwitterDescription string `json:"twitterDescription"`
	TwitterImage       string `json:"twitterImage"`

	PublishedDate string `json:"publishedDate" validate:"omitempty,datetime=2006-01-02"`
}

// toPost runs the payload through the same fallback chains the importer
// uses. Slug is regenerated from the title unless explicitly supplied;
// admin-created posts default to active, unlike import rows.
func (p *blogPayload) toPost(n *Normalizer) (BlogPost, error) {
	row := map[string]string{
		"title":              p.Title,
		"slug":               p.Slug,
		"excerpt":            p.Excerpt,
		"content":            p.Content,
		"category":           p.Category,
		"image":              p.Image,
		"image2":             p.Image2,
		"image3":             p.Image3,
		"authorName":         p.AuthorName,
		"authorTitle":        p.AuthorTitle,
		"authorBio":          p.AuthorBio,
		"metaTitle":          p.MetaTitle,
		"metaDescription":    p.MetaDescription,
		"metaTags":           p.MetaTags,
		"canonicalUrl":       p.CanonicalURL,
		"blogPostingSchema":  p.BlogPostingSchema,
		"authorSchema":       p.AuthorSchema,
		"faqSchema":          p.FAQSchema,
		"ogTitle":            p.OGTitle,
		"ogDescription":      p.OGDescription,
		"ogImage":            p.OGImage,
		"ogUrl":              p.OGURL,
		"twitterTitle":       p.TwitterTitle,
		"twitterDescription": p.TwitterDescription,
		"twitterImage":       p.TwitterImage,
		"publishedDate":      p.PublishedDate,
	}
	post, err := n.Normalize(row)
	if err != nil {
		return BlogPost{}, err
	}
	if p.IsActive != nil {
		post.IsActive = *p.IsActive
	} else {
		post.IsActive = true
	}
	return post, nil
}

func (a *App) bindAndValidate(c echo.Context, payload any) error {
	if err := c.Bind(payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := a.validate.Struct(payload); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, echo.Map{
			"error":  "Validation failed",
			"fields": fields,
		})
	}
	return nil
}

func (a *App) handleAdminCreate(c echo.Context) error {
	var payload blogPayload
	if err := a.bindAndValidate(c, &payload); err != nil {
		return err
	}
	post, err := payload.toPost(a.Norm)
	if err != nil {
		return err
	}
	id, inserted, err := a.Store.Upsert(c.Request().Context(), post)
	if err != nil {
		return err
	}
	saved, err := a.Store.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	status := http.StatusCreated
	if !inserted {
		status = http.StatusOK
	}
	return c.JSON(status, echo.Map{"success": true, "blog": saved})
}

func (a *App) handleAdminUpdate(c echo.Context) error {
	ctx := c.Request().Context()
	existing, err := a.Store.GetByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	var payload blogPayload
	if err := a.bindAndValidate(c, &payload); err != nil {
		return err
	}
	post, err := payload.toPost(a.Norm)
	if err != nil {
		return err
	}
	post.ID = existing.ID
	post.CreatedAt = existing.CreatedAt
	if err := a.Store.Update(ctx, post); err != nil {
		return err
	}
	a.Cache.Invalidate()
	updated, err := a.Store.GetByID(ctx, existing.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "blog": updated})
}

func (a *App) handleAdminDelete(c echo.Context) error {
	if err := a.Store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Blog deleted successfully!"})
}

func (a *App) handleToggleStatus(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Store.GetByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	next := !post.IsActive
	if err := a.Store.SetActive(ctx, post.ID, next); err != nil {
		return err
	}
	a.Cache.Invalidate()
	verb := "deactivated"
	if next {
		verb = "activated"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"isActive": next,
		"message":  fmt.Sprintf("Blog %s successfully!", verb),
	})
}

type bulkDeletePayload struct {
	BlogIDs []string `json:"blogIds" validate:"required,min=1"`
}

func (a *App) handleBulkDelete(c echo.Context) error {
	var payload bulkDeletePayload
	if err := a.bindAndValidate(c, &payload); err != nil {
		return err
	}
	n, err := a.Store.DeleteMany(c.Request().Context(), payload.BlogIDs)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": fmt.Sprintf("%d blog(s) deleted successfully!", n),
	})
}

type bulkStatusPayload struct {
	BlogIDs []string `json:"blogIds" validate:"required,min=1"`
	Status  string   `json:"status" validate:"required,oneof=active inactive"`
}

func (a *App) handleBulkStatus(c echo.Context) error {
	var payload bulkStatusPayload
	if err := a.bindAndValidate(c, &payload); err != nil {
		return err
	}
	active := payload.Status == "active"
	n, err := a.Store.SetActiveMany(c.Request().Context(), payload.BlogIDs, active)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	verb := "deactivated"
	if active {
		verb = "activated"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": fmt.Sprintf("%d blog(s) %s successfully!", n, verb),
	})
}
