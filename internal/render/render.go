package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/spacetraveling/internal/blog"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/models"
)

// templateFS contains the HTML templates bundled with the binary.
//
//go:embed templates/*.gohtml
var templateFS embed.FS

//go:embed assets/site.js
var siteScript []byte

// Renderer turns article models into HTML documents
type Renderer struct {
	templates *template.Template
	site      config.SiteConfig
}

// New parses the bundled templates
func New(site config.SiteConfig) (*Renderer, error) {
	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"formatDate": func(t *time.Time) string {
			return blog.FormatDate(t, site.Locale)
		},
		"postPath":     models.PostPath,
		"fragmentPath": FragmentPath,
	}).ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	return &Renderer{templates: tmpl, site: site}, nil
}

// FragmentPath is the route that resolves a post rendered as a loading shell
func FragmentPath(uid string) string {
	return models.PostPath(uid) + "/fragment"
}

// Script returns the client script served at models.ScriptPath
func Script() []byte {
	return siteScript
}

type pageData struct {
	Lang         string
	SiteTitle    string
	ScriptURL    string
	Title        string
	MoreEndpoint string
	State        interface{}
}

func (r *Renderer) base() pageData {
	return pageData{
		Lang:      r.site.Locale,
		SiteTitle: r.site.Title,
		ScriptURL: models.ScriptPath,
	}
}

// Home renders the listing page. The load-more control is only emitted
// while the state has a cursor.
func (r *Renderer) Home(w io.Writer, state models.PaginationState) error {
	data := r.base()
	data.Title = "Home | " + r.site.Title
	data.MoreEndpoint = r.site.MoreEndpoint()
	data.State = state
	return r.templates.ExecuteTemplate(w, "home.gohtml", data)
}

// Post renders a complete post page for any state
func (r *Renderer) Post(w io.Writer, state models.PostState) error {
	data := r.base()
	data.State = state
	switch state.Kind {
	case models.PostReady:
		data.Title = state.Article.Title
	case models.PostNotFound:
		data.Title = "Post não encontrado | " + r.site.Title
	default:
		data.Title = r.site.Title
	}
	return r.templates.ExecuteTemplate(w, "post.gohtml", data)
}

// PostFragment renders only the article body, as swapped into a loading shell
func (r *Renderer) PostFragment(w io.Writer, state models.PostState) error {
	return r.templates.ExecuteTemplate(w, "post-body", state)
}

// PostList renders listing entries, as appended by the load-more control
func (r *Renderer) PostList(w io.Writer, posts []models.ArticleSummary) error {
	return r.templates.ExecuteTemplate(w, "post-list", posts)
}

// HomeBytes is Home into a buffer
func (r *Renderer) HomeBytes(state models.PaginationState) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Home(&buf, state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PostBytes is Post into a buffer
func (r *Renderer) PostBytes(state models.PostState) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Post(&buf, state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PostListString is PostList into a string
func (r *Renderer) PostListString(posts []models.ArticleSummary) (string, error) {
	var b strings.Builder
	if err := r.PostList(&b, posts); err != nil {
		return "", err
	}
	return b.String(), nil
}
