// Package content manages the website's source documents: service pages
// stored as JSON, blog posts stored as Markdown with YAML frontmatter, the
// static HTML rendered from both, and the XML sitemap.
package content

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	customerrors "github.com/westernheights/website/internal/errors"
)

// ServiceMetadata describes a service page for listings and SEO.
type ServiceMetadata struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
	Category    string   `json:"service_category" yaml:"service_category"`
	Icon        string   `json:"icon" yaml:"icon"`
	Published   bool     `json:"published" yaml:"published"`
	Featured    bool     `json:"featured" yaml:"featured"`
	Order       int      `json:"order" yaml:"order"`
}

// ServiceFeature is one entry of a service page's feature grid.
type ServiceFeature struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// ServiceContent is the body of a service page.
type ServiceContent struct {
	Hero struct {
		Title     string `json:"title"`
		Subtitle  string `json:"subtitle"`
		CTAButton string `json:"cta_button"`
	} `json:"hero"`
	Overview struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"overview"`
	Features []ServiceFeature `json:"features"`
	Benefits []string         `json:"benefits"`
	CTA      struct {
		Title      string `json:"title"`
		Content    string `json:"content"`
		ButtonText string `json:"button_text"`
	} `json:"cta"`
}

// ServicePage is a full service document as stored under services/<slug>.json.
type ServicePage struct {
	Metadata ServiceMetadata `json:"metadata"`
	Content  ServiceContent  `json:"content"`
}

// ServiceSummary is the listing view of a service page.
type ServiceSummary struct {
	File     string          `json:"file"`
	Metadata ServiceMetadata `json:"metadata"`
	Preview  string          `json:"content_preview"`
}

// PostMetadata is the YAML frontmatter of a blog post.
type PostMetadata struct {
	Title     string   `json:"title" yaml:"title"`
	Slug      string   `json:"slug" yaml:"slug"`
	Author    string   `json:"author" yaml:"author"`
	Date      string   `json:"date" yaml:"date"`
	Category  string   `json:"category" yaml:"category"`
	Tags      []string `json:"tags" yaml:"tags"`
	Excerpt   string   `json:"excerpt" yaml:"excerpt"`
	Published bool     `json:"published" yaml:"published"`
}

// PostSection is one titled section of a blog post body.
type PostSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// BlogPost is a full blog document.
type BlogPost struct {
	Metadata PostMetadata `json:"metadata"`
	Content  struct {
		Introduction string        `json:"introduction"`
		Sections     []PostSection `json:"sections"`
		Conclusion   string        `json:"conclusion"`
	} `json:"content"`
}

// PostSummary is the listing view of a blog post.
type PostSummary struct {
	File     string       `json:"file"`
	Metadata PostMetadata `json:"metadata"`
	Excerpt  string       `json:"excerpt"`
}

// Manager renders and lists the content tree rooted at Dir.
type Manager struct {
	Dir     string
	BaseURL string

	markdown goldmark.Markdown
	now      func() time.Time
}

// NewManager creates a Manager for the given content directory. baseURL is
// the public site root used when generating the sitemap.
func NewManager(dir, baseURL string) *Manager {
	return &Manager{
		Dir:      dir,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		markdown: goldmark.New(),
		now:      time.Now,
	}
}

// EnsureLayout creates the content directory structure.
func (m *Manager) EnsureLayout() error {
	for _, sub := range []string{
		"services", "blog", "case-studies", "pages",
		"uploads/images", "uploads/documents", "templates",
	} {
		if err := os.MkdirAll(filepath.Join(m.Dir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to create content directory %s: %w", sub, err)
		}
	}
	return nil
}

var slugStrip = regexp.MustCompile(`[^\w\s-]`)
var slugDashes = regexp.MustCompile(`[-\s]+`)

// Slugify converts a title to a URL-friendly slug.
func Slugify(text string) string {
	text = strings.ToLower(text)
	text = slugStrip.ReplaceAllString(text, "")
	text = slugDashes.ReplaceAllString(text, "-")
	return strings.Trim(text, "-")
}

// CreateServicePage stores a service document and renders its HTML page.
// It returns the path of the stored JSON document.
func (m *Manager) CreateServicePage(page ServicePage) (string, error) {
	slug := Slugify(page.Metadata.Title)
	if slug == "" {
		return "", fmt.Errorf("service page needs a title")
	}

	raw, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize service page: %w", err)
	}

	jsonPath := filepath.Join(m.Dir, "services", slug+".json")
	if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to save service page: %w", err)
	}

	if err := m.renderServiceHTML(slug, page); err != nil {
		return "", err
	}
	return jsonPath, nil
}

var serviceTemplate = template.Must(template.New("service").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Metadata.Title}} | Western Heights Inc.</title>
<meta name="description" content="{{.Metadata.Description}}">
</head>
<body>
<section class="service-hero">
<h1>{{if .Content.Hero.Title}}{{.Content.Hero.Title}}{{else}}{{.Metadata.Title}}{{end}}</h1>
<p>{{.Content.Hero.Subtitle}}</p>
<a href="#contact" class="cta-button">{{.Content.Hero.CTAButton}}</a>
</section>
<section class="overview">
<h2>{{.Content.Overview.Title}}</h2>
<p>{{.Content.Overview.Content}}</p>
</section>
<section class="features">
<h2>Key Features</h2>
{{range .Content.Features}}<div class="feature-card">
<h3>{{.Title}}</h3>
<p>{{.Description}}</p>
</div>
{{end}}</section>
<section class="benefits">
<h2>Benefits</h2>
<ul>
{{range .Content.Benefits}}<li>{{.}}</li>
{{end}}</ul>
</section>
<section class="cta">
<h2>{{.Content.CTA.Title}}</h2>
<p>{{.Content.CTA.Content}}</p>
<a href="#contact" class="cta-button">{{.Content.CTA.ButtonText}}</a>
</section>
</body>
</html>
`))

func (m *Manager) renderServiceHTML(slug string, page ServicePage) error {
	var buf bytes.Buffer
	if err := serviceTemplate.Execute(&buf, page); err != nil {
		return fmt.Errorf("failed to render service page %s: %w", slug, err)
	}
	htmlPath := filepath.Join(m.Dir, "services", slug+".html")
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write service html %s: %w", slug, err)
	}
	return nil
}

// AllServices lists the stored service pages sorted by their metadata order.
func (m *Manager) AllServices() ([]ServiceSummary, error) {
	pattern := filepath.Join(m.Dir, "services", "*.json")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list service pages: %w", err)
	}

	services := []ServiceSummary{}
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("WARNING: Could not read service page %s: %v", path, err)
			continue
		}
		var page ServicePage
		if err := json.Unmarshal(raw, &page); err != nil {
			log.Printf("WARNING: Could not parse service page %s: %v", path, err)
			continue
		}
		services = append(services, ServiceSummary{
			File:     filepath.Base(path),
			Metadata: page.Metadata,
			Preview:  preview(page.Content.Overview.Content, 200),
		})
	}

	sort.SliceStable(services, func(i, j int) bool {
		return services[i].Metadata.Order < services[j].Metadata.Order
	})
	return services, nil
}

// GetService loads one stored service page by slug.
func (m *Manager) GetService(slug string) (*ServicePage, error) {
	raw, err := os.ReadFile(filepath.Join(m.Dir, "services", slug+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, customerrors.ErrServiceNotFound
		}
		return nil, fmt.Errorf("failed to read service page %s: %w", slug, err)
	}
	var page ServicePage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to parse service page %s: %w", slug, err)
	}
	return &page, nil
}

// CreateBlogPost stores a blog post as Markdown with YAML frontmatter and
// renders its HTML page. It returns the path of the Markdown file.
func (m *Manager) CreateBlogPost(post BlogPost) (string, error) {
	slug := post.Metadata.Slug
	if slug == "" {
		slug = Slugify(post.Metadata.Title)
	}
	if slug == "" {
		return "", fmt.Errorf("blog post needs a title or slug")
	}
	if post.Metadata.Date == "" {
		post.Metadata.Date = m.now().Format("2006-01-02")
	}
	post.Metadata.Slug = slug

	md, err := formatBlogMarkdown(post)
	if err != nil {
		return "", err
	}

	mdPath := filepath.Join(m.Dir, "blog", slug+".md")
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("failed to save blog post: %w", err)
	}

	if err := m.renderBlogHTML(slug, post, md); err != nil {
		return "", err
	}
	return mdPath, nil
}

// formatBlogMarkdown emits the canonical on-disk form: YAML frontmatter
// between --- fences, then the Markdown body.
func formatBlogMarkdown(post BlogPost) (string, error) {
	frontmatter, err := yaml.Marshal(post.Metadata)
	if err != nil {
		return "", fmt.Errorf("failed to serialize frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(frontmatter)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", post.Metadata.Title)
	fmt.Fprintf(&b, "*By %s | %s*\n\n", post.Metadata.Author, post.Metadata.Date)
	b.WriteString(post.Content.Introduction)
	b.WriteString("\n\n")
	for _, section := range post.Content.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", section.Title, section.Content)
	}
	b.WriteString("## Conclusion\n\n")
	b.WriteString(post.Content.Conclusion)
	b.WriteString("\n\n---\n\n")
	fmt.Fprintf(&b, "**Tags:** %s\n", strings.Join(post.Metadata.Tags, ", "))
	return b.String(), nil
}

var blogTemplate = template.Must(template.New("blog").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Meta.Title}} | Western Heights Inc. Blog</title>
<meta name="description" content="{{.Meta.Excerpt}}">
</head>
<body>
<header class="blog-header">
<h1>{{.Meta.Title}}</h1>
<p>{{.Meta.Excerpt}}</p>
</header>
<div class="blog-meta">
<p><strong>Author:</strong> {{.Meta.Author}} | <strong>Date:</strong> {{.Meta.Date}} | <strong>Category:</strong> {{.Meta.Category}}</p>
<div class="tags">{{range .Meta.Tags}}<span class="tag">{{.}}</span> {{end}}</div>
</div>
<div class="blog-content">
{{.Body}}
</div>
</body>
</html>
`))

func (m *Manager) renderBlogHTML(slug string, post BlogPost, md string) error {
	// Render only the body, not the frontmatter fence
	body := md
	if parts := strings.SplitN(md, "---", 3); len(parts) == 3 {
		body = parts[2]
	}

	var rendered bytes.Buffer
	if err := m.markdown.Convert([]byte(body), &rendered); err != nil {
		return fmt.Errorf("failed to render markdown for %s: %w", slug, err)
	}

	var buf bytes.Buffer
	err := blogTemplate.Execute(&buf, struct {
		Meta PostMetadata
		Body template.HTML
	}{post.Metadata, template.HTML(rendered.String())})
	if err != nil {
		return fmt.Errorf("failed to render blog page %s: %w", slug, err)
	}

	htmlPath := filepath.Join(m.Dir, "blog", slug+".html")
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write blog html %s: %w", slug, err)
	}
	return nil
}

// RecentPosts parses the frontmatter of every stored post and returns the
// newest ones first, up to limit.
func (m *Manager) RecentPosts(limit int) ([]PostSummary, error) {
	if limit <= 0 {
		limit = 5
	}

	pattern := filepath.Join(m.Dir, "blog", "*.md")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list blog posts: %w", err)
	}

	posts := []PostSummary{}
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("WARNING: Could not read blog post %s: %v", path, err)
			continue
		}
		meta, ok := parseFrontmatter(string(raw))
		if !ok {
			log.Printf("WARNING: Blog post %s has no frontmatter, skipping", path)
			continue
		}
		posts = append(posts, PostSummary{
			File:     filepath.Base(path),
			Metadata: meta,
			Excerpt:  meta.Excerpt,
		})
	}

	// ISO dates sort correctly as strings, newest first
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Metadata.Date > posts[j].Metadata.Date
	})
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func parseFrontmatter(doc string) (PostMetadata, bool) {
	parts := strings.SplitN(doc, "---", 3)
	if len(parts) < 3 {
		return PostMetadata{}, false
	}
	var meta PostMetadata
	if err := yaml.Unmarshal([]byte(parts[1]), &meta); err != nil {
		return PostMetadata{}, false
	}
	return meta, true
}

// sitemapURL is one <url> entry of the sitemap.
type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// GenerateSitemap writes sitemap.xml next to the content directory and
// returns its path. It covers the main pages, every service page and the
// most recent blog posts.
func (m *Manager) GenerateSitemap() (string, error) {
	today := m.now().Format("2006-01-02")
	set := sitemapURLSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}

	for _, page := range []string{"", "about", "services", "contact", "careers", "support"} {
		priority := "0.8"
		if page == "" {
			priority = "1.0"
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        m.BaseURL + "/" + page,
			LastMod:    today,
			ChangeFreq: "weekly",
			Priority:   priority,
		})
	}

	services, err := m.AllServices()
	if err != nil {
		return "", err
	}
	for _, service := range services {
		slug := strings.TrimSuffix(service.File, ".json")
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        m.BaseURL + "/services/" + slug,
			LastMod:    today,
			ChangeFreq: "monthly",
			Priority:   "0.7",
		})
	}

	posts, err := m.RecentPosts(50)
	if err != nil {
		return "", err
	}
	for _, post := range posts {
		lastMod := post.Metadata.Date
		if lastMod == "" {
			lastMod = today
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        m.BaseURL + "/blog/" + strings.TrimSuffix(post.File, ".md"),
			LastMod:    lastMod,
			ChangeFreq: "monthly",
			Priority:   "0.6",
		})
	}

	raw, err := xml.MarshalIndent(set, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize sitemap: %w", err)
	}

	path := filepath.Join(filepath.Dir(m.Dir), "sitemap.xml")
	out := []byte(xml.Header + string(raw) + "\n")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", fmt.Errorf("failed to write sitemap: %w", err)
	}
	return path, nil
}

// RebuildAll re-renders every stored document's HTML and refreshes the
// sitemap. Used by the publish command and the content watcher.
func (m *Manager) RebuildAll() error {
	servicePaths, err := filepath.Glob(filepath.Join(m.Dir, "services", "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list service pages: %w", err)
	}
	for _, path := range servicePaths {
		slug := strings.TrimSuffix(filepath.Base(path), ".json")
		page, err := m.GetService(slug)
		if err != nil {
			log.Printf("WARNING: Skipping service %s: %v", slug, err)
			continue
		}
		if err := m.renderServiceHTML(slug, *page); err != nil {
			log.Printf("WARNING: Could not render service %s: %v", slug, err)
		}
	}

	postPaths, err := filepath.Glob(filepath.Join(m.Dir, "blog", "*.md"))
	if err != nil {
		return fmt.Errorf("failed to list blog posts: %w", err)
	}
	for _, path := range postPaths {
		slug := strings.TrimSuffix(filepath.Base(path), ".md")
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("WARNING: Skipping blog post %s: %v", slug, err)
			continue
		}
		meta, ok := parseFrontmatter(string(raw))
		if !ok {
			log.Printf("WARNING: Blog post %s has no frontmatter, skipping", slug)
			continue
		}
		post := BlogPost{Metadata: meta}
		if err := m.renderBlogHTML(slug, post, string(raw)); err != nil {
			log.Printf("WARNING: Could not render blog post %s: %v", slug, err)
		}
	}

	if _, err := m.GenerateSitemap(); err != nil {
		return err
	}
	return nil
}

func preview(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
