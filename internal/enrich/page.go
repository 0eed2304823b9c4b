package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/paperwire/arxiv-digest/internal/domain"
	"github.com/paperwire/arxiv-digest/internal/sources"
)

// maxPageBytes caps how much of a rendered page is read (10MB).
const maxPageBytes = 10 << 20

// Figure is one candidate figure found on a rendered page.
type Figure struct {
	URL     string
	Caption string
	Alt     string
}

// CaptionText returns the figure's caption, falling back to its alt text.
func (f Figure) CaptionText() string {
	if f.Caption != "" {
		return f.Caption
	}
	return f.Alt
}

// Page is a parsed rendered paper page.
type Page struct {
	base *url.URL
	root *html.Node
}

// ParsePage parses an HTML body fetched from pageURL.
func ParsePage(pageURL string, r io.Reader) (*Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	root, err := html.Parse(io.LimitReader(r, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	return &Page{base: base, root: root}, nil
}

// AffiliationTexts returns the raw affiliation texts found in the page's
// author block, in document order. It tries the recognized author-region
// classes first, then progressively broader affiliation element classes.
// Entries shorter than 3 characters are skipped, repeats are kept out.
func (p *Page) AffiliationTexts() []string {
	authorBlock := findByClass(p.root, "ltx_authors")
	if authorBlock == nil {
		authorBlock = findByClass(p.root, "authors")
	}
	if authorBlock == nil {
		return nil
	}

	elems := findAllByClass(authorBlock, "ltx_role_affiliation")
	if len(elems) == 0 {
		elems = findAllByClass(authorBlock, "ltx_contact_affiliation")
	}
	if len(elems) == 0 {
		elems = findAllByClass(p.root, "ltx_note_content")
	}

	var out []string
	seen := make(map[string]bool)
	for _, elem := range elems {
		text := collectText(elem)
		if len(text) > 2 && !seen[text] {
			seen[text] = true
			out = append(out, text)
		}
	}
	return out
}

// Figures returns every figure element carrying an image source, with its
// caption and alt text, image URLs resolved against the page URL.
func (p *Page) Figures() []Figure {
	var out []Figure
	for _, fig := range findAllByTag(p.root, "figure") {
		img := findByTag(fig, "img")
		if img == nil {
			continue
		}
		src := attrValue(img, "src")
		if src == "" {
			continue
		}

		figure := Figure{
			URL: p.resolve(src),
			Alt: truncateRunes(attrValue(img, "alt"), 100),
		}
		if caption := findByTag(fig, "figcaption"); caption != nil {
			figure.Caption = truncateRunes(collectText(caption), 200)
		}
		out = append(out, figure)
	}
	return out
}

func (p *Page) resolve(src string) string {
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return p.base.ResolveReference(ref).String()
}

// HTMLPages fetches and parses rendered paper pages.
type HTMLPages struct {
	httpClient *sources.HTTPClient
	urlFor     func(arxivID string) string
}

// NewHTMLPages creates a page fetcher. urlFor maps an identifier to the
// rendered page URL for it.
func NewHTMLPages(httpClient *sources.HTTPClient, urlFor func(string) string) *HTMLPages {
	return &HTMLPages{httpClient: httpClient, urlFor: urlFor}
}

// FetchPage retrieves and parses the rendered page for the given
// identifier. Any non-200 status is reported as unavailable.
func (h *HTMLPages) FetchPage(ctx context.Context, arxivID string) (*Page, error) {
	pageURL := h.urlFor(arxivID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating page request: %w", err)
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewExternalAPIError("arxiv-html", 0, fmt.Sprintf("fetching rendered page: %v", err), nil)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewNotFoundError("rendered page", arxivID)
	}
	return ParsePage(pageURL, resp.Body)
}

// findByClass returns the first element in document order whose class
// attribute contains the given class.
func findByClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func findAllByClass(n *html.Node, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, class) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func findByTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func findAllByTag(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// collectText gathers all text beneath n, whitespace-collapsed.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
