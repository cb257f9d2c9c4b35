// Package scraper reads product data from vendor web pages.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/phenrril/storefront/internal/domain"
)

const (
	userAgent = "Mozilla/5.0 (compatible; storefront-import/1.0)"
	maxPage   = 4 << 20
	maxSpecs  = 40
)

var spaces = regexp.MustCompile(`\s+`)

type PageScraper struct {
	client *http.Client
}

func NewPageScraper() *PageScraper {
	return &PageScraper{client: &http.Client{Timeout: 15 * time.Second}}
}

// NewPageScraperWithClient is used by tests to point at local servers.
func NewPageScraperWithClient(c *http.Client) *PageScraper {
	return &PageScraper{client: c}
}

func (s *PageScraper) Read(ctx context.Context, pageURL string) (*domain.ProductPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPage))
	if err != nil {
		return nil, err
	}
	page := Parse(doc)
	page.URL = pageURL
	if page.Title == "" {
		return nil, fmt.Errorf("no product title on %s", pageURL)
	}
	return page, nil
}

// Parse extracts OpenGraph, product meta tags and attribute tables from doc.
func Parse(doc *goquery.Document) *domain.ProductPage {
	p := &domain.ProductPage{Specs: map[string]string{}}

	p.Title = firstNonEmpty(
		meta(doc, "og:title"),
		clean(doc.Find("h1").First().Text()),
		clean(doc.Find("title").First().Text()),
	)
	p.Description = firstNonEmpty(
		meta(doc, "og:description"),
		meta(doc, "description"),
	)
	p.Category = firstNonEmpty(
		meta(doc, "product:category"),
		clean(doc.Find(`[itemprop="category"]`).First().Text()),
	)

	raw := firstNonEmpty(
		meta(doc, "product:price:amount"),
		meta(doc, "og:price:amount"),
		attrOrText(doc.Find(`[itemprop="price"]`).First()),
	)
	if v, ok := ParsePrice(raw); ok {
		p.Price = &v
	}

	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		if len(p.Specs) >= maxSpecs {
			return
		}
		cells := tr.Find("th, td")
		if cells.Length() < 2 {
			return
		}
		label := strings.TrimSuffix(clean(cells.First().Text()), ":")
		value := clean(cells.Eq(1).Text())
		if label == "" || value == "" {
			return
		}
		if existing, ok := p.Specs[label]; !ok || len(value) > len(existing) {
			p.Specs[label] = value
		}
	})
	return p
}

// meta reads <meta property=name> or <meta name=name>.
func meta(doc *goquery.Document, name string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, name, name)).First()
	v, _ := sel.Attr("content")
	return clean(v)
}

func attrOrText(sel *goquery.Selection) string {
	if v, ok := sel.Attr("content"); ok {
		return clean(v)
	}
	return clean(sel.Text())
}

func clean(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// ParsePrice accepts "1234.5", "$1,234.50" and "1.234,50". The right-most
// separator is the decimal one.
func ParsePrice(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return 0, false
	}
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0 && len(s)-comma-1 != 3:
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return domain.Round2(v), true
}
