package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/Houeta/bookwatch/internal/models"
	"github.com/PuerkitoBio/goquery"
)

// ErrNameMissing is returned when the structurally required display name
// cannot be extracted. Every other field degrades to absent instead.
var ErrNameMissing = errors.New("display name not found in document")

// notFoundMarker appears in the body of the catalog's 404 page. It lets the
// discoverer tell genuine end-of-catalog apart from a page that rendered
// without links.
const notFoundMarker = "Page not found"

// BookParser turns rendered HTML into candidate records and extracts
// detail-page links from index pages.
type BookParser interface {
	ParseBook(html, sourceURL string) (*models.Book, error)
	ExtractBookLinks(html, pageURL string) ([]string, error)
	IsNotFoundPage(html string) bool
}

// Parser is the goquery-backed BookParser for the catalog's page shape.
type Parser struct {
	log *slog.Logger
}

func NewParser(log *slog.Logger) *Parser {
	return &Parser{log: log}
}

var ratingWords = map[string]int{
	"One":   1,
	"Two":   2,
	"Three": 3,
	"Four":  4,
	"Five":  5,
}

// ParseBook extracts a candidate record from a rendered detail page.
// The raw HTML is kept on the record as the audit snapshot and the
// fingerprint fallback input.
func (p *Parser) ParseBook(html, sourceURL string) (*models.Book, error) {
	const opn = "parser.ParseBook"

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%s: data cannot be parsed as HTML: %w", opn, err)
	}

	name := strings.TrimSpace(doc.Find("div.product_main h1").First().Text())
	if name == "" {
		return nil, fmt.Errorf("%s: %s: %w", opn, sourceURL, ErrNameMissing)
	}

	book := &models.Book{
		SourceURL: sourceURL,
		Name:      &name,
		RawHTML:   html,
	}

	if desc := strings.TrimSpace(doc.Find("#product_description ~ p").First().Text()); desc != "" {
		book.Description = &desc
	}

	if cat := strings.TrimSpace(doc.Find("ul.breadcrumb li a").Last().Text()); cat != "" {
		book.Category = &cat
	}

	table := make(map[string]string)
	doc.Find("table.table-striped tr").Each(func(_ int, row *goquery.Selection) {
		key := strings.TrimSpace(row.Find("th").Text())
		value := strings.TrimSpace(row.Find("td").Text())
		if key != "" {
			table[key] = value
		}
	})

	book.PriceInclTax = p.parsePrice(table, "Price (incl. tax)", sourceURL)
	book.PriceExclTax = p.parsePrice(table, "Price (excl. tax)", sourceURL)

	if avail, ok := table["Availability"]; ok && avail != "" {
		book.Availability = &avail
	}

	if raw, ok := table["Number of reviews"]; ok {
		if n, convErr := strconv.Atoi(raw); convErr == nil && n >= 0 {
			book.NumReviews = &n
		} else {
			p.log.Warn("unreadable review count, treating as absent", "url", sourceURL, "value", raw)
		}
	}

	if stars := doc.Find("p.star-rating").First(); stars.Length() > 0 {
		book.Rating = models.IntPtr(ratingFromClasses(stars.AttrOr("class", "")))
	}

	if src := doc.Find("div.item.active img").First().AttrOr("src", ""); src != "" {
		if resolved := resolveURL(sourceURL, src); resolved != "" {
			book.ImageURL = &resolved
		}
	}

	return book, nil
}

// ExtractBookLinks returns the absolute detail-page URLs linked from an
// index page, in document order.
func (p *Parser) ExtractBookLinks(html, pageURL string) ([]string, error) {
	const opn = "parser.ExtractBookLinks"

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%s: data cannot be parsed as HTML: %w", opn, err)
	}

	var links []string
	doc.Find("h3 a").Each(func(idx int, anchor *goquery.Selection) {
		href, ok := anchor.Attr("href")
		if !ok || href == "" {
			p.log.Warn("index anchor without href", "page", pageURL, "index", idx)
			return
		}
		if resolved := resolveURL(pageURL, href); resolved != "" {
			links = append(links, resolved)
		}
	})

	return links, nil
}

// IsNotFoundPage reports whether the rendered body is the catalog's 404 page.
func (p *Parser) IsNotFoundPage(html string) bool {
	return strings.Contains(html, notFoundMarker)
}

// parsePrice reads a currency cell like "£51.77". Unreadable or negative
// values degrade to absent.
func (p *Parser) parsePrice(table map[string]string, key, sourceURL string) *float64 {
	raw, ok := table[key]
	if !ok || raw == "" {
		return nil
	}

	cleaned := strings.TrimSpace(strings.NewReplacer("£", "", "Â", "").Replace(raw))
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value < 0 {
		p.log.Warn("unreadable price, treating as absent", "url", sourceURL, "field", key, "value", raw)
		return nil
	}

	return &value
}

// ratingFromClasses maps the star-rating class list to 1..5, or 0 when no
// word matches (unrated).
func ratingFromClasses(classAttr string) int {
	for _, class := range strings.Fields(classAttr) {
		if n, ok := ratingWords[class]; ok {
			return n
		}
	}
	return 0
}

// resolveURL resolves a possibly relative href against the page it was
// found on. Returns "" when either part is unparsable.
func resolveURL(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
