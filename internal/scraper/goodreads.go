package scraper

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/raphaelgruber/bookpack/internal/fetch"
	"github.com/raphaelgruber/bookpack/internal/models"
)

const (
	goodreadsURL     = "https://www.goodreads.com"
	goodreadsTimeout = 25 * time.Second

	goodreadsMaxReviews  = 12
	goodreadsMinContent  = 50
	goodreadsMinReview   = 100
	goodreadsMinPageText = 500
	goodreadsMaxPageText = 3000
)

// Goodreads markup changes often, so each lookup tries several selectors
// in order and keeps the first that matches.
var (
	goodreadsResultSelectors = []string{
		"a.bookTitle",
		`a[href*="/book/show/"]`,
		".bookTitle a",
		`table.tableList a[href*="/book/show/"]`,
	}
	goodreadsReviewSelectors = []string{
		`[data-testid="review"]`,
		".ReviewCard",
		"article.ReviewCard",
		`[itemprop="reviews"]`,
		".review",
	}
	goodreadsContentSelectors = []string{
		`[data-testid="contentContainer"]`,
		".ReviewText__content",
		".ReviewCard__text",
		`.readable span[style*="display"]`,
		"span.readable",
	}
)

const (
	goodreadsRatingSelector = `[aria-label*="star"], [data-testid*="rating"], .RatingStars`
	goodreadsPageSelector   = ".BookPage__mainContent, main"
)

var firstDigit = regexp.MustCompile(`\d`)

var errNoBook = errors.New("no matching book")

// Goodreads reads reader reviews from the book's Goodreads page.
type Goodreads struct {
	base
}

// NewGoodreads creates the review-site scraper.
func NewGoodreads(opts Options) *Goodreads {
	return &Goodreads{base: newBase(models.SourceGoodreads, models.StepGoodreads, goodreadsURL, opts)}
}

// Fetch returns reader_review chunks, rated where the page shows stars.
func (g *Goodreads) Fetch(ctx context.Context, title, author string) []models.Chunk {
	return g.run(ctx, title, author, g.scrape)
}

func (g *Goodreads) scrape(ctx context.Context, title, author string) ([]models.Chunk, error) {
	searchURL := g.endpoint("/search?q=" + url.QueryEscape(title+" "+author))
	results, err := g.page(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	href := firstAttr(results, goodreadsResultSelectors, "href")
	if href == "" {
		return nil, errNoBook
	}
	bookURL, err := g.resolve(href)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("book page found", "url", bookURL.String())

	doc, err := g.page(ctx, bookURL.String())
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	reviews := firstMatch(doc.Selection, goodreadsReviewSelectors)
	reviews.EachWithBreak(func(i int, review *goquery.Selection) bool {
		if i >= goodreadsMaxReviews {
			return false
		}
		text := reviewText(review)
		if runeLen(text) > goodreadsMinReview {
			chunks = append(chunks, g.chunk(text, bookURL.String(), models.ChunkReaderReview, reviewRating(review))...)
		}
		return true
	})

	if len(chunks) == 0 {
		g.logger.Debug("no structured reviews, using page text", "url", bookURL.String())
		page := strings.Join(strings.Fields(doc.Find(goodreadsPageSelector).First().Text()), " ")
		if runeLen(page) > goodreadsMinPageText {
			text := "[Goodreads page content for " + title + "]\n" + models.TruncateRunes(page, goodreadsMaxPageText)
			chunks = g.chunk(text, bookURL.String(), models.ChunkReaderReview, 0)
		}
	}
	return chunks, nil
}

func (g *Goodreads) page(ctx context.Context, u string) (*goquery.Document, error) {
	return fetch.GetHTML(ctx, g.client, fetch.Request{
		URL:     u,
		Timeout: goodreadsTimeout,
		Headers: map[string]string{
			"User-Agent":      fetch.BrowserUserAgent,
			"Accept-Language": "en-US",
		},
	})
}

// reviewText is the trimmed text of the first content selector holding
// more than a fragment of text.
func reviewText(review *goquery.Selection) string {
	var text string
	for _, sel := range goodreadsContentSelectors {
		text = strings.TrimSpace(review.Find(sel).First().Text())
		if runeLen(text) > goodreadsMinContent {
			break
		}
	}
	return text
}

// reviewRating reads a 1-5 star rating from the review's aria label; 0 if absent.
func reviewRating(review *goquery.Selection) int {
	label, ok := review.Find(goodreadsRatingSelector).First().Attr("aria-label")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(firstDigit.FindString(label))
	if err != nil || n < 1 || n > 5 {
		return 0
	}
	return n
}

func firstMatch(s *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if found := s.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return s.Find(selectors[0])
}

func firstAttr(doc *goquery.Document, selectors []string, attr string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
