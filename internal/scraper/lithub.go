package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/raphaelgruber/bookpack/internal/fetch"
	"github.com/raphaelgruber/bookpack/internal/models"
)

const (
	literaryHubURL     = "https://lithub.com"
	literaryHubTimeout = 10 * time.Second

	literaryHubMaxArticles  = 2
	literaryHubMinParagraph = 50
	literaryHubMinBody      = 200

	literaryHubLinkSelector      = "article a, .post-title a, h2 a, h3 a"
	literaryHubParagraphSelector = "article p, .entry-content p, .post-content p"
)

// LiteraryHub reads essays and reviews from Literary Hub search results.
type LiteraryHub struct {
	base
}

// NewLiteraryHub creates the literary-magazine scraper.
func NewLiteraryHub(opts Options) *LiteraryHub {
	return &LiteraryHub{base: newBase(models.SourceLiteraryHub, models.StepCriticReviews, literaryHubURL, opts)}
}

// Fetch returns critic_review chunks.
func (l *LiteraryHub) Fetch(ctx context.Context, title, author string) []models.Chunk {
	return l.run(ctx, title, author, l.scrape)
}

func (l *LiteraryHub) scrape(ctx context.Context, title, author string) ([]models.Chunk, error) {
	results, err := l.page(ctx, l.endpoint("/?s="+url.QueryEscape(title+" "+author)))
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	for _, link := range l.articleLinks(results) {
		doc, err := l.page(ctx, link)
		if err != nil {
			l.logger.Debug("article fetch failed", "url", link, "error", err)
			continue
		}

		heading := strings.TrimSpace(doc.Find("h1").First().Text())
		var body strings.Builder
		doc.Find(literaryHubParagraphSelector).Each(func(_ int, p *goquery.Selection) {
			if text := strings.TrimSpace(p.Text()); runeLen(text) > literaryHubMinParagraph {
				body.WriteString(text)
				body.WriteByte(' ')
			}
		})

		text := strings.TrimSpace(body.String())
		if runeLen(text) <= literaryHubMinBody {
			continue
		}
		chunks = append(chunks, l.chunk("[Literary Hub — "+heading+"]\n"+text, link, models.ChunkCriticReview, 0)...)
	}
	return chunks, nil
}

// articleLinks returns the first distinct on-site links of a results page.
func (l *LiteraryHub) articleLinks(doc *goquery.Document) []string {
	var links []string
	seen := make(map[string]bool)
	doc.Find(literaryHubLinkSelector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		u, err := l.resolve(href)
		if err != nil || u.Host != l.baseURL.Host {
			return true
		}
		link := u.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
		return len(links) < literaryHubMaxArticles
	})
	return links
}

func (l *LiteraryHub) page(ctx context.Context, u string) (*goquery.Document, error) {
	return fetch.GetHTML(ctx, l.client, fetch.Request{
		URL:     u,
		Timeout: literaryHubTimeout,
		Headers: map[string]string{"User-Agent": fetch.BrowserUserAgent},
	})
}
