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
	guardianURL         = "https://content.guardianapis.com"
	guardianTimeout     = 10 * time.Second
	guardianMaxArticles = 4
	guardianMinText     = 100

	// GuardianPublicKey is the Content API's rate-limited developer key.
	GuardianPublicKey = "test"
)

type guardianSearch struct {
	Response struct {
		Results []struct {
			WebTitle string `json:"webTitle"`
			WebURL   string `json:"webUrl"`
			Fields   struct {
				BodyText   string `json:"bodyText"`
				Standfirst string `json:"standfirst"`
			} `json:"fields"`
		} `json:"results"`
	} `json:"response"`
}

// Guardian reads book reviews through The Guardian's Content API.
type Guardian struct {
	base
	apiKey string
}

// NewGuardian creates the news-outlet scraper. An empty key falls back to
// the public developer key.
func NewGuardian(opts Options, apiKey string) *Guardian {
	if apiKey == "" {
		apiKey = GuardianPublicKey
	}
	return &Guardian{
		base:   newBase(models.SourceGuardian, models.StepCriticReviews, guardianURL, opts),
		apiKey: apiKey,
	}
}

// Fetch returns critic_review chunks.
func (g *Guardian) Fetch(ctx context.Context, title, author string) []models.Chunk {
	return g.run(ctx, title, author, g.scrape)
}

func (g *Guardian) scrape(ctx context.Context, title, author string) ([]models.Chunk, error) {
	q := url.Values{}
	q.Set("q", title+" "+author)
	q.Set("section", "books")
	q.Set("api-key", g.apiKey)
	q.Set("show-fields", "bodyText,standfirst")
	q.Set("page-size", "5")

	var resp guardianSearch
	if err := fetch.GetJSON(ctx, g.client, fetch.Request{URL: g.endpoint("/search?" + q.Encode()), Timeout: guardianTimeout}, &resp); err != nil {
		return nil, err
	}

	results := resp.Response.Results
	if len(results) > guardianMaxArticles {
		results = results[:guardianMaxArticles]
	}

	var chunks []models.Chunk
	for _, article := range results {
		var parts []string
		if s := htmlText(article.Fields.Standfirst); s != "" {
			parts = append(parts, s)
		}
		if b := strings.TrimSpace(article.Fields.BodyText); b != "" {
			parts = append(parts, b)
		}
		combined := strings.Join(parts, "\n\n")
		if runeLen(combined) <= guardianMinText {
			continue
		}
		text := "[The Guardian — " + article.WebTitle + "]\n" + combined
		chunks = append(chunks, g.chunk(text, article.WebURL, models.ChunkCriticReview, 0)...)
	}
	return chunks, nil
}

// htmlText strips markup from an HTML fragment such as a standfirst.
func htmlText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" || !strings.Contains(fragment, "<") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(doc.Text())
}
