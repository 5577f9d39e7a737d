package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/raphaelgruber/bookpack/internal/fetch"
	"github.com/raphaelgruber/bookpack/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	olTimeout       = 10 * time.Second
	olAuthorTimeout = 5 * time.Second
	olSearchTimeout = 8 * time.Second
	olSearchFields  = "key,title,author_name,first_publish_year,cover_i"
)

type olSearchResponse struct {
	Docs []struct {
		Key              string   `json:"key"`
		Title            string   `json:"title"`
		AuthorName       []string `json:"author_name"`
		FirstPublishYear int      `json:"first_publish_year"`
		CoverI           int      `json:"cover_i"`
	} `json:"docs"`
}

type olWork struct {
	Title   string `json:"title"`
	Authors []struct {
		Author struct {
			Key string `json:"key"`
		} `json:"author"`
	} `json:"authors"`
	Covers           []int           `json:"covers"`
	Description      json.RawMessage `json:"description"`
	FirstPublishDate string          `json:"first_publish_date"`
	Subjects         []string        `json:"subjects"`
}

type olRatings struct {
	Summary struct {
		Average *float64 `json:"average"`
		Count   *int     `json:"count"`
	} `json:"summary"`
}

type olEditions struct {
	Entries []struct {
		NumberOfPages int    `json:"number_of_pages"`
		PublishDate   string `json:"publish_date"`
	} `json:"entries"`
}

type olAuthor struct {
	Name string `json:"name"`
}

func (c *Catalog) searchOpenLibrary(ctx context.Context, query string) ([]models.SearchResult, error) {
	u := fmt.Sprintf("%s/search.json?q=%s&limit=%d&fields=%s",
		c.openLibraryURL, url.QueryEscape(query), maxResults, olSearchFields)

	var resp olSearchResponse
	if err := fetch.GetJSON(ctx, c.client, fetch.Request{URL: u, Timeout: olSearchTimeout}, &resp); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(resp.Docs))
	for _, doc := range resp.Docs {
		r := models.SearchResult{
			ID:     strings.TrimPrefix(doc.Key, "/works/"),
			Title:  doc.Title,
			Author: models.UnknownAuthor,
			Year:   doc.FirstPublishYear,
		}
		if len(doc.AuthorName) > 0 && doc.AuthorName[0] != "" {
			r.Author = doc.AuthorName[0]
		}
		if doc.CoverI > 0 {
			r.Cover = c.coverURL(doc.CoverI, "M")
		}
		results = append(results, r)
	}
	return results, nil
}

// fetchOpenLibrary loads a work with its ratings, editions and first author.
// Only a failed work request is an error; the rest degrade to empty fields.
func (c *Catalog) fetchOpenLibrary(ctx context.Context, workID string) (partial, error) {
	base := c.openLibraryURL + "/works/" + url.PathEscape(workID)

	var (
		work     olWork
		ratings  olRatings
		editions olEditions
	)

	var g errgroup.Group
	g.Go(func() error {
		return fetch.GetJSON(ctx, c.client, fetch.Request{URL: base + ".json", Timeout: olTimeout}, &work)
	})
	g.Go(func() error {
		if err := fetch.GetJSON(ctx, c.client, fetch.Request{URL: base + "/ratings.json", Timeout: olTimeout}, &ratings); err != nil {
			c.logger.Debug("open library ratings unavailable", "work_id", workID, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := fetch.GetJSON(ctx, c.client, fetch.Request{URL: base + "/editions.json?limit=5", Timeout: olTimeout}, &editions); err != nil {
			c.logger.Debug("open library editions unavailable", "work_id", workID, "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return partial{}, fmt.Errorf("open library work %s: %w", workID, err)
	}

	p := partial{
		Title:    work.Title,
		Synopsis: descriptionText(work.Description),
		Genre:    work.Subjects,
	}

	if len(work.Authors) > 0 && work.Authors[0].Author.Key != "" {
		var author olAuthor
		u := c.openLibraryURL + work.Authors[0].Author.Key + ".json"
		if err := fetch.GetJSON(ctx, c.client, fetch.Request{URL: u, Timeout: olAuthorTimeout}, &author); err != nil {
			c.logger.Debug("open library author unavailable", "work_id", workID, "error", err)
		}
		p.Author = author.Name
	}

	for _, id := range work.Covers {
		if id > 0 {
			p.Cover = c.coverURL(id, "L")
			break
		}
	}

	if work.FirstPublishDate != "" {
		p.Year = leadingInt(work.FirstPublishDate)
	} else if len(editions.Entries) > 0 {
		p.Year = leadingInt(editions.Entries[0].PublishDate)
	}

	for _, e := range editions.Entries {
		if e.NumberOfPages > 0 {
			p.PageCount = e.NumberOfPages
			break
		}
	}

	if avg := ratings.Summary.Average; avg != nil && *avg > 0 {
		rounded := math.Round(*avg*10) / 10
		p.Rating = &rounded
	}
	p.RatingsCount = ratings.Summary.Count

	return p, nil
}

func (c *Catalog) coverURL(id int, size string) string {
	return fmt.Sprintf("%s/b/id/%d-%s.jpg", c.coversURL, id, size)
}

// descriptionText handles both `"description": "..."` and
// `"description": {"type": "/type/text", "value": "..."}`.
func descriptionText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Value
	}
	return ""
}

// leadingInt parses the integer prefix of s ("1954", "2005-03-01");
// anything else yields 0.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	n := 0
	digits := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
		if digits > 9 {
			break
		}
	}
	return n
}
