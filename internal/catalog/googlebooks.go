package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/raphaelgruber/bookpack/internal/fetch"
	"github.com/raphaelgruber/bookpack/internal/models"
)

const gbTimeout = 8 * time.Second

type gbVolumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	PublishedDate string   `json:"publishedDate"`
	Description   string   `json:"description"`
	Categories    []string `json:"categories"`
	PageCount     int      `json:"pageCount"`
	ImageLinks    struct {
		SmallThumbnail string `json:"smallThumbnail"`
		Thumbnail      string `json:"thumbnail"`
		Large          string `json:"large"`
	} `json:"imageLinks"`
}

type gbVolume struct {
	ID         string       `json:"id"`
	VolumeInfo gbVolumeInfo `json:"volumeInfo"`
}

type gbVolumes struct {
	Items []gbVolume `json:"items"`
}

// volumesURL builds a volumes query; the key is only sent when configured.
func (c *Catalog) volumesURL(query string, limit int) string {
	u := fmt.Sprintf("%s/volumes?q=%s&maxResults=%d", c.googleBooksURL, url.QueryEscape(query), limit)
	if c.googleAPIKey != "" {
		u += "&key=" + url.QueryEscape(c.googleAPIKey)
	}
	return u
}

func (c *Catalog) searchGoogleBooks(ctx context.Context, query string) ([]models.SearchResult, error) {
	var resp gbVolumes
	if err := fetch.GetJSON(ctx, c.client, fetch.Request{URL: c.volumesURL(query, maxResults), Timeout: gbTimeout}, &resp); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		info := item.VolumeInfo
		results = append(results, models.SearchResult{
			ID:     models.GoogleIDPrefix + item.ID,
			Title:  info.Title,
			Author: firstOr(info.Authors, models.UnknownAuthor),
			Year:   leadingInt(prefix(info.PublishedDate, 4)),
			Cover:  httpsURL(firstNonEmpty(info.ImageLinks.Thumbnail, info.ImageLinks.SmallThumbnail)),
		})
	}
	return results, nil
}

// fetchGoogleBooksByQuery takes the best match for "title author".
func (c *Catalog) fetchGoogleBooksByQuery(ctx context.Context, title, author string) (partial, error) {
	var resp gbVolumes
	u := c.volumesURL(strings.TrimSpace(title+" "+author), 1)
	if err := fetch.GetJSON(ctx, c.client, fetch.Request{URL: u, Timeout: gbTimeout}, &resp); err != nil {
		return partial{}, err
	}
	if len(resp.Items) == 0 {
		return partial{}, nil
	}

	info := resp.Items[0].VolumeInfo
	return partial{
		Year:      leadingInt(prefix(info.PublishedDate, 4)),
		Cover:     httpsURL(firstNonEmpty(info.ImageLinks.Large, info.ImageLinks.Thumbnail)),
		Synopsis:  info.Description,
		Genre:     info.Categories,
		PageCount: info.PageCount,
	}, nil
}

// fetchGoogleBooksVolume loads a single volume by its Google id (without prefix).
func (c *Catalog) fetchGoogleBooksVolume(ctx context.Context, volumeID string) (*models.BookMetadata, error) {
	u := fmt.Sprintf("%s/volumes/%s", c.googleBooksURL, url.PathEscape(volumeID))
	if c.googleAPIKey != "" {
		u += "?key=" + url.QueryEscape(c.googleAPIKey)
	}

	var vol gbVolume
	if err := fetch.GetJSON(ctx, c.client, fetch.Request{URL: u, Timeout: gbTimeout}, &vol); err != nil {
		return nil, err
	}
	info := vol.VolumeInfo
	if info.Title == "" && len(info.Authors) == 0 {
		return nil, models.ErrNotFound
	}

	meta := &models.BookMetadata{
		ID:        models.GoogleIDPrefix + volumeID,
		Title:     firstNonEmpty(info.Title, models.UnknownTitle),
		Author:    firstOr(info.Authors, models.UnknownAuthor),
		Year:      leadingInt(prefix(info.PublishedDate, 4)),
		Cover:     httpsURL(firstNonEmpty(info.ImageLinks.Large, info.ImageLinks.Thumbnail)),
		Synopsis:  info.Description,
		Genre:     info.Categories,
		PageCount: info.PageCount,
	}
	normalize(meta)
	return meta, nil
}

func httpsURL(u string) string {
	return strings.Replace(u, "http://", "https://", 1)
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 && values[0] != "" {
		return values[0]
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
