// Package models defines data structures for book knowledge packs.
package models

import "strings"

// GoogleIDPrefix marks ids that come from the Google Books catalog.
// Ids without it are Open Library work ids (e.g. "OL45804W").
const GoogleIDPrefix = "gb_"

// Field bounds for enriched metadata.
const (
	MaxSynopsisLen = 2000
	MaxGenres      = 5
)

// UnknownAuthor and UnknownTitle fill records the catalogs could not name.
const (
	UnknownAuthor = "Unknown Author"
	UnknownTitle  = "Unknown Title"
)

// BookMetadata is the canonical identity record of a book.
type BookMetadata struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	Year            int      `json:"year"`
	Cover           string   `json:"cover"`
	Synopsis        string   `json:"synopsis"`
	Genre           []string `json:"genre"`
	PageCount       int      `json:"pageCount"`
	GoodreadsRating *float64 `json:"goodreadsRating,omitempty"`
	RatingsCount    *int     `json:"ratingsCount,omitempty"`
}

// IsGoogleID reports whether id was issued by the Google Books catalog.
func IsGoogleID(id string) bool {
	return strings.HasPrefix(id, GoogleIDPrefix)
}

// SearchResult is a lightweight catalog hit.
type SearchResult struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
	Cover  string `json:"cover"`
}

// DedupeKey identifies a result across catalogs by lowercase title and author.
func (r SearchResult) DedupeKey() string {
	return strings.ToLower(r.Title) + "-" + strings.ToLower(r.Author)
}

// Book detail freshness.
const (
	DetailsCached = "cached"
	DetailsFresh  = "fresh"
)

// BookDetails is a book lookup result: the ingested pack's metadata when
// one exists, else freshly fetched catalog metadata.
type BookDetails struct {
	Status   string       `json:"status"`
	Metadata BookMetadata `json:"metadata"`
}
