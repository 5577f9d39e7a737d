package catalog

import "github.com/raphaelgruber/bookpack/internal/models"

// partial is what one catalog knows about a book. Zero values mean unknown.
type partial struct {
	Title        string
	Author       string
	Year         int
	Cover        string
	Synopsis     string
	Genre        []string
	PageCount    int
	Rating       *float64
	RatingsCount *int
}

// merge combines per field: primary, then secondary, then the input record,
// then the zero default. Title and author never come from the secondary,
// whose text-query match may be a different edition or book.
func merge(in models.BookMetadata, primary, secondary partial) models.BookMetadata {
	out := models.BookMetadata{
		ID:              in.ID,
		Title:           firstNonEmpty(primary.Title, in.Title),
		Author:          firstNonEmpty(primary.Author, in.Author),
		Year:            firstPositive(primary.Year, secondary.Year, in.Year),
		Cover:           firstNonEmpty(primary.Cover, secondary.Cover, in.Cover),
		Synopsis:        firstNonEmpty(primary.Synopsis, secondary.Synopsis, in.Synopsis),
		Genre:           firstList(primary.Genre, secondary.Genre, in.Genre),
		PageCount:       firstPositive(primary.PageCount, secondary.PageCount, in.PageCount),
		GoodreadsRating: primary.Rating,
		RatingsCount:    primary.RatingsCount,
	}
	normalize(&out)
	return out
}

// normalize applies field bounds and replaces nil lists.
func normalize(m *models.BookMetadata) {
	m.Synopsis = models.TruncateRunes(m.Synopsis, models.MaxSynopsisLen)
	if len(m.Genre) > models.MaxGenres {
		m.Genre = m.Genre[:models.MaxGenres]
	}
	if m.Genre == nil {
		m.Genre = []string{}
	}
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstList(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return append([]string(nil), l...)
		}
	}
	return []string{}
}
