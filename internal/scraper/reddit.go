package scraper

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/raphaelgruber/bookpack/internal/fetch"
	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/raphaelgruber/bookpack/internal/parser"
	"golang.org/x/time/rate"
)

const (
	redditURL     = "https://www.reddit.com"
	redditTimeout = 12 * time.Second

	redditMaxPosts    = 6
	redditMaxComments = 4
	redditMinSelftext = 80
	redditMinComment  = 60
)

// RedditIntervals spaces consecutive requests. Zero values select the
// defaults; negative values disable spacing.
type RedditIntervals struct {
	Search  time.Duration
	Comment time.Duration
}

const (
	defaultSearchInterval  = 1000 * time.Millisecond
	defaultCommentInterval = 800 * time.Millisecond
)

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string      `json:"kind"`
			Data redditThing `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// redditThing holds the fields used from both posts (t3) and comments (t1).
type redditThing struct {
	Title       string `json:"title"`
	Selftext    string `json:"selftext"`
	Permalink   string `json:"permalink"`
	Subreddit   string `json:"subreddit"`
	NumComments int    `json:"num_comments"`
	Body        string `json:"body"`
	Score       int    `json:"score"`
}

// Reddit reads posts and top comments from book subreddits.
type Reddit struct {
	base
	searches *rate.Limiter
	comments *rate.Limiter
}

// NewReddit creates the forum scraper. The limiters are shared by every
// Fetch, so concurrent ingestions stay within the same request budget.
func NewReddit(opts Options, iv RedditIntervals) *Reddit {
	return &Reddit{
		base:     newBase(models.SourceReddit, models.StepReddit, redditURL, opts),
		searches: spacing(iv.Search, defaultSearchInterval),
		comments: spacing(iv.Comment, defaultCommentInterval),
	}
}

func spacing(d, def time.Duration) *rate.Limiter {
	switch {
	case d < 0:
		return rate.NewLimiter(rate.Inf, 1)
	case d == 0:
		d = def
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Fetch returns community_discussion chunks.
func (r *Reddit) Fetch(ctx context.Context, title, author string) []models.Chunk {
	return r.run(ctx, title, author, r.scrape)
}

func (r *Reddit) scrape(ctx context.Context, title, author string) ([]models.Chunk, error) {
	simple := url.QueryEscape(title)
	searches := []string{
		"/r/books/search.json?q=" + simple + "&restrict_sr=1&sort=relevance&limit=5&t=all",
		"/r/literature/search.json?q=" + simple + "&restrict_sr=1&sort=relevance&limit=3&t=all",
		"/search.json?q=" + url.QueryEscape(`"`+title+`" `+author) + "&sort=relevance&limit=5&type=link&t=all",
	}

	var (
		posts   []redditThing
		lastErr error
		failed  int
	)
	for _, path := range searches {
		if err := r.searches.Wait(ctx); err != nil {
			return nil, err
		}
		var listing redditListing
		if err := r.get(ctx, r.endpoint(path), &listing); err != nil {
			r.logger.Debug("search failed", "path", path, "error", err)
			lastErr = err
			failed++
			continue
		}
		for _, child := range listing.Data.Children {
			posts = append(posts, child.Data)
		}
	}
	if failed == len(searches) {
		return nil, lastErr
	}
	posts = topPosts(posts)
	r.logger.Debug("posts found", "title", title, "posts", len(posts))

	var chunks []models.Chunk
	for _, post := range posts {
		postURL := r.endpoint(post.Permalink)

		if text := parser.MarkdownToText(post.Selftext); !removed(post.Selftext) && runeLen(text) > redditMinSelftext {
			chunks = append(chunks, r.discussion(fmt.Sprintf("[r/%s: %s]\n%s", post.Subreddit, post.Title, text), postURL)...)
		}

		if err := r.comments.Wait(ctx); err != nil {
			return chunks, nil
		}
		var thread []redditListing
		if err := r.get(ctx, r.endpoint(post.Permalink+".json?limit=8&sort=top"), &thread); err != nil {
			r.logger.Debug("comments failed", "post", post.Permalink, "error", err)
			continue
		}
		for _, body := range topComments(thread) {
			chunks = append(chunks, r.discussion(fmt.Sprintf("[Discussion in r/%s]\n%s", post.Subreddit, body), postURL)...)
		}
	}
	return chunks, nil
}

func (r *Reddit) get(ctx context.Context, u string, out any) error {
	return fetch.GetJSON(ctx, r.client, fetch.Request{
		URL:     u,
		Timeout: redditTimeout,
		Headers: map[string]string{"User-Agent": fetch.BrowserUserAgent},
	}, out)
}

func (r *Reddit) discussion(text, postURL string) []models.Chunk {
	return r.base.chunk(text, postURL, models.ChunkCommunityDiscussion, 0)
}

// topPosts drops repeated permalinks and keeps the most-commented posts.
func topPosts(posts []redditThing) []redditThing {
	seen := make(map[string]bool, len(posts))
	out := make([]redditThing, 0, len(posts))
	for _, p := range posts {
		if p.Permalink == "" || seen[p.Permalink] {
			continue
		}
		seen[p.Permalink] = true
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NumComments > out[j].NumComments })
	if len(out) > redditMaxPosts {
		out = out[:redditMaxPosts]
	}
	return out
}

// topComments returns the flattened bodies of the highest-scored comments.
// The second listing of a thread response holds the comments.
func topComments(thread []redditListing) []string {
	if len(thread) < 2 {
		return nil
	}
	var comments []redditThing
	for _, child := range thread[1].Data.Children {
		if child.Kind != "t1" || removed(child.Data.Body) || runeLen(child.Data.Body) <= redditMinComment {
			continue
		}
		comments = append(comments, child.Data)
	}
	sort.SliceStable(comments, func(i, j int) bool { return comments[i].Score > comments[j].Score })
	if len(comments) > redditMaxComments {
		comments = comments[:redditMaxComments]
	}

	bodies := make([]string, 0, len(comments))
	for _, c := range comments {
		if text := parser.MarkdownToText(c.Body); text != "" {
			bodies = append(bodies, text)
		}
	}
	return bodies
}

func removed(text string) bool {
	return text == "[deleted]" || text == "[removed]"
}
