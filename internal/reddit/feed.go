package reddit

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ignite/profilebot/internal/domain"
)

// FeedSource reads new submissions and comments from the subreddit's public
// Atom feeds. It needs no credentials and is used for dry runs.
type FeedSource struct {
	baseURL   string
	subreddit string
	parser    *gofeed.Parser
}

// NewFeedSource creates a feed reader rooted at baseURL (e.g. https://www.reddit.com).
func NewFeedSource(baseURL, subreddit, userAgent string, timeout time.Duration) *FeedSource {
	p := gofeed.NewParser()
	p.UserAgent = userAgent
	p.Client = &http.Client{Timeout: timeout}
	return &FeedSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		subreddit: subreddit,
		parser:    p,
	}
}

// Connect is a no-op; feeds are anonymous.
func (f *FeedSource) Connect(context.Context) error { return nil }

// FetchNewSubmissions reads /r/<sub>/new/.rss.
func (f *FeedSource) FetchNewSubmissions(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	feed, err := f.fetch(ctx, "/r/"+f.subreddit+"/new/.rss", limit)
	if err != nil {
		return nil, fmt.Errorf("reddit feed: new submissions: %w", err)
	}
	out := make([]domain.ContentItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if sub := feedSubmission(item); sub != nil {
			out = append(out, sub)
		}
	}
	return out, nil
}

// FetchNewComments reads /r/<sub>/comments/.rss.
func (f *FeedSource) FetchNewComments(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	feed, err := f.fetch(ctx, "/r/"+f.subreddit+"/comments/.rss", limit)
	if err != nil {
		return nil, fmt.Errorf("reddit feed: new comments: %w", err)
	}
	out := make([]domain.ContentItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if c := feedComment(item); c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *FeedSource) fetch(ctx context.Context, path string, limit int) (*gofeed.Feed, error) {
	u := f.baseURL + path + "?" + url.Values{"limit": {fmt.Sprint(limit)}}.Encode()
	return f.parser.ParseURLWithContext(u, ctx)
}

func feedSubmission(item *gofeed.Item) *domain.Submission {
	if !strings.HasPrefix(item.GUID, domain.KindSubmission) {
		return nil
	}
	return &domain.Submission{
		ID:         domain.StripKind(item.GUID),
		Author:     feedAuthor(item),
		CreatedUTC: feedTime(item),
		Title:      item.Title,
		SelfText:   html.UnescapeString(item.Content),
		IsSelf:     true,
	}
}

func feedComment(item *gofeed.Item) *domain.Comment {
	if !strings.HasPrefix(item.GUID, domain.KindComment) {
		return nil
	}
	linkID := submissionFromPermalink(item.Link)
	if linkID == "" {
		return nil
	}
	return &domain.Comment{
		ID:         domain.StripKind(item.GUID),
		Author:     feedAuthor(item),
		CreatedUTC: feedTime(item),
		Body:       html.UnescapeString(item.Content),
		LinkID:     domain.KindSubmission + linkID,
		// Feeds do not expose the direct parent; the submission stands in.
		ParentID: domain.KindSubmission + linkID,
	}
}

func feedAuthor(item *gofeed.Item) string {
	if item.Author == nil {
		return ""
	}
	name := strings.TrimPrefix(item.Author.Name, "/u/")
	return author(name)
}

func feedTime(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	default:
		return time.Time{}
	}
}

// submissionFromPermalink extracts "abc" from .../comments/abc/title/xyz/.
func submissionFromPermalink(link string) string {
	parts := strings.Split(strings.Trim(link, "/"), "/")
	for i, p := range parts {
		if p == "comments" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
