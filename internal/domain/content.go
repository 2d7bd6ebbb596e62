package domain

import (
	"strings"
	"time"
)

// ContentItem is a submission or comment observed in the monitored subreddit.
// The interface is sealed: only *Submission and *Comment implement it.
type ContentItem interface {
	// ItemID is the platform id without the kind prefix ("abc123", not "t3_abc123").
	ItemID() string
	// AuthorName is empty when the author was deleted.
	AuthorName() string
	Created() time.Time
	// DiscussionID is the id of the submission the item belongs to.
	DiscussionID() string
	// Text is the searchable body of the item.
	Text() string

	contentItem()
}

// Submission is a top-level post.
type Submission struct {
	ID         string    `json:"id"`
	Author     string    `json:"author"`
	CreatedUTC time.Time `json:"created_utc"`
	Title      string    `json:"title"`
	SelfText   string    `json:"selftext"`
	URL        string    `json:"url"`
	IsSelf     bool      `json:"is_self"`
}

func (s *Submission) ItemID() string       { return s.ID }
func (s *Submission) AuthorName() string   { return s.Author }
func (s *Submission) Created() time.Time   { return s.CreatedUTC }
func (s *Submission) DiscussionID() string { return s.ID }

// Text returns the self text, followed by the link for link posts.
func (s *Submission) Text() string {
	if s.IsSelf || s.URL == "" {
		return s.SelfText
	}
	if s.SelfText == "" {
		return s.URL
	}
	return s.SelfText + "\n" + s.URL
}

func (*Submission) contentItem() {}

// Comment is a reply inside a submission's discussion.
type Comment struct {
	ID         string    `json:"id"`
	Author     string    `json:"author"`
	CreatedUTC time.Time `json:"created_utc"`
	Body       string    `json:"body"`
	// LinkID is the fullname of the owning submission ("t3_...").
	LinkID string `json:"link_id"`
	// ParentID is the fullname of the direct parent ("t1_..." or "t3_...").
	ParentID string `json:"parent_id"`
	Score    int    `json:"score"`
}

func (c *Comment) ItemID() string       { return c.ID }
func (c *Comment) AuthorName() string   { return c.Author }
func (c *Comment) Created() time.Time   { return c.CreatedUTC }
func (c *Comment) DiscussionID() string { return StripKind(c.LinkID) }
func (c *Comment) Text() string         { return c.Body }

// ParentItemID returns the parent's id without its kind prefix.
func (c *Comment) ParentItemID() string { return StripKind(c.ParentID) }

func (*Comment) contentItem() {}

// Kind prefixes used by Reddit fullnames.
const (
	KindComment    = "t1_"
	KindSubmission = "t3_"
)

// StripKind removes a "tN_" prefix from a fullname. Ids without a prefix are
// returned unchanged.
func StripKind(fullname string) string {
	if i := strings.IndexByte(fullname, '_'); i >= 0 {
		return fullname[i+1:]
	}
	return fullname
}

// Fullname returns the platform fullname of an item.
func Fullname(item ContentItem) string {
	switch v := item.(type) {
	case *Submission:
		return KindSubmission + v.ID
	case *Comment:
		return KindComment + v.ID
	default:
		return item.ItemID()
	}
}
