package reddit

import (
	"encoding/json"
	"math"
	"time"

	"github.com/ignite/profilebot/internal/domain"
)

// listing is the envelope Reddit wraps every collection in.
type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string    `json:"kind"`
	Data thingData `json:"data"`
}

// thingData holds the union of submission and comment fields we read.
type thingData struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Author     string  `json:"author"`
	CreatedUTC float64 `json:"created_utc"`
	Title      string  `json:"title"`
	SelfText   string  `json:"selftext"`
	URL        string  `json:"url"`
	IsSelf     bool    `json:"is_self"`
	Body       string  `json:"body"`
	LinkID     string  `json:"link_id"`
	ParentID   string  `json:"parent_id"`
	Score      int     `json:"score"`
}

// commentResponse is the api_type=json reply of POST /api/comment.
type commentResponse struct {
	JSON struct {
		Errors [][]interface{} `json:"errors"`
		Data   struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

const deletedMarker = "[deleted]"

func unixTime(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}

func author(name string) string {
	if name == deletedMarker {
		return ""
	}
	return name
}

func (d thingData) submission() *domain.Submission {
	return &domain.Submission{
		ID:         d.ID,
		Author:     author(d.Author),
		CreatedUTC: unixTime(d.CreatedUTC),
		Title:      d.Title,
		SelfText:   d.SelfText,
		URL:        d.URL,
		IsSelf:     d.IsSelf,
	}
}

func (d thingData) comment() *domain.Comment {
	return &domain.Comment{
		ID:         d.ID,
		Author:     author(d.Author),
		CreatedUTC: unixTime(d.CreatedUTC),
		Body:       d.Body,
		LinkID:     d.LinkID,
		ParentID:   d.ParentID,
		Score:      d.Score,
	}
}

// items converts listing children into content items, skipping kinds other
// than comments and submissions.
func (l listing) items() []domain.ContentItem {
	out := make([]domain.ContentItem, 0, len(l.Data.Children))
	for _, c := range l.Data.Children {
		switch c.Kind {
		case "t3":
			out = append(out, c.Data.submission())
		case "t1":
			out = append(out, c.Data.comment())
		}
	}
	return out
}

func decodeListing(data []byte) (listing, error) {
	var l listing
	err := json.Unmarshal(data, &l)
	return l, err
}
