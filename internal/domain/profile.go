package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by collaborators when a profile, hero, reply, or
// discussion can no longer be resolved.
var ErrNotFound = errors.New("not found")

// ProfileKey identifies a resolved profile reply. Two replies with equal keys
// in the same discussion are duplicates.
type ProfileKey struct {
	Profile string `json:"profile"`
	HeroID  string `json:"hero_id"`
	Region  string `json:"region"`
}

func (k ProfileKey) String() string {
	hero := k.HeroID
	if hero == "" {
		hero = "default"
	}
	return fmt.Sprintf("%s/%s@%s", k.Profile, hero, k.Region)
}

// OwnPostRecord tracks one of the bot's own replies for self-moderation.
type OwnPostRecord struct {
	ReplyID      string    `json:"reply_id"`
	DiscussionID string    `json:"discussion_id"`
	PostedAt     time.Time `json:"posted_at"`
}

// Age returns how long ago the reply was posted, relative to now.
func (r OwnPostRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.PostedAt)
}
