package domain

import "time"

// HourBucket is the UTC hour-of-day (0-23) of a timestamp. It partitions the
// seen index; it deliberately ignores the date.
type HourBucket int

// BucketOf returns the hour bucket for t.
func BucketOf(t time.Time) HourBucket {
	return HourBucket(t.UTC().Hour())
}
