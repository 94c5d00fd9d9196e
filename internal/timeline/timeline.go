// Package timeline buckets messages and calls chronologically by the device's
// original timestamps, producing ordered per-bucket statistics.
package timeline

import (
	"sort"
	"time"

	"github.com/tracelens/trace-console/internal/artifact"
)

// Granularity selects the bucket width.
type Granularity string

const (
	// Day buckets records by calendar date, the default the dashboard shows.
	Day Granularity = "day"
	// Hour buckets records by date and hour for finer-grained review.
	Hour Granularity = "hour"
)

// ParseGranularity maps a config string to a Granularity, defaulting to Day.
func ParseGranularity(s string) Granularity {
	if Granularity(s) == Hour {
		return Hour
	}
	return Day
}

func (g Granularity) layout() string {
	if g == Hour {
		return "2006-01-02 15:00"
	}
	return "2006-01-02"
}

// Bucket aggregates every record falling in one calendar period.
// Record lists reference store-owned records.
type Bucket struct {
	Date               string                 `json:"date"`
	Start              time.Time              `json:"-"`
	TotalMessages      int                    `json:"totalMessages"`
	SuspiciousMessages int                    `json:"suspiciousMessages"`
	TotalCalls         int                    `json:"totalCalls"`
	IncomingCalls      int                    `json:"incomingCalls"`
	OutgoingCalls      int                    `json:"outgoingCalls"`
	MissedCalls        int                    `json:"missedCalls"`
	Messages           []*artifact.Message    `json:"-"`
	Calls              []*artifact.CallRecord `json:"-"`
}

// Result carries the ordered buckets plus the count of records excluded
// because their timestamp could not be parsed. Excluded records are never
// merged into an arbitrary bucket.
type Result struct {
	Buckets     []Bucket `json:"buckets"`
	Unparseable int      `json:"unparseable"`
}

// Aggregate partitions the store's messages and calls into buckets of the
// given granularity, ascending by date. Every record with a valid timestamp
// lands in exactly one bucket; within a bucket records keep timestamp order
// with insertion order breaking ties. Counts are direct tallies. Pure function.
func Aggregate(st *artifact.Store, g Granularity) Result {
	layout := g.layout()
	acc := make(map[string]*Bucket)
	var res Result

	get := func(ts time.Time) *Bucket {
		key := ts.UTC().Format(layout)
		b, ok := acc[key]
		if !ok {
			b = &Bucket{Date: key, Start: truncate(ts.UTC(), g)}
			acc[key] = b
		}
		return b
	}

	for i := range st.Messages {
		m := &st.Messages[i]
		if !m.TimeValid {
			res.Unparseable++
			continue
		}
		b := get(m.Timestamp)
		b.Messages = append(b.Messages, m)
		b.TotalMessages++
		if m.Suspicious {
			b.SuspiciousMessages++
		}
	}

	for i := range st.Calls {
		c := &st.Calls[i]
		if !c.TimeValid {
			res.Unparseable++
			continue
		}
		b := get(c.Timestamp)
		b.Calls = append(b.Calls, c)
		b.TotalCalls++
		switch c.Direction {
		case artifact.CallIncoming:
			b.IncomingCalls++
		case artifact.CallOutgoing:
			b.OutgoingCalls++
		case artifact.CallMissed:
			b.MissedCalls++
		}
	}

	res.Buckets = make([]Bucket, 0, len(acc))
	for _, b := range acc {
		sort.SliceStable(b.Messages, func(i, j int) bool {
			return b.Messages[i].Timestamp.Before(b.Messages[j].Timestamp)
		})
		sort.SliceStable(b.Calls, func(i, j int) bool {
			return b.Calls[i].Timestamp.Before(b.Calls[j].Timestamp)
		})
		res.Buckets = append(res.Buckets, *b)
	}
	sort.Slice(res.Buckets, func(i, j int) bool { return res.Buckets[i].Date < res.Buckets[j].Date })
	return res
}

func truncate(ts time.Time, g Granularity) time.Time {
	if g == Hour {
		return ts.Truncate(time.Hour)
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}
