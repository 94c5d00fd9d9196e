// Package urlscan extracts URLs from message bodies so links shared with a
// device can be reviewed separately from the conversations carrying them.
package urlscan

import (
	"regexp"

	"github.com/tracelens/trace-console/internal/artifact"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+|www\.[^\s<>"']+`)

// Entry is one message that carried at least one URL.
type Entry struct {
	Sender string   `json:"sender"`
	Date   string   `json:"date"`
	Body   string   `json:"body"`
	URLs   []string `json:"urls"`
}

// Result splits URL-bearing messages by the upstream suspicious flag.
type Result struct {
	SpamURLs    []Entry `json:"spamUrls"`
	NonSpamURLs []Entry `json:"nonSpamUrls"`
}

// Scan walks every message body and collects those containing URLs,
// preserving the store's message order.
func Scan(st *artifact.Store) Result {
	var res Result
	for i := range st.Messages {
		m := &st.Messages[i]
		urls := urlPattern.FindAllString(m.Body, -1)
		if len(urls) == 0 {
			continue
		}
		entry := Entry{
			Sender: m.Address,
			Date:   formatDate(m),
			Body:   m.Body,
			URLs:   urls,
		}
		if m.Suspicious {
			res.SpamURLs = append(res.SpamURLs, entry)
		} else {
			res.NonSpamURLs = append(res.NonSpamURLs, entry)
		}
	}
	return res
}

func formatDate(m *artifact.Message) string {
	if !m.TimeValid {
		return ""
	}
	return m.Timestamp.UTC().Format("2006-01-02 15:04:05")
}
