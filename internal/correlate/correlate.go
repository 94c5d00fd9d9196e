// Package correlate groups messages and calls by their normalized identity
// key, producing one record per distinct counterparty observed in the input.
package correlate

import (
	"sort"

	"github.com/tracelens/trace-console/internal/artifact"
)

// Record is the set of all messages and calls sharing one identity key.
// The record lists reference store-owned records; bodies are never copied.
type Record struct {
	Identity string                 `json:"number"`
	SMSCount int                    `json:"smsCount"`
	Messages []*artifact.Message    `json:"messages"`
	Calls    []*artifact.CallRecord `json:"callLogs"`
}

// Correlate builds one Record per distinct identity key present in the store.
// Keys present in only one source still produce a record with an empty list on
// the other side. The result is sorted ascending by identity key so repeated
// runs over the same input are byte-for-byte reproducible. Pure function.
func Correlate(st *artifact.Store) []Record {
	acc := make(map[string]*Record)

	get := func(identity string) *Record {
		r, ok := acc[identity]
		if !ok {
			r = &Record{Identity: identity}
			acc[identity] = r
		}
		return r
	}

	for i := range st.Messages {
		m := &st.Messages[i]
		r := get(m.Identity)
		r.Messages = append(r.Messages, m)
		r.SMSCount++
	}
	for i := range st.Calls {
		c := &st.Calls[i]
		r := get(c.Identity)
		r.Calls = append(r.Calls, c)
	}

	out := make([]Record, 0, len(acc))
	for _, r := range acc {
		sortMessages(r.Messages)
		sortCalls(r.Calls)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// sortMessages orders by timestamp; ties keep insertion order.
func sortMessages(msgs []*artifact.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}

func sortCalls(calls []*artifact.CallRecord) {
	sort.SliceStable(calls, func(i, j int) bool {
		return calls[i].Timestamp.Before(calls[j].Timestamp)
	})
}
