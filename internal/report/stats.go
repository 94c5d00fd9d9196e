package report

import "github.com/tracelens/trace-console/internal/artifact"

// SMSStats is the frozen message summary stored in a snapshot.
type SMSStats struct {
	TotalMessages             int `json:"totalMessages"`
	SuspiciousMessages        int `json:"suspiciousMessages"`
	FraudMessages             int `json:"fraudMessages"`
	CriminalMessages          int `json:"criminalMessages"`
	CyberbullyingMessages     int `json:"cyberbullyingMessages"`
	ThreatMessages            int `json:"threatMessages"`
	NegativeSentimentMessages int `json:"negativeSentimentMessages"`
}

// CallStats is the frozen call summary stored in a snapshot.
type CallStats struct {
	TotalCalls    int `json:"totalCalls"`
	IncomingCalls int `json:"incomingCalls"`
	OutgoingCalls int `json:"outgoingCalls"`
	MissedCalls   int `json:"missedCalls"`
}

// ContactStats is the frozen contact summary stored in a snapshot.
type ContactStats struct {
	TotalContacts int `json:"totalContacts"`
}

// ComputeSMSStats tallies message statistics directly from the store.
func ComputeSMSStats(st *artifact.Store) SMSStats {
	var s SMSStats
	for i := range st.Messages {
		m := &st.Messages[i]
		s.TotalMessages++
		if m.Suspicious {
			s.SuspiciousMessages++
		}
		switch m.Category {
		case artifact.CategoryFraud:
			s.FraudMessages++
		case artifact.CategoryCriminal:
			s.CriminalMessages++
		case artifact.CategoryCyberbullying:
			s.CyberbullyingMessages++
		case artifact.CategoryThreat:
			s.ThreatMessages++
		case artifact.CategoryNegativeSentiment:
			s.NegativeSentimentMessages++
		}
	}
	return s
}

// ComputeCallStats tallies call statistics directly from the store.
func ComputeCallStats(st *artifact.Store) CallStats {
	var s CallStats
	for i := range st.Calls {
		s.TotalCalls++
		switch st.Calls[i].Direction {
		case artifact.CallIncoming:
			s.IncomingCalls++
		case artifact.CallOutgoing:
			s.OutgoingCalls++
		case artifact.CallMissed:
			s.MissedCalls++
		}
	}
	return s
}

// ComputeContactStats tallies contact statistics directly from the store.
func ComputeContactStats(st *artifact.Store) ContactStats {
	return ContactStats{TotalContacts: len(st.Contacts)}
}
