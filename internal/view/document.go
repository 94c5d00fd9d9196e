package view

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/tracelens/trace-console/internal/correlate"
	"github.com/tracelens/trace-console/internal/report"
	"github.com/tracelens/trace-console/internal/timeline"
)

// Exported documents use one fixed timestamp layout in UTC so that two
// exports of the same data are byte-identical regardless of the machine's
// locale or clock.
const documentTimeLayout = "2006-01-02 15:04:05 UTC"

const documentRule = "================================================================"

// RenderSnapshot renders a report snapshot into the fixed print layout:
// title, case metadata, then one section per data category. The output
// depends only on the snapshot's contents.
func RenderSnapshot(snap *report.Snapshot) []byte {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, documentRule)
	fmt.Fprintln(&buf, "                     INVESTIGATION REPORT")
	fmt.Fprintln(&buf, documentRule)
	fmt.Fprintf(&buf, "Case Number:  %s\n", snap.CaseNumber)
	fmt.Fprintf(&buf, "Investigator: %s\n", snap.Investigator)
	fmt.Fprintf(&buf, "Device Name:  %s\n", snap.DeviceName)
	fmt.Fprintf(&buf, "Remark:       %s\n", snap.Remark)
	fmt.Fprintf(&buf, "Created At:   %s\n", snap.CreatedAt.UTC().Format(documentTimeLayout))
	fmt.Fprintln(&buf)

	fmt.Fprintln(&buf, "SMS DATA")
	fmt.Fprintf(&buf, "  Total Messages:              %d\n", snap.SMS.TotalMessages)
	fmt.Fprintf(&buf, "  Suspicious Messages:         %d\n", snap.SMS.SuspiciousMessages)
	fmt.Fprintf(&buf, "  Fraud Messages:              %d\n", snap.SMS.FraudMessages)
	fmt.Fprintf(&buf, "  Criminal Messages:           %d\n", snap.SMS.CriminalMessages)
	fmt.Fprintf(&buf, "  Cyberbullying Messages:      %d\n", snap.SMS.CyberbullyingMessages)
	fmt.Fprintf(&buf, "  Threat Messages:             %d\n", snap.SMS.ThreatMessages)
	fmt.Fprintf(&buf, "  Negative Sentiment Messages: %d\n", snap.SMS.NegativeSentimentMessages)
	fmt.Fprintln(&buf)

	fmt.Fprintln(&buf, "CALL DATA")
	fmt.Fprintf(&buf, "  Total Calls:    %d\n", snap.Calls.TotalCalls)
	fmt.Fprintf(&buf, "  Incoming Calls: %d\n", snap.Calls.IncomingCalls)
	fmt.Fprintf(&buf, "  Outgoing Calls: %d\n", snap.Calls.OutgoingCalls)
	fmt.Fprintf(&buf, "  Missed Calls:   %d\n", snap.Calls.MissedCalls)
	fmt.Fprintln(&buf)

	fmt.Fprintln(&buf, "CONTACTS")
	fmt.Fprintf(&buf, "  Total Contacts: %d\n", snap.Contacts.TotalContacts)
	fmt.Fprintln(&buf, documentRule)

	return buf.Bytes()
}

// RenderCorrelation renders the correlation table: one block per distinct
// identity key with its messages and calls tabulated underneath.
func RenderCorrelation(records []correlate.Record) []byte {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, documentRule)
	fmt.Fprintln(&buf, "                      DATA CORRELATION")
	fmt.Fprintln(&buf, documentRule)

	if len(records) == 0 {
		fmt.Fprintln(&buf, "No data available.")
		return buf.Bytes()
	}

	for _, rec := range records {
		fmt.Fprintf(&buf, "\nNumber: %s (SMS: %d, Calls: %d)\n", rec.Identity, rec.SMSCount, len(rec.Calls))

		if len(rec.Messages) > 0 {
			tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "  DATE\tDIRECTION\tCATEGORY\tBODY")
			for _, m := range rec.Messages {
				fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
					formatRecordTime(m.Timestamp, m.TimeValid), m.Direction, m.Category, m.Body)
			}
			tw.Flush()
		} else {
			fmt.Fprintln(&buf, "  No SMS messages available.")
		}

		if len(rec.Calls) > 0 {
			tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "  DATE\tTYPE\tDURATION")
			for _, c := range rec.Calls {
				fmt.Fprintf(tw, "  %s\t%s\t%ds\n",
					formatRecordTime(c.Timestamp, c.TimeValid), c.Direction, c.Duration)
			}
			tw.Flush()
		} else {
			fmt.Fprintln(&buf, "  No call logs available.")
		}
	}

	return buf.Bytes()
}

// RenderTimeline renders the timeline table, one row per bucket, with the
// unparseable-record count surfaced in the footer rather than hidden.
func RenderTimeline(res timeline.Result) []byte {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, documentRule)
	fmt.Fprintln(&buf, "                      TIMELINE ANALYSIS")
	fmt.Fprintln(&buf, documentRule)

	if len(res.Buckets) == 0 {
		fmt.Fprintln(&buf, "No data available.")
	} else {
		tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tMESSAGES\tSUSPICIOUS\tCALLS\tINCOMING\tOUTGOING\tMISSED")
		for _, b := range res.Buckets {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
				b.Date, b.TotalMessages, b.SuspiciousMessages,
				b.TotalCalls, b.IncomingCalls, b.OutgoingCalls, b.MissedCalls)
		}
		tw.Flush()
	}

	if res.Unparseable > 0 {
		fmt.Fprintf(&buf, "\nExcluded records with unparseable timestamps: %d\n", res.Unparseable)
	}

	return buf.Bytes()
}

func formatRecordTime(ts time.Time, valid bool) string {
	if !valid {
		return "(invalid timestamp)"
	}
	return ts.UTC().Format(documentTimeLayout)
}
