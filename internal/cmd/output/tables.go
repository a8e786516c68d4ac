package output

import (
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/reconciler"
)

var title = cases.Title(language.English)

// Label turns a machine name such as "needs-manual-merge" into a header label.
func Label(name string) string {
	return title.String(strings.NewReplacer("-", " ", "_", " ").Replace(name))
}

func id(n int64) string {
	if n == 0 {
		return "-"
	}
	return strconv.FormatInt(n, 10)
}

// SessionsTable renders sessions one per row.
func SessionsTable(sessions []*catalogs.Session) Data {
	data := Data{
		Headers: []string{"ID", "Name", "Start", "End"},
		Align:   []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft},
	}
	for _, s := range sessions {
		end := "sitting"
		if s.End != nil {
			end = s.End.String()
		}
		data.Rows = append(data.Rows, []string{s.ID, s.Name, s.Start.String(), end})
	}
	return data
}

// BillsTable renders bills one per row. Wide tables add the French name
// and the sponsor.
func BillsTable(bills []*catalogs.Bill, wide bool) Data {
	data := Data{Headers: []string{"ID", "Number", "Name", "Status", "Introduced", "Origin"}}
	if wide {
		data.Headers = append(data.Headers, "Name (FR)", "Sponsor")
	}
	for _, b := range bills {
		introduced := ""
		if !b.Introduced.IsZero() {
			introduced = b.Introduced.String()
		}
		row := []string{id(b.ID), b.Number, b.NameEN, b.StatusEN, introduced, b.OriginSessionID}
		if wide {
			row = append(row, b.NameFR, id(b.SponsorPoliticianID))
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

// SummaryTable renders outcome counts of an import.
func SummaryTable(s *reconciler.Summary) Data {
	data := Data{
		Headers: []string{"Outcome", "Bills"},
		Align:   []tw.Align{tw.AlignLeft, tw.AlignRight},
	}
	for _, outcome := range reconciler.Outcomes {
		data.Rows = append(data.Rows, []string{Label(string(outcome)), strconv.Itoa(s.Counts[outcome])})
	}
	data.Rows = append(data.Rows,
		[]string{"Records", strconv.Itoa(s.Records)},
		[]string{"Sponsor Activities", strconv.Itoa(len(s.Activities))},
	)
	return data
}

// ResultTable renders a single reconciled bill as key/value rows.
func ResultTable(r *reconciler.Result) Data {
	data := Data{Headers: []string{"Property", "Value"}}
	add := func(k, v string) { data.Rows = append(data.Rows, []string{k, v}) }
	add("Outcome", Label(string(r.Outcome)))
	if r.Bill != nil {
		add("Bill", id(r.Bill.ID))
		add("Number", r.Bill.Number)
		add("Name", r.Bill.NameEN)
		add("Status", r.Bill.StatusEN)
		add("Origin", r.Bill.OriginSessionID)
	}
	if r.Link != nil {
		add("Session", r.Link.SessionID)
		add("Legisinfo ID", id(r.Link.LegisinfoID))
	}
	if r.MergeIssue != nil {
		add("Issue", r.MergeIssue.Error())
	}
	return data
}
