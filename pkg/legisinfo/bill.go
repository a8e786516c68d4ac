// Package legisinfo decodes bill records from the LEGISinfo XML feed.
//
// A list page holds repeated Bill elements; the single-bill endpoint returns
// one Bill element as the document root. Optional sections (status events,
// publications, sponsor) are exposed through accessors that report absence
// with a nil result rather than an error.
package legisinfo

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/agentstation/legisync/pkg/errors"
)

// Language codes used in Title elements.
const (
	English = "en"
	French  = "fr"
)

// Bill is one bill record.
type Bill struct {
	XMLName           xml.Name            `xml:"Bill"`
	ID                int64               `xml:"id,attr"`
	Number            BillNumber          `xml:"BillNumber"`
	Titles            Titles              `xml:"BillTitle>Title"`
	ShortTitles       Titles              `xml:"ShortTitle>Title"`
	Sponsor           *SponsorAffiliation `xml:"SponsorAffiliation"`
	IntroducedDate    *string             `xml:"BillIntroducedDate"`
	LastMajorStage    *Event              `xml:"Events>LastMajorStageEvent>Event"`
	Publications      []Publication       `xml:"Publications>Publication"`
	ParliamentSession *ParliamentSession  `xml:"ParliamentSession"`
}

// BillNumber is the chamber prefix, sequence number and optional suffix.
type BillNumber struct {
	Prefix string `xml:"prefix,attr"`
	Number string `xml:"number,attr"`
	Suffix string `xml:"suffix,attr"`
}

// String formats the number as used in the catalog, e.g. "C-10" or "C-2A".
func (n BillNumber) String() string {
	return n.Prefix + "-" + n.Number + n.Suffix
}

// Title is a title in one language.
type Title struct {
	Language string `xml:"language,attr"`
	Text     string `xml:",chardata"`
}

// Titles is a set of per-language titles.
type Titles []Title

// Get returns the title in lang, or nil when the record has none.
func (ts Titles) Get(lang string) *string {
	for i := range ts {
		if ts[i].Language == lang {
			return &ts[i].Text
		}
	}
	return nil
}

// SponsorAffiliation identifies the sponsoring politician.
type SponsorAffiliation struct {
	ID string `xml:"id,attr"`
}

// Event is a legislative stage event.
type Event struct {
	Date   string `xml:"date,attr"`
	Status Titles `xml:"Status>Title"`
}

// Publication is a published version of the bill text.
type Publication struct {
	ID string `xml:"id,attr"`
}

// ParliamentSession identifies the session a single-bill record belongs to.
type ParliamentSession struct {
	ParliamentNumber int `xml:"parliamentNumber,attr"`
	SessionNumber    int `xml:"sessionNumber,attr"`
}

// DecodePage decodes a list page. Bill elements are collected wherever they
// appear under the root.
func DecodePage(r io.Reader) ([]*Bill, error) {
	var bills []*Bill
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return bills, nil
		}
		if err != nil {
			return nil, errors.WrapParse("xml", "", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Bill" {
			continue
		}
		var bill Bill
		if err := dec.DecodeElement(&bill, &start); err != nil {
			return nil, errors.WrapParse("xml", "", err)
		}
		bills = append(bills, &bill)
	}
}

// DecodeBill decodes a single-bill document whose root is a Bill element.
func DecodeBill(r io.Reader) (*Bill, error) {
	var bill Bill
	if err := xml.NewDecoder(r).Decode(&bill); err != nil {
		return nil, errors.WrapParse("xml", "", err)
	}
	return &bill, nil
}

// SponsorParlID returns the sponsor's feed identifier, or 0 when the record
// names no sponsor.
func (b *Bill) SponsorParlID() (int64, error) {
	if b.Sponsor == nil || strings.TrimSpace(b.Sponsor.ID) == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(b.Sponsor.ID), 10, 64)
	if err != nil {
		return 0, errors.NewParseError("xml", b.Sponsor.ID, "invalid sponsor id", err)
	}
	return id, nil
}

// Introduced returns the introduction date, or nil when absent.
func (b *Bill) Introduced() (*civil.Date, error) {
	if b.IntroducedDate == nil || strings.TrimSpace(*b.IntroducedDate) == "" {
		return nil, nil
	}
	d, err := ParseDate(*b.IntroducedDate)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Status is the latest major stage the bill reached.
type Status struct {
	EN   string
	FR   *string
	Date *civil.Date
}

// Status returns the latest major stage, or nil when the record predates
// status reporting.
func (b *Bill) Status() (*Status, error) {
	if b.LastMajorStage == nil {
		return nil, nil
	}
	en := b.LastMajorStage.Status.Get(English)
	if en == nil {
		return nil, nil
	}
	status := &Status{EN: *en, FR: b.LastMajorStage.Status.Get(French)}
	if strings.TrimSpace(b.LastMajorStage.Date) != "" {
		d, err := ParseDate(b.LastMajorStage.Date)
		if err != nil {
			return nil, err
		}
		status.Date = &d
	}
	return status, nil
}

// TextDocID returns the id of the most recent publication, or nil when the
// bill has not been published.
func (b *Bill) TextDocID() (*int64, error) {
	if len(b.Publications) == 0 {
		return nil, nil
	}
	raw := strings.TrimSpace(b.Publications[len(b.Publications)-1].ID)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.NewParseError("xml", raw, "invalid publication id", err)
	}
	return &id, nil
}
