package catalogs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloud.google.com/go/civil"

	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/errors"
)

func TestBillIsCommons(t *testing.T) {
	assert.True(t, (&catalogs.Bill{Number: "C-10"}).IsCommons())
	assert.True(t, (&catalogs.Bill{Number: "C-2A"}).IsCommons())
	assert.False(t, (&catalogs.Bill{Number: "S-4"}).IsCommons())
	assert.False(t, (&catalogs.Bill{}).IsCommons())
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "41-1", catalogs.SessionID(41, 1))

	parl, sess, err := catalogs.ParseSessionID("40-3")
	require.NoError(t, err)
	assert.Equal(t, 40, parl)
	assert.Equal(t, 3, sess)

	for _, bad := range []string{"", "41", "x-1", "41-y", "0-1", "41-0"} {
		_, _, err := catalogs.ParseSessionID(bad)
		assert.Error(t, err, bad)
		assert.True(t, errors.IsValidationError(err), bad)
	}
}

func TestSessionContains(t *testing.T) {
	start := catalogs.TestDate(t, 2011, 6, 2)
	end := catalogs.TestDate(t, 2013, 9, 13)
	closed := catalogs.TestSession(t, 41, 1, start, end)
	active := catalogs.TestSession(t, 41, 2, catalogs.TestDate(t, 2013, 10, 16), civil.Date{})

	assert.False(t, closed.Active())
	assert.True(t, active.Active())

	assert.True(t, closed.Contains(start))
	assert.True(t, closed.Contains(end))
	assert.False(t, closed.Contains(catalogs.TestDate(t, 2011, 6, 1)))
	assert.False(t, closed.Contains(catalogs.TestDate(t, 2013, 9, 14)))
	assert.True(t, active.Contains(catalogs.TestDate(t, 2030, 1, 1)))
}

func TestElectedMemberOverlaps(t *testing.T) {
	session := catalogs.TestSession(t, 41, 1, catalogs.TestDate(t, 2011, 6, 2), catalogs.TestDate(t, 2013, 9, 13))

	before := catalogs.TestDate(t, 2011, 5, 1)
	after := catalogs.TestDate(t, 2014, 1, 1)
	during := catalogs.TestDate(t, 2012, 1, 1)

	tests := []struct {
		name   string
		member catalogs.ElectedMember
		want   bool
	}{
		{"open term started before", catalogs.ElectedMember{Start: catalogs.TestDate(t, 2008, 10, 14)}, true},
		{"term ended before session", catalogs.ElectedMember{Start: catalogs.TestDate(t, 2006, 1, 23), End: &before}, false},
		{"term starts after session", catalogs.ElectedMember{Start: after}, false},
		{"term ends during session", catalogs.ElectedMember{Start: catalogs.TestDate(t, 2008, 10, 14), End: &during}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.member.Overlaps(session))
		})
	}
}

func TestNewSponsorActivity(t *testing.T) {
	bill := &catalogs.Bill{ID: 7, Number: "C-10", SponsorPoliticianID: 3, Introduced: catalogs.TestDate(t, 2011, 9, 20)}
	activity := catalogs.NewSponsorActivity(bill)

	assert.Equal(t, int64(3), activity.PoliticianID)
	assert.Equal(t, int64(7), activity.BillID)
	assert.Equal(t, catalogs.ActivityBillSponsor, activity.Variety)
	assert.Equal(t, "bill_sponsor_7", activity.GUID)
	assert.Equal(t, bill.Introduced, activity.Date)
}

func TestParseSeed(t *testing.T) {
	data := []byte(`
sessions:
  - parliamentnum: 41
    sessnum: 1
    name: "41st Parliament, 1st Session"
    start: "2011-06-02"
    end: "2013-09-13"
  - id: "41-2"
    parliamentnum: 41
    sessnum: 2
    start: "2013-10-16"
politicians:
  - id: 1
    name: Rob Nicholson
    parl_id: 105
members:
  - politician_id: 1
    party: Conservative
    riding: Niagara Falls
    start: "2008-10-14"
`)

	seed, err := catalogs.ParseSeed(data)
	require.NoError(t, err)
	require.Len(t, seed.Sessions, 2)

	assert.Equal(t, "41-1", seed.Sessions[0].ID)
	assert.Equal(t, catalogs.TestDate(t, 2011, 6, 2), seed.Sessions[0].Start)
	require.NotNil(t, seed.Sessions[0].End)
	assert.Equal(t, catalogs.TestDate(t, 2013, 9, 13), *seed.Sessions[0].End)
	assert.True(t, seed.Sessions[1].Active())

	require.Len(t, seed.Politicians, 1)
	assert.Equal(t, int64(105), seed.Politicians[0].ParlID)
	require.Len(t, seed.Members, 1)
	assert.Equal(t, "Niagara Falls", seed.Members[0].Riding)
}

func TestParseSeedRejectsIncompleteSession(t *testing.T) {
	_, err := catalogs.ParseSeed([]byte("sessions:\n  - name: nameless\n"))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
