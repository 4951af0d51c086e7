package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
)

const legislationXML = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <GetLegislationByYearResponse xmlns="http://WSLWebServices.leg.wa.gov/">
      <GetLegislationByYearResult>
        <LegislationInfo>
          <Biennium>2025-26</Biennium>
          <BillId>HB 1234</BillId>
          <BillNumber>1234</BillNumber>
          <ShortDescription>Concerning public education</ShortDescription>
          <LongDescription>An act relating to public education funding</LongDescription>
          <CurrentStatus>Introduced</CurrentStatus>
          <IntroducedDate>2026-01-15T00:00:00</IntroducedDate>
          <Sponsor>Rep. John Smith</Sponsor>
          <OriginalAgency>House</OriginalAgency>
          <RequestedByGovernor>false</RequestedByGovernor>
          <Appropriations>false</Appropriations>
        </LegislationInfo>
        <LegislationInfo>
          <BillId>SB 5001</BillId>
          <BillNumber>5001</BillNumber>
          <ShortDescription>Healthcare Access Bill</ShortDescription>
          <CurrentStatus>
            <Status>In Committee</Status>
            <HistoryLine>Referred to Health Committee</HistoryLine>
          </CurrentStatus>
        </LegislationInfo>
        <LegislationInfo>
          <ShortDescription>Incomplete Bill</ShortDescription>
        </LegislationInfo>
      </GetLegislationByYearResult>
    </GetLegislationByYearResponse>
  </soap:Body>
</soap:Envelope>`

func TestDecodeLegislationInfo(t *testing.T) {
	infos, err := decodeAll[LegislationInfo]([]byte(legislationXML), "LegislationInfo")
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "HB 1234", infos[0].BillID)
	assert.Equal(t, "In Committee", infos[1].CurrentStatus.Status)
	assert.Equal(t, "In Committee Referred to Health Committee", infos[1].CurrentStatus.Summary())
}

func TestParseLegislationInfo(t *testing.T) {
	infos, err := decodeAll[LegislationInfo]([]byte(legislationXML), "LegislationInfo")
	require.NoError(t, err)

	b, ok := ParseLegislationInfo(infos[0], 2026)
	require.True(t, ok)
	assert.Equal(t, "HB1234", b.ID)
	assert.Equal(t, "HB 1234", b.Number)
	assert.Equal(t, "Concerning public education", b.Title)
	assert.Equal(t, "An act relating to public education funding", b.Description)
	assert.Equal(t, "introduced", b.Status)
	assert.Equal(t, "Rep. John Smith", b.Sponsor)
	assert.Equal(t, "2025-26", b.Biennium)
	assert.Equal(t, "2026-01-15", b.IntroducedDate)
	assert.Equal(t, "Education", b.Topic)
	assert.Equal(t, "Education", b.Committee)
	assert.False(t, b.RequestedByGovernor)
	assert.Equal(t, "https://app.leg.wa.gov/billsummary?BillNumber=1234&Year=2026", b.LegURL)
	assert.NotNil(t, b.Hearings)

	b, ok = ParseLegislationInfo(infos[1], 2026)
	require.True(t, ok)
	assert.Equal(t, "SB5001", b.ID)
	assert.Equal(t, "committee", b.Status)
	assert.Equal(t, "Healthcare", b.Topic)
	assert.Equal(t, "Referred to Health Committee", b.HistoryLine)

	_, ok = ParseLegislationInfo(infos[2], 2026)
	assert.False(t, ok)
}

func TestNormalizeNumber(t *testing.T) {
	n, i := NormalizeNumber("ESHB 1001", "HB 1001", "1001")
	assert.Equal(t, "ESHB 1001", n)
	assert.Equal(t, 1001, i)

	n, i = NormalizeNumber("", "HB 1001", "abc")
	assert.Equal(t, "HB 1001", n)
	assert.Zero(t, i)

	n, _ = NormalizeNumber("", "", "42")
	assert.Equal(t, "42", n)

	n, _ = NormalizeNumber("", "", "")
	assert.Empty(t, n)
}

func TestLatestStatusMap(t *testing.T) {
	latest := LatestStatusMap([]LegislativeStatus{
		{BillID: "HB 1001", Status: "H Education", ActionDate: "2026-01-12T00:00:00"},
		{BillID: "HB 1001", Status: "Passed 3rd Rdg", ActionDate: "2026-02-01T00:00:00"},
		{BillID: "HB 1001", Status: "older", ActionDate: "2026-01-20T00:00:00"},
		{BillID: "SB 5001", Status: "no date"},
		{Status: "no id", ActionDate: "2026-01-01T00:00:00"},
	})
	require.Len(t, latest, 1)
	assert.Equal(t, "Passed 3rd Rdg", latest["HB 1001"].Status)
}

func TestBuildRecordAppliesLatestStatus(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	info := LegislationInfo{BillID: "HB 1001", BillNumber: "1001", ShortDescription: "General provisions"}

	b, ok := BuildRecord(info, nil, 2026, now)
	require.True(t, ok)
	assert.Equal(t, "2026-02-10T09:30:00", b.LastUpdated)
	assert.Equal(t, "prefiled", b.Status)
	assert.Equal(t, "medium", b.Priority)

	latest := map[string]LegislativeStatus{
		"HB 1001": {BillID: "HB 1001", Status: "Passed 3rd Rdg", HistoryLine: "Third reading, passed; yeas, 90", ActionDate: "2026-02-05T00:00:00"},
	}
	b, ok = BuildRecord(info, latest, 2026, now)
	require.True(t, ok)
	assert.Equal(t, "passed", b.Status)
	assert.Equal(t, "high", b.Priority)
	assert.Equal(t, "2026-02-05T00:00:00", b.LastUpdated)
	assert.Equal(t, "Third reading, passed; yeas, 90", b.HistoryLine)
}

func TestParseCommitteeMeeting(t *testing.T) {
	raw := `<ArrayOfCommitteeMeeting xmlns="http://WSLWebServices.leg.wa.gov/">
	  <CommitteeMeeting>
	    <AgendaId>12345</AgendaId>
	    <Date>2026-01-20T10:00:00</Date>
	    <Committees><Committee><Name>Education</Name></Committee></Committees>
	    <Agency>House</Agency>
	    <Room>Hearing Room A</Room>
	    <Building>John L. O'Brien Building</Building>
	    <City>Olympia</City>
	    <State>WA</State>
	    <Cancelled>false</Cancelled>
	    <Notes>Public hearing on HB 1234</Notes>
	  </CommitteeMeeting>
	  <CommitteeMeeting>
	    <AgendaId>99999</AgendaId>
	    <Date>2026-01-25T14:00:00</Date>
	    <Time>2:00 PM</Time>
	    <Committees>Transportation</Committees>
	    <Cancelled>true</Cancelled>
	  </CommitteeMeeting>
	  <CommitteeMeeting></CommitteeMeeting>
	</ArrayOfCommitteeMeeting>`
	meetings, err := decodeAll[CommitteeMeeting]([]byte(raw), "CommitteeMeeting")
	require.NoError(t, err)
	require.Len(t, meetings, 3)

	m, ok := ParseCommitteeMeeting(meetings[0])
	require.True(t, ok)
	assert.Equal(t, "12345", m.AgendaID)
	assert.Equal(t, "2026-01-20", m.Date)
	assert.Equal(t, "10:00 AM", m.Time)
	assert.Equal(t, "Education", m.Committee)
	assert.False(t, m.Cancelled)
	assert.Contains(t, m.Location, "Hearing Room A")
	assert.Equal(t, "https://app.leg.wa.gov/committeeschedules/Home/Agenda/12345", m.AgendaURL)

	m, ok = ParseCommitteeMeeting(meetings[1])
	require.True(t, ok)
	assert.True(t, m.Cancelled)
	assert.Equal(t, "2:00 PM", m.Time)
	assert.Equal(t, "Transportation", m.Committee)

	_, ok = ParseCommitteeMeeting(meetings[2])
	assert.False(t, ok)
}

func TestMergePreservesProgressAndCuratedFields(t *testing.T) {
	existing := []bill.Bill{
		{ID: "HB1001", Number: "HB 1001", Status: "passed", Sponsor: "Rep. Test", Topic: "Housing", Priority: "high",
			Hearings: []bill.Hearing{{Date: "2026-01-20", Time: "10:00 AM", Committee: "Housing"}}},
		{ID: "HB1002", Number: "HB 1002", Status: "prefiled", Sponsor: "House Member", Description: "Short"},
		{ID: "SB5999", Number: "SB 5999", Status: "committee"},
	}
	fresh := []bill.Bill{
		{ID: "HB1001", Number: "HB 1001", Status: "committee", Sponsor: "Rep. Test", Hearings: []bill.Hearing{}},
		{ID: "HB1002", Number: "HB 1002", Status: "committee", Sponsor: "Rep. Smith", Description: "A longer description of the bill"},
		{ID: "SB5001", Number: "SB 5001", Status: "introduced"},
	}

	merged := Merge(existing, fresh)
	require.Len(t, merged, 4)
	byID := map[string]bill.Bill{}
	for _, b := range merged {
		byID[b.ID] = b
	}
	assert.Equal(t, "passed", byID["HB1001"].Status)
	assert.Equal(t, "Housing", byID["HB1001"].Topic)
	assert.Len(t, byID["HB1001"].Hearings, 1)
	assert.Equal(t, "committee", byID["HB1002"].Status)
	assert.Equal(t, "Rep. Smith", byID["HB1002"].Sponsor)
	assert.Equal(t, "A longer description of the bill", byID["HB1002"].Description)
	assert.Contains(t, byID, "SB5999")
	assert.Contains(t, byID, "SB5001")
}

func TestMergeKeepsTerminalStatus(t *testing.T) {
	merged := Merge(
		[]bill.Bill{{ID: "HB1", Number: "HB 1", Status: "vetoed", Vetoed: true}},
		[]bill.Bill{{ID: "HB1", Number: "HB 1", Status: "passed"}},
	)
	assert.Equal(t, "vetoed", merged[0].Status)
	assert.True(t, merged[0].Vetoed)
}

func TestSortBills(t *testing.T) {
	bills := []bill.Bill{
		{ID: "SB5001", Number: "SB 5001"},
		{ID: "HB1100", Number: "HB 1100"},
		{ID: "HB999", Number: "HB 999"},
		{ID: "HJR4200", Number: "HJR 4200"},
	}
	SortBills(bills)
	ids := []string{}
	for _, b := range bills {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"HB999", "HB1100", "HJR4200", "SB5001"}, ids)
}

func TestAttachHearings(t *testing.T) {
	bills := []bill.Bill{
		{ID: "HB1234", Number: "HB 1234", Status: "committee", Committee: "Education"},
		{ID: "HB1500", Number: "HB 1500", Status: "committee", Committee: "Transportation"},
		{ID: "SB5001", Number: "SB 5001", Status: "passed", Committee: "Transportation"},
		{ID: "SB5678", Number: "SB 5678", Status: "introduced"},
	}
	AttachHearings(bills, []Meeting{
		{AgendaID: "1", Date: "2026-02-12", Time: "10:00 AM", Committee: "Education", Notes: "Public hearing on HB 1234 and 2SSB 5678"},
		{AgendaID: "2", Date: "2026-02-13", Time: "1:30 PM", Committee: "Transportation"},
		{AgendaID: "3", Date: "2026-02-14", Committee: "Education", Cancelled: true, Notes: "HB 1234"},
	})

	require.Len(t, bills[0].Hearings, 1)
	assert.Equal(t, "2026-02-12", bills[0].Hearings[0].Date)
	require.Len(t, bills[1].Hearings, 1)
	assert.Equal(t, "Transportation", bills[1].Hearings[0].Committee)
	assert.Empty(t, bills[2].Hearings)
	require.Len(t, bills[3].Hearings, 1)
}

func TestMentionedBills(t *testing.T) {
	assert.Equal(t, []string{"HB1234", "SB5678", "HB1001", "SJR8200"},
		mentionedBills("HB 1234, ESSB 5678, 2SHB1001 and SJR 8200; see page 12"))
}
