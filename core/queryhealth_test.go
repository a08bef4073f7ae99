package core

import (
	"testing"

	"github.com/bododesderio/leblango/db"
)

type fakeLogReader struct {
	total     int
	noResults int
	top       []db.NoResultQuery
	gotSince  string
	gotSource string
}

func (f *fakeLogReader) SearchLogCounts(since, source string) (int, int, error) {
	f.gotSince = since
	f.gotSource = source
	return f.total, f.noResults, nil
}

func (f *fakeLogReader) TopNoResultQueries(since, source string, limit int) ([]db.NoResultQuery, error) {
	if limit < len(f.top) {
		return f.top[:limit], nil
	}
	return f.top, nil
}

func TestQueryHealthSummary(t *testing.T) {
	reader := &fakeLogReader{
		total:     200,
		noResults: 50,
		top: []db.NoResultQuery{
			{Query: "xyzabc", Source: "dictionary", Times: 30, LastSeen: "2026-08-30 10:00:00"},
			{Query: "qqq", Source: "dictionary", Times: 20, LastSeen: "2026-08-29 09:00:00"},
		},
	}
	report, err := QueryHealthSummary(reader, 7, "dictionary", 10)
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalQueries != 200 || report.NoResults != 50 || report.WithResults != 150 {
		t.Errorf("totals wrong: %+v", report)
	}
	if report.NoResultsRate != 0.25 {
		t.Errorf("rate = %v, want 0.25", report.NoResultsRate)
	}
	if len(report.TopNoResult) != 2 || report.TopNoResult[0].Query != "xyzabc" {
		t.Errorf("top list wrong: %+v", report.TopNoResult)
	}
	if reader.gotSource != "dictionary" {
		t.Errorf("source not forwarded: %q", reader.gotSource)
	}
	if len(reader.gotSince) != len("2006-01-02 15:04:05") {
		t.Errorf("since not formatted as a timestamp: %q", reader.gotSince)
	}
}

func TestQueryHealthSummaryEmptyWindow(t *testing.T) {
	report, err := QueryHealthSummary(&fakeLogReader{}, 7, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalQueries != 0 || report.NoResultsRate != 0 {
		t.Errorf("empty window must be all zeroes: %+v", report)
	}
	if report.TopNoResult == nil || len(report.TopNoResult) != 0 {
		t.Errorf("top list must be empty, not nil: %#v", report.TopNoResult)
	}
}
