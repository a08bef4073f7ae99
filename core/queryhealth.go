package core

import (
	"time"

	"github.com/bododesderio/leblango/db"
)

// QueryHealthReport summarizes the search log over a window: how many
// queries ran, how many found nothing, and which dead-end queries repeat
// the most. It is the lexicographers' gap list.
type QueryHealthReport struct {
	WindowDays    int                 `json:"window_days"`
	Source        string              `json:"source,omitempty"`
	TotalQueries  int                 `json:"total_queries"`
	WithResults   int                 `json:"with_results"`
	NoResults     int                 `json:"no_results"`
	NoResultsRate float64             `json:"no_results_rate"`
	TopNoResult   []noResultQueryJSON `json:"top_no_result_queries"`
}

type noResultQueryJSON struct {
	Query    string `json:"query"`
	Source   string `json:"source"`
	Times    int    `json:"times"`
	LastSeen string `json:"last_seen"`
}

// timestampLayout matches the text timestamps the schemas write.
const timestampLayout = "2006-01-02 15:04:05"

// searchLogReader is the aggregation face of the search log.
type searchLogReader interface {
	SearchLogCounts(since, source string) (int, int, error)
	TopNoResultQueries(since, source string, limit int) ([]db.NoResultQuery, error)
}

// QueryHealthSummary aggregates the log over the past windowDays, optionally
// restricted to one source. An empty window yields zero totals, not an
// error.
func QueryHealthSummary(store searchLogReader, windowDays int, source string, topK int) (*QueryHealthReport, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	if topK <= 0 {
		topK = 10
	}
	since := time.Now().UTC().AddDate(0, 0, -windowDays).Format(timestampLayout)

	total, noResults, err := store.SearchLogCounts(since, source)
	if err != nil {
		return nil, err
	}
	top, err := store.TopNoResultQueries(since, source, topK)
	if err != nil {
		return nil, err
	}

	report := &QueryHealthReport{
		WindowDays:   windowDays,
		Source:       source,
		TotalQueries: total,
		WithResults:  total - noResults,
		NoResults:    noResults,
		TopNoResult:  make([]noResultQueryJSON, 0, len(top)),
	}
	if total > 0 {
		report.NoResultsRate = float64(noResults) / float64(total)
	}
	for _, q := range top {
		report.TopNoResult = append(report.TopNoResult, noResultQueryJSON{
			Query:    q.Query,
			Source:   q.Source,
			Times:    q.Times,
			LastSeen: q.LastSeen,
		})
	}
	return report, nil
}
