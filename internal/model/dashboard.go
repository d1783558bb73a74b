package model

import "time"

// WindowCount is a count of events within a recency window.
type WindowCount struct {
	Window string `json:"window"`
	Count  int    `json:"count"`
}

// DayCount is a count of events on a calendar day (UTC).
type DayCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// Dashboard aggregates the job search activity of a user.
type Dashboard struct {
	PendingSearches    int           `json:"pendingSearches"`
	FailedSearches     []WindowCount `json:"failedSearches"`
	ApplicationsPerDay []DayCount    `json:"applicationsPerDay"`
}
