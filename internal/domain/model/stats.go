package model

import "time"

// CardCounts aggregates cards by status.
type CardCounts struct {
	Total    int64
	Used     int64
	Unused   int64
	Disabled int64
}

// APIKeyCounts aggregates API keys and their usage.
type APIKeyCounts struct {
	Total        int64
	Active       int64
	TotalCalls   int64
	RecentActive int64
}

// RecentCardCounts covers cards created since a cutoff and how many of them were used.
type RecentCardCounts struct {
	NewCards   int64
	RecentUsed int64
}

// DailyCardCount is one bucket of the usage trend.
type DailyCardCount struct {
	Date      time.Time
	NewCards  int64
	UsedCards int64
}
