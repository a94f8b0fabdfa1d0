package entity

// FeedQuery describes a single news search against a feed or search API.
// DaysBack bounds the publication-date window to [today-DaysBack, today]
// inclusive; a negative value disables date filtering entirely.
type FeedQuery struct {
	Term         string
	DaysBack     int
	LanguageCode string
	CountryCode  string
	LocationCode int
}
