package models

//go:generate easyjson models.go

// Scorecard is one score update for a match. Publishers send it either as the
// text line rendered by the feed package or, in json format, as this struct.
//
//easyjson:json
type Scorecard struct {
	ID        string `json:"id"`
	Sport     string `json:"sport"`
	Home      string `json:"home"`
	Away      string `json:"away"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
	Round     int    `json:"round"`
}
