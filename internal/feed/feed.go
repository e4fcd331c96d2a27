// Package feed generates the running score updates the exchange programs
// publish, and renders received ones for the console.
package feed

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/mailru/easyjson"

	"score_feed/internal/models"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

const (
	ContentTypeText = "text/plain"
	ContentTypeJSON = "application/json"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown feed format %q", s)
}

// Match is one fixture whose home score grows by 0..MaxGain every round.
type Match struct {
	Sport      string
	RoutingKey string
	Home       string
	Away       string
	MaxGain    int
}

// Update is one encoded scorecard ready to publish.
type Update struct {
	RoutingKey  string
	ContentType string
	Body        []byte
	Card        models.Scorecard
}

// ScoreMatches are the three fixtures of the direct and topic feeds.
func ScoreMatches() []Match {
	return []Match{
		{Sport: "curling", RoutingKey: "scores.curling", Home: "Australia", Away: "England", MaxGain: 9},
		{Sport: "football", RoutingKey: "scores.football", Home: "New York", Away: "New England", MaxGain: 1},
		{Sport: "hockey", RoutingKey: "scores.hockey", Home: "Canada", Away: "Russia", MaxGain: 1},
	}
}

// BroadcastMatches is the single fixture of the fanout feed; fanout ignores
// the routing key.
func BroadcastMatches() []Match {
	return []Match{
		{Sport: "curling", Home: "Canada", Away: "England", MaxGain: 9},
	}
}

type Board struct {
	matches []Match
	scores  []int
	round   int
	format  Format
	rng     *rand.Rand
}

func NewBoard(rng *rand.Rand, format Format, matches ...Match) *Board {
	return &Board{
		matches: matches,
		scores:  make([]int, len(matches)),
		format:  format,
		rng:     rng,
	}
}

// Round is the number of rounds played so far.
func (b *Board) Round() int {
	return b.round
}

// Next plays one round and returns one update per match, in match order.
func (b *Board) Next() ([]Update, error) {
	b.round++

	updates := make([]Update, 0, len(b.matches))
	for i, m := range b.matches {
		b.scores[i] += b.rng.Intn(m.MaxGain + 1)

		card := models.Scorecard{
			ID:        uuid.NewString(),
			Sport:     m.Sport,
			Home:      m.Home,
			Away:      m.Away,
			HomeScore: b.scores[i],
			Round:     b.round,
		}
		update, err := Encode(card, b.format)
		if err != nil {
			return nil, err
		}
		update.RoutingKey = m.RoutingKey
		updates = append(updates, update)
	}
	return updates, nil
}

func Encode(card models.Scorecard, format Format) (Update, error) {
	if format == FormatJSON {
		body, err := easyjson.Marshal(card)
		if err != nil {
			return Update{}, fmt.Errorf("encode scorecard: %w", err)
		}
		return Update{ContentType: ContentTypeJSON, Body: body, Card: card}, nil
	}
	return Update{ContentType: ContentTypeText, Body: []byte(Render(card)), Card: card}, nil
}

// Render is the console line for a scorecard.
func Render(card models.Scorecard) string {
	if card.Sport == "curling" {
		return fmt.Sprintf("Curling Score | Home Team : %s | Away Team : %s | Score : %d ",
			card.Home, card.Away, card.HomeScore)
	}
	return fmt.Sprintf("%s Score | %s Vs %s | %s : %d | %s : %d",
		title(card.Sport), card.Home, card.Away, card.Home, card.HomeScore, card.Away, card.AwayScore)
}

// Describe turns a received body back into a console line. JSON scorecards
// are rendered, anything else is shown as is.
func Describe(contentType string, body []byte) string {
	if contentType == ContentTypeJSON {
		var card models.Scorecard
		if err := easyjson.Unmarshal(body, &card); err == nil {
			return Render(card)
		}
	}
	return string(body)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
