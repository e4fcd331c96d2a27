package feed

import (
	"math/rand"
	"strings"
	"testing"

	"score_feed/internal/models"
)

func TestRenderMatchesFeedLines(t *testing.T) {
	cases := []struct {
		card models.Scorecard
		want string
	}{
		{
			models.Scorecard{Sport: "curling", Home: "Australia", Away: "England", HomeScore: 14},
			"Curling Score | Home Team : Australia | Away Team : England | Score : 14 ",
		},
		{
			models.Scorecard{Sport: "football", Home: "New York", Away: "New England", HomeScore: 2},
			"Football Score | New York Vs New England | New York : 2 | New England : 0",
		},
		{
			models.Scorecard{Sport: "hockey", Home: "Canada", Away: "Russia", HomeScore: 1},
			"Hockey Score | Canada Vs Russia | Canada : 1 | Russia : 0",
		},
	}

	for _, tc := range cases {
		if got := Render(tc.card); got != tc.want {
			t.Errorf("Render() = %q, want %q", got, tc.want)
		}
	}
}

func TestBoardScoresOnlyGrow(t *testing.T) {
	board := NewBoard(rand.New(rand.NewSource(7)), FormatText, ScoreMatches()...)

	last := make(map[string]int)
	for round := 1; round <= 25; round++ {
		updates, err := board.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(updates) != 3 {
			t.Fatalf("expected 3 updates, got %d", len(updates))
		}
		for _, u := range updates {
			if u.Card.Round != round {
				t.Errorf("round %d, card says %d", round, u.Card.Round)
			}
			if u.Card.HomeScore < last[u.RoutingKey] {
				t.Errorf("%s score went down", u.RoutingKey)
			}
			if !strings.HasPrefix(u.RoutingKey, "scores.") {
				t.Errorf("unexpected routing key %q", u.RoutingKey)
			}
			if u.ContentType != ContentTypeText || string(u.Body) != Render(u.Card) {
				t.Errorf("unexpected body %q", u.Body)
			}
			last[u.RoutingKey] = u.Card.HomeScore
		}
	}

	if board.Round() != 25 {
		t.Errorf("expected 25 rounds, got %d", board.Round())
	}
	if last["scores.football"] > 25 || last["scores.hockey"] > 25 || last["scores.curling"] > 225 {
		t.Errorf("scores exceed max gain: %v", last)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	board := NewBoard(rand.New(rand.NewSource(1)), FormatJSON, BroadcastMatches()...)
	updates, err := board.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u := updates[0]
	if u.ContentType != ContentTypeJSON || u.RoutingKey != "" {
		t.Fatalf("unexpected update %+v", u)
	}
	if got, want := Describe(u.ContentType, u.Body), Render(u.Card); got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
	if got := Describe(ContentTypeText, []byte("task number 1")); got != "task number 1" {
		t.Errorf("plain body changed: %q", got)
	}
	if got := Describe(ContentTypeJSON, []byte("{broken")); got != "{broken" {
		t.Errorf("broken json should pass through, got %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "json": FormatJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error")
	}
}
