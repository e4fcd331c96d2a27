package models

import (
	"testing"

	"github.com/mailru/easyjson"
)

func TestScorecardJSON(t *testing.T) {
	raw, err := easyjson.Marshal(Scorecard{
		ID:        "a1",
		Sport:     "curling",
		Home:      "Australia",
		Away:      "England",
		HomeScore: 12,
		Round:     3,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"id":"a1","sport":"curling","home":"Australia","away":"England","home_score":12,"away_score":0,"round":3}`
	if string(raw) != want {
		t.Errorf("got %s", raw)
	}
}

func TestScorecardUnknownFields(t *testing.T) {
	var card Scorecard
	err := easyjson.Unmarshal([]byte(`{"sport":"hockey","extra":{"a":[1,2]},"home_score":4,"away":null}`), &card)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if card.Sport != "hockey" || card.HomeScore != 4 || card.Away != "" {
		t.Errorf("unexpected card %+v", card)
	}

	if err := easyjson.Unmarshal([]byte(`{"sport":`), &card); err == nil {
		t.Error("expected error for truncated input")
	}
}
