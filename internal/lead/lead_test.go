package lead

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		lead Lead
		want float64
	}{
		{
			name: "empty lead",
			lead: Lead{},
			want: 0,
		},
		{
			name: "name email phone",
			lead: Lead{Name: "Jane Smith", Email: "jane@acme.com", Phone: "(415) 555-1234"},
			want: 7.0 / 13.0,
		},
		{
			name: "email only",
			lead: Lead{Email: "jane@acme.com"},
			want: 2.0 / 13.0,
		},
		{
			name: "social media counts once",
			lead: Lead{SocialMedia: map[string]string{"linkedin": "jane", "twitter": "@jane"}},
			want: 1.0 / 13.0,
		},
		{
			name: "every field clamps to one",
			lead: Lead{
				Name: "a", Company: "b", Title: "c", Email: "d", Phone: "e",
				Address: "f", Industry: "g", Website: "h", AdditionalInfo: "i",
				SocialMedia: map[string]string{"linkedin": "j"},
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.lead)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("Score() = %v, out of [0,1]", got)
			}
		})
	}
}

func TestScoreAll_PreservesOrder(t *testing.T) {
	leads := []Lead{{Name: "First"}, {Email: "second@x.com"}, {Phone: "(415) 555-1234"}}
	scored := ScoreAll(leads)
	if len(scored) != 3 {
		t.Fatalf("len = %d, want 3", len(scored))
	}
	if scored[0].Name != "First" || scored[1].Email != "second@x.com" {
		t.Errorf("order not preserved: %+v", scored)
	}
	if math.Abs(scored[0].Confidence-3.0/13.0) > 1e-9 {
		t.Errorf("Confidence = %v", scored[0].Confidence)
	}
}

func TestHasContact(t *testing.T) {
	if (Lead{Company: "Acme Inc"}).HasContact() {
		t.Error("company alone should not count as contact")
	}
	if !(Lead{Phone: "(415) 555-1234"}).HasContact() {
		t.Error("phone should count as contact")
	}
	if !(Lead{}).IsEmpty() {
		t.Error("zero lead should be empty")
	}
	if (Lead{Website: "acme.com"}).IsEmpty() {
		t.Error("lead with website should not be empty")
	}
}

func TestScoredLead_MarshalJSON(t *testing.T) {
	s := ScoredLead{Lead: Lead{Name: "Jane Smith"}, Confidence: 0.25}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if m["name"] != "Jane Smith" {
		t.Errorf("name = %v", m["name"])
	}
	if v, ok := m["email"]; !ok || v != nil {
		t.Errorf("email should be present and null, got %v (present=%v)", v, ok)
	}
	if m["confidence"] != 0.25 {
		t.Errorf("confidence = %v", m["confidence"])
	}
	if strings.Contains(string(data), `"Lead"`) {
		t.Errorf("embedded struct leaked into JSON: %s", data)
	}

	var back ScoredLead
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() into ScoredLead error = %v", err)
	}
	if back.Name != "Jane Smith" || back.Confidence != 0.25 {
		t.Errorf("decoded = %+v", back)
	}
}

func TestLead_MarshalJSON_NoConfidence(t *testing.T) {
	data, err := json.Marshal(Lead{Email: "a@b.com"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "confidence") {
		t.Errorf("plain lead should not carry confidence: %s", data)
	}
}
