package classify

import "testing"

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(nil)
	tests := []struct {
		title string
		want  string
	}{
		{"Samsung Galaxy Phone Review", "electronics"},
		{"Adidas Running Shoes", "fashion"},
		{"Random Object", General},
		{"MAKEUP tutorial for beginners", "beauty"},
		{"Home workout routine", "sports"},
		// electronics is declared before fashion, so the first match wins
		{"Nike tech fleece", "electronics"},
		{"", General},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := c.Classify(tt.title); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestClassifier_CustomRulesKeepOrder(t *testing.T) {
	c := NewClassifier([]Rule{
		{Category: "audio", Keywords: []string{" Headphones "}},
		{Category: "electronics", Keywords: []string{"headphones", "tv"}},
	})
	if got := c.Classify("Best headphones 2024"); got != "audio" {
		t.Errorf("got %q, want audio", got)
	}
	if got := c.Classify("OLED TV"); got != "electronics" {
		t.Errorf("got %q, want electronics", got)
	}
	cats := c.Categories()
	if len(cats) != 3 || cats[0] != "audio" || cats[2] != General {
		t.Errorf("Categories() = %v", cats)
	}
}

func TestProfileFor(t *testing.T) {
	p := ProfileFor("fashion")
	if p.Highlights[0] != "Style overview" {
		t.Errorf("fashion highlights = %v", p.Highlights)
	}
	p.Highlights[0] = "mutated"
	if ProfileFor("fashion").Highlights[0] != "Style overview" {
		t.Error("ProfileFor should return a copy")
	}
	g := ProfileFor("unknown")
	if g.KeyFeatures[0] != "Main feature 1" {
		t.Errorf("general key features = %v", g.KeyFeatures)
	}
}
