package classify

// Profile is the highlight and feature outline used for a category when no analysis is available.
type Profile struct {
	Highlights  []string
	KeyFeatures []string
}

var profiles = map[string]Profile{
	"electronics": {
		Highlights:  []string{"Technical specifications", "Performance benchmarks", "Feature demonstration", "Comparison with competitors"},
		KeyFeatures: []string{"Technical performance", "Build quality", "User experience", "Value for money"},
	},
	"fashion": {
		Highlights:  []string{"Style overview", "Material quality", "Fit and sizing", "Styling suggestions"},
		KeyFeatures: []string{"Design elements", "Material composition", "Comfort factors", "Versatility"},
	},
	"beauty": {
		Highlights:  []string{"Product application", "Results demonstration", "Tips and tricks", "Product comparison"},
		KeyFeatures: []string{"Product effectiveness", "Application method", "Long-term benefits", "Value proposition"},
	},
	"sports": {
		Highlights:  []string{"Equipment review", "Performance test", "Durability check", "Usage guidelines"},
		KeyFeatures: []string{"Performance metrics", "Durability factors", "Comfort level", "Professional features"},
	},
}

var generalProfile = Profile{
	Highlights:  []string{"Product overview", "Feature demonstration", "Performance review", "Final thoughts"},
	KeyFeatures: []string{"Main feature 1", "Main feature 2", "Main feature 3", "Main feature 4"},
}

// ProfileFor returns a copy of the category's profile, or the general profile for unknown categories.
func ProfileFor(category string) Profile {
	p, ok := profiles[category]
	if !ok {
		p = generalProfile
	}
	return Profile{
		Highlights:  append([]string(nil), p.Highlights...),
		KeyFeatures: append([]string(nil), p.KeyFeatures...),
	}
}
