// Package classify assigns a product category to a free-text title by keyword lookup.
package classify

import "strings"

// General is returned when no rule matches.
const General = "general"

// Rule maps a category label to the lowercase keywords that select it.
type Rule struct {
	Category string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// DefaultRules returns the built-in rules in match order.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "electronics", Keywords: []string{"iphone", "macbook", "samsung", "laptop", "phone", "computer", "tech"}},
		{Category: "fashion", Keywords: []string{"nike", "adidas", "shoes", "clothing", "fashion", "wear", "style"}},
		{Category: "beauty", Keywords: []string{"makeup", "cosmetics", "skincare", "beauty", "tutorial"}},
		{Category: "sports", Keywords: []string{"fitness", "workout", "sports", "exercise", "training"}},
	}
}

// Classifier picks the first rule, in declaration order, with a keyword contained in the title.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// NewClassifier copies rules, lowercasing keywords. Empty rules means DefaultRules.
func NewClassifier(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	c := &Classifier{rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		kw := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kw = append(kw, k)
			}
		}
		c.rules = append(c.rules, Rule{Category: r.Category, Keywords: kw})
	}
	return c
}

// Classify returns the category for title, or General.
func (c *Classifier) Classify(title string) string {
	lower := strings.ToLower(title)
	for _, r := range c.rules {
		for _, k := range r.Keywords {
			if strings.Contains(lower, k) {
				return r.Category
			}
		}
	}
	return General
}

// Categories lists the configured category labels in match order, followed by General.
func (c *Classifier) Categories() []string {
	out := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		out = append(out, r.Category)
	}
	return append(out, General)
}
