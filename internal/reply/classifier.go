// Package reply picks a canned answer for an inbound chat message.
//
// Rules are held in a fixed, ordered list and evaluated top to bottom against
// the lowercased message text. The first rule whose matcher succeeds wins. A
// catch-all rule is always last, so Classify never returns an empty reply.
package reply

import (
	"fmt"
	"regexp"
	"strings"
)

// Built-in replies for the Wamid showroom assistant.
const (
	PriceReply   = "Kindly share your car model and year — I’ll prepare an estimate ✨"
	CatalogReply = "Here’s our digital showroom link 🏜️ Explore first, then I’ll tailor your customization."
	WelcomeReply = "Welcome to Wamid ✨ Share your car model & year, and preferred edition (Sihoub/Sukoon/Shuhub)."
)

// Rule maps a predicate over lowercased text to a response.
type Rule struct {
	Name     string
	Match    func(lowered string) bool
	Response string
}

// RuleSpec is the data form of a keyword rule, as read from configuration.
type RuleSpec struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Response string   `yaml:"response"`
}

// DefaultRuleSpecs returns the built-in keyword rules in priority order.
func DefaultRuleSpecs() []RuleSpec {
	return []RuleSpec{
		{Name: "price", Keywords: []string{"price", "سعر"}, Response: PriceReply},
		{Name: "catalog", Keywords: []string{"catalog", "كتالوج", "عرض"}, Response: CatalogReply},
	}
}

// Classifier evaluates an ordered rule list.
type Classifier struct {
	rules []Rule
}

// New builds a classifier from keyword rule specs. fallback is the catch-all
// response and is appended as the final rule.
func New(specs []RuleSpec, fallback string) (*Classifier, error) {
	if strings.TrimSpace(fallback) == "" {
		return nil, fmt.Errorf("fallback reply is empty")
	}

	rules := make([]Rule, 0, len(specs)+1)
	for i, spec := range specs {
		rule, err := keywordRule(spec)
		if err != nil {
			return nil, fmt.Errorf("rule[%d] %q: %w", i, spec.Name, err)
		}
		rules = append(rules, rule)
	}
	rules = append(rules, Rule{
		Name:     "default",
		Match:    func(string) bool { return true },
		Response: fallback,
	})

	return &Classifier{rules: rules}, nil
}

// Default returns the classifier with the built-in rules.
func Default() *Classifier {
	c, err := New(DefaultRuleSpecs(), WelcomeReply)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the response of the first matching rule.
func (c *Classifier) Classify(text string) string {
	return c.Match(text).Response
}

// Match returns the first rule matching text.
func (c *Classifier) Match(text string) Rule {
	lowered := strings.ToLower(text)
	for _, r := range c.rules {
		if r.Match(lowered) {
			return r
		}
	}
	// unreachable while the catch-all is last
	return c.rules[len(c.rules)-1]
}

// Rules returns the rule names in evaluation order.
func (c *Classifier) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

func keywordRule(spec RuleSpec) (Rule, error) {
	if strings.TrimSpace(spec.Response) == "" {
		return Rule{}, fmt.Errorf("response is empty")
	}

	alts := make([]string, 0, len(spec.Keywords))
	for _, kw := range spec.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		alts = append(alts, regexp.QuoteMeta(strings.ToLower(kw)))
	}
	if len(alts) == 0 {
		return Rule{}, fmt.Errorf("no keywords")
	}

	re, err := regexp.Compile("(?i)(" + strings.Join(alts, "|") + ")")
	if err != nil {
		return Rule{}, fmt.Errorf("compile keywords: %w", err)
	}

	return Rule{
		Name:     spec.Name,
		Match:    re.MatchString,
		Response: spec.Response,
	}, nil
}
