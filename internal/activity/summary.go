package activity

import (
	"fmt"
	"slices"
	"time"

	"github.com/matthewbaird/screens/internal/event"
)

// CategorySummary aggregates the events of a single category.
type CategorySummary struct {
	Category string         `json:"category"`
	Count    int            `json:"count"`
	ByWeight map[string]int `json:"by_weight"`
	ByType   map[string]int `json:"by_type"`
	Trend    string         `json:"trend"` // "rising", "stable", "falling"
}

// AlertRule fires when at least Count events of Category and Weight occur
// within Within of the end of the summary window.
type AlertRule struct {
	Name     string        `json:"name"`
	Category string        `json:"category,omitempty"`
	Weight   string        `json:"weight,omitempty"`
	Count    int           `json:"count"`
	Within   time.Duration `json:"within"`
}

// Alert is a rule that fired.
type Alert struct {
	Rule     AlertRule `json:"rule"`
	Count    int       `json:"count"`
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// Summary is the aggregated event overview for a model, or for every model
// when Model is empty.
type Summary struct {
	Model      string                     `json:"model,omitempty"`
	Since      time.Time                  `json:"since"`
	Until      time.Time                  `json:"until"`
	Total      int                        `json:"total"`
	Categories map[string]CategorySummary `json:"categories"`
	Health     string                     `json:"health"` // "ok", "degraded", "failing"
	Reason     string                     `json:"reason"`
	Alerts     []Alert                    `json:"alerts"`
}

// DefaultAlertRules flag screens whose operations keep failing.
var DefaultAlertRules = []AlertRule{
	{Name: "repeated_save_failures", Category: "form", Weight: "error", Count: 3, Within: 10 * time.Minute},
	{Name: "repeated_list_failures", Category: "list", Weight: "error", Count: 5, Within: 10 * time.Minute},
	{Name: "repeated_delete_failures", Category: "delete", Weight: "error", Count: 3, Within: 10 * time.Minute},
}

// Summarize aggregates events that occurred in [since, until].
func Summarize(events []event.ScreenEvent, model string, since, until time.Time, rules []AlertRule) Summary {
	s := Summary{
		Model:      model,
		Since:      since,
		Until:      until,
		Categories: make(map[string]CategorySummary),
		Alerts:     []Alert{},
	}
	var inWindow []event.ScreenEvent
	for _, e := range events {
		if e.OccurredAt.Before(since) || e.OccurredAt.After(until) {
			continue
		}
		if model != "" && e.Model != model {
			continue
		}
		inWindow = append(inWindow, e)
	}

	errorCount := 0
	for _, e := range inWindow {
		cs, ok := s.Categories[e.Category]
		if !ok {
			cs = CategorySummary{
				Category: e.Category,
				ByWeight: make(map[string]int),
				ByType:   make(map[string]int),
			}
		}
		cs.Count++
		cs.ByWeight[e.Weight]++
		cs.ByType[e.EventType]++
		s.Categories[e.Category] = cs
		if e.Weight == "error" {
			errorCount++
		}
	}
	for cat, cs := range s.Categories {
		cs.Trend = trend(inWindow, cat, since, until)
		s.Categories[cat] = cs
	}
	s.Total = len(inWindow)

	for _, rule := range rules {
		if a, ok := evaluate(rule, inWindow, until); ok {
			s.Alerts = append(s.Alerts, a)
		}
	}
	s.Health, s.Reason = health(s.Total, errorCount, s.Alerts)
	return s
}

func evaluate(rule AlertRule, events []event.ScreenEvent, until time.Time) (Alert, bool) {
	start := until.Add(-rule.Within)
	var matching []time.Time
	for _, e := range events {
		if e.OccurredAt.Before(start) {
			continue
		}
		if rule.Category != "" && e.Category != rule.Category {
			continue
		}
		if rule.Weight != "" && e.Weight != rule.Weight {
			continue
		}
		matching = append(matching, e.OccurredAt)
	}
	if len(matching) == 0 || len(matching) < rule.Count {
		return Alert{}, false
	}
	slices.SortFunc(matching, time.Time.Compare)
	return Alert{
		Rule:     rule,
		Count:    len(matching),
		Earliest: matching[0],
		Latest:   matching[len(matching)-1],
	}, true
}

// trend compares event volume in the first and second half of the window.
func trend(events []event.ScreenEvent, category string, since, until time.Time) string {
	mid := since.Add(until.Sub(since) / 2)
	var first, second int
	for _, e := range events {
		if e.Category != category {
			continue
		}
		if e.OccurredAt.Before(mid) {
			first++
		} else {
			second++
		}
	}
	switch {
	case second > first+1:
		return "rising"
	case first > second+1:
		return "falling"
	default:
		return "stable"
	}
}

func health(total, errors int, alerts []Alert) (string, string) {
	if len(alerts) > 0 {
		return "failing", fmt.Sprintf("alert %s fired with %d events", alerts[0].Rule.Name, alerts[0].Count)
	}
	if total > 0 && errors*4 >= total {
		return "degraded", fmt.Sprintf("%d of %d operations failed", errors, total)
	}
	return "ok", "no repeated failures"
}
