package category

import "strings"

// Category is a closed classification label assigned to an expense.
type Category string

const (
	Food          Category = "Food"
	Travel        Category = "Travel"
	Accommodation Category = "Accommodation"
	Transport     Category = "Transport"
	Entertainment Category = "Entertainment"
	Supplies      Category = "Supplies"
	Default       Category = "Default"
)

// rule pairs a category with the keywords that select it. Rules are checked
// in order and the first match wins, so the table encodes precedence.
type rule struct {
	category Category
	keywords []string
}

var rules = []rule{
	{Food, []string{"restaurant", "cafe", "food", "dining", "coffee", "bakery", "grocer"}},
	{Travel, []string{"airline", "flight", "airport", "travel", "tour"}},
	{Accommodation, []string{"hotel", "motel", "inn", "resort", "lodging"}},
	{Transport, []string{"taxi", "uber", "lyft", "bus", "train", "metro", "subway"}},
	{Entertainment, []string{"movie", "cinema", "theater", "concert", "event", "ticket"}},
	{Supplies, []string{"store", "shop", "market", "supply", "office", "stationery"}},
}

// All returns every category in precedence order, Default last.
func All() []Category {
	all := make([]Category, 0, len(rules)+1)
	for _, r := range rules {
		all = append(all, r.category)
	}
	return append(all, Default)
}

// Valid reports whether s names a known category.
func Valid(s string) bool {
	for _, c := range All() {
		if s == string(c) {
			return true
		}
	}
	return false
}

// Detect classifies an expense from its vendor name and line item
// descriptions using case-insensitive substring matching. It always
// returns a category; Default when no keyword matches.
func Detect(vendor string, descriptions []string) Category {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(vendor))
	for _, d := range descriptions {
		sb.WriteByte(' ')
		sb.WriteString(strings.ToLower(d))
	}
	haystack := sb.String()

	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(haystack, kw) {
				return r.category
			}
		}
	}
	return Default
}
