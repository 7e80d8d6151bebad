package filter

import "strings"

// MatchKeyword returns the first keyword contained in title. Matching is a
// normalized substring test, so "linux" matches "Senior Linux Engineer".
func MatchKeyword(title string, keywords []string) (string, bool) {
	text := Normalize(title)
	if text == "" {
		return "", false
	}
	for _, kw := range keywords {
		needle := Normalize(kw)
		if needle == "" {
			continue
		}
		if strings.Contains(text, needle) {
			return kw, true
		}
	}
	return "", false
}

// IsSuitable reports whether a vacancy title passes a query's keyword gate.
// A list with no non-blank keyword accepts everything.
func IsSuitable(title string, keywords []string) bool {
	if !hasKeywords(keywords) {
		return true
	}
	_, ok := MatchKeyword(title, keywords)
	return ok
}

func hasKeywords(keywords []string) bool {
	for _, kw := range keywords {
		if Normalize(kw) != "" {
			return true
		}
	}
	return false
}
