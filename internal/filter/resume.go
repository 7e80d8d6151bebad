package filter

import (
	"strings"

	"go-hh-autoapply/internal/config"
)

// SelectResume picks which résumé option to use for a vacancy. Rules are
// tried in order; the first rule with a keyword in the vacancy title selects
// the first option whose text contains the rule's title. Without a match the
// first option is used. It returns -1 when options is empty.
func SelectResume(rules []config.ResumeRule, vacancyTitle string, options []string) (int, *config.ResumeRule) {
	if len(options) == 0 {
		return -1, nil
	}

	for i := range rules {
		rule := &rules[i]
		if _, ok := MatchKeyword(vacancyTitle, rule.Keywords); !ok {
			continue
		}
		want := Normalize(rule.Title)
		for idx, opt := range options {
			if want != "" && strings.Contains(Normalize(opt), want) {
				return idx, rule
			}
		}
	}
	return 0, nil
}
