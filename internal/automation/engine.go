// Package automation implements inbox rule evaluation and action execution.
// Evaluation is pure: rules are matched against a message snapshot and a
// supplied clock, producing action sets without touching any store.
package automation

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mailpilot/backend/internal/models"
)

// ActionSet is the actions contributed by one triggered rule.
type ActionSet struct {
	RuleID   uuid.UUID
	RuleName string
	Actions  []models.RuleAction
}

// Evaluate matches msg against every active rule and returns the triggered
// action sets in rule order. Each rule is judged independently, so the result
// for one rule never depends on another.
func Evaluate(msg *models.InboxMessage, rules []*models.AutomationRule, now time.Time) []ActionSet {
	content := strings.ToLower(msg.Subject + " " + msg.Body)
	var sets []ActionSet
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if !keywordMatch(content, rule.Keywords) {
			continue
		}
		if !conditionsHold(msg, rule.Conditions, now) {
			continue
		}
		sets = append(sets, ActionSet{RuleID: rule.ID, RuleName: rule.Name, Actions: rule.Actions})
	}
	return sets
}

func keywordMatch(content string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(content, kw) {
			return true
		}
	}
	return false
}

func conditionsHold(msg *models.InboxMessage, cond models.RuleConditions, now time.Time) bool {
	if cond.SenderPattern != "" {
		re, err := regexp.Compile(cond.SenderPattern)
		// an uncompilable pattern cannot veto
		if err == nil && !re.MatchString(msg.Sender) {
			return false
		}
	}
	if cond.BusinessHoursOnly && !withinBusinessHours(now) {
		return false
	}
	return true
}

// withinBusinessHours reports whether now falls Mon-Fri 09:00-17:59 UTC.
func withinBusinessHours(now time.Time) bool {
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	hour := now.Hour()
	return hour >= 9 && hour <= 17
}

var addressPattern = regexp.MustCompile(`<([^>]+)>`)

// ExtractAddress pulls the bare address out of a "Name <addr>" sender string.
// A string without angle brackets is returned trimmed as-is.
func ExtractAddress(sender string) string {
	if m := addressPattern.FindStringSubmatch(sender); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(sender)
}
