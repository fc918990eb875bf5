// Package core provides filtering, sorting, and lookup of overlay history.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/jmylchreest/overbar/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // Field name: text, type, id, duration, posted
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	regex       *regexp.Regexp
	typeVal     model.MessageType
	durationVal time.Duration
	postedCut   time.Time
}

// FilterExpr represents a compound filter expression.
// Multiple conditions are ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// FilterOptions specifies criteria for filtering messages.
type FilterOptions struct {
	Since  time.Duration       // Only messages posted within Since of Now (0=all)
	Types  []model.MessageType // Only these types (empty=any)
	Search string              // Case-insensitive text substring
	Limit  int                 // Maximum results (0=unlimited)

	// Now anchors Since; zero means time.Now.
	Now time.Time
}

// Filter filters messages based on the provided options, keeping their order.
func Filter(messages []model.Message, opts FilterOptions) []model.Message {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	search := strings.ToLower(opts.Search)

	result := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if opts.Since > 0 && m.PostedAt.Before(now.Add(-opts.Since)) {
			continue
		}
		if len(opts.Types) > 0 && !lo.Contains(opts.Types, m.Type) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(m.Text), search) {
			continue
		}
		result = append(result, m)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// ParseDuration parses a duration string with extended formats.
// Supports: 48h, 7d, 1w, 0 (all time)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if s == "0" || s == "" {
		return 0, nil
	}

	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// ParseFilter parses a filter expression relative to the current time.
// Format: "field=value,field2~value2,field3>value3"
// Multiple conditions are comma-separated and ANDed together.
//
// Supported fields: text, type, id, duration, posted
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "type=error" - error messages only
//   - "text~deploy" - text contains "deploy"
//   - "duration>=2s" - shown for at least two seconds
//   - "posted>5m" - posted within the last five minutes
//   - "text~=(?i)^build" - text matches regex
func ParseFilter(expr string) (*FilterExpr, error) {
	return ParseFilterAt(expr, time.Now())
}

// ParseFilterAt parses a filter expression whose "posted" conditions are
// relative to now.
func ParseFilterAt(expr string, now time.Time) (*FilterExpr, error) {
	filter := &FilterExpr{}
	if expr == "" {
		return filter, nil
	}

	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part, now)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}

	return filter, nil
}

// parseCondition parses a single condition like "type=error" or "text~build".
func parseCondition(s string, now time.Time) (FilterCondition, error) {
	// Longest operators first so "!=" is not read as "=".
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 {
			cond := FilterCondition{
				Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
				Operator: op,
				Value:    strings.TrimSpace(s[idx+len(op):]),
			}
			if err := cond.init(now); err != nil {
				return FilterCondition{}, err
			}
			return cond, nil
		}
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

// init pre-parses and validates the condition value.
func (c *FilterCondition) init(now time.Time) error {
	switch c.Field {
	case "text", "message", "msg":
		c.Field = "text"
	case "id":
	case "type", "kind":
		c.Field = "type"
		t, err := model.ParseMessageType(c.Value)
		if err != nil {
			return err
		}
		c.typeVal = t
	case "duration", "dur":
		c.Field = "duration"
		d, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid duration value: %w", err)
		}
		c.durationVal = d
	case "posted", "time", "ts":
		c.Field = "posted"
		d, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid posted value: %w", err)
		}
		c.postedCut = now.Add(-d)
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}

	return nil
}

// Match tests if a message matches every condition.
func (f *FilterExpr) Match(m model.Message) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(m) {
			return false
		}
	}
	return true
}

// Match tests if a message matches this single condition.
func (c *FilterCondition) Match(m model.Message) bool {
	switch c.Field {
	case "text":
		return c.matchString(m.Text)
	case "id":
		return c.matchString(m.ID)
	case "type":
		return c.matchOrdered(int64(m.Type), int64(c.typeVal))
	case "duration":
		return c.matchOrdered(int64(m.Duration), int64(c.durationVal))
	case "posted":
		// "posted>5m" reads as "more recent than five minutes ago".
		return c.matchOrdered(m.PostedAt.UnixNano(), c.postedCut.UnixNano())
	default:
		return false
	}
}

// matchString matches a string field.
func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.Value
	case FilterOpNotEqual:
		return fieldValue != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

// matchOrdered compares two ordered values.
func (c *FilterCondition) matchOrdered(fieldValue, condValue int64) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == condValue
	case FilterOpNotEqual:
		return fieldValue != condValue
	case FilterOpGreater:
		return fieldValue > condValue
	case FilterOpLess:
		return fieldValue < condValue
	case FilterOpGreaterEq:
		return fieldValue >= condValue
	case FilterOpLessEq:
		return fieldValue <= condValue
	default:
		return false
	}
}

// FilterWithExpr filters messages using a filter expression.
func FilterWithExpr(messages []model.Message, expr *FilterExpr) []model.Message {
	if expr == nil || len(expr.Conditions) == 0 {
		return messages
	}
	return lo.Filter(messages, func(m model.Message, _ int) bool {
		return expr.Match(m)
	})
}
