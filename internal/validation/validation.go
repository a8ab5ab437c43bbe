// Package validation checks form input against declarative rules.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Rule describes the checks for one field. Message, when set, replaces every
// default error text of the field.
type Rule struct {
	Field     string
	Required  bool
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	Email     bool
	// Match names another field that must hold the same value.
	Match string
	// Validate returns an error text, or "" when value is acceptable.
	Validate func(value string, data map[string]string) string
	Message  string
}

// Result holds one error per failing field, in rule order.
type Result struct {
	Errors map[string]string
	order  []string
}

// Valid reports whether no rule failed.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// First returns the error of the first failing field.
func (r Result) First() string {
	if len(r.order) == 0 {
		return ""
	}
	return r.Errors[r.order[0]]
}

// FirstField returns the name of the first failing field.
func (r Result) FirstField() string {
	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}

// Validate applies rules to data in order, stopping at the first failure of
// each field.
func Validate(data map[string]string, rules ...Rule) Result {
	res := Result{Errors: make(map[string]string)}
	fail := func(field, def string, msg string) {
		if msg == "" {
			msg = def
		}
		res.Errors[field] = msg
		res.order = append(res.order, field)
	}

	for _, rule := range rules {
		value := data[rule.Field]

		if rule.Required && strings.TrimSpace(value) == "" {
			fail(rule.Field, "This field is required", rule.Message)
			continue
		}
		if value == "" {
			continue
		}

		length := utf8.RuneCountInString(value)
		switch {
		case rule.MinLength > 0 && length < rule.MinLength:
			fail(rule.Field, fmt.Sprintf("Must be at least %d characters", rule.MinLength), rule.Message)
		case rule.MaxLength > 0 && length > rule.MaxLength:
			fail(rule.Field, fmt.Sprintf("Must be at most %d characters", rule.MaxLength), rule.Message)
		case rule.Pattern != nil && !rule.Pattern.MatchString(value):
			fail(rule.Field, "Invalid format", rule.Message)
		case rule.Email && !emailPattern.MatchString(value):
			fail(rule.Field, "Invalid email address", rule.Message)
		case rule.Match != "" && value != data[rule.Match]:
			fail(rule.Field, "Does not match "+rule.Match, rule.Message)
		case rule.Validate != nil:
			if msg := rule.Validate(value, data); msg != "" {
				res.Errors[rule.Field] = msg
				res.order = append(res.order, rule.Field)
			}
		}
	}
	return res
}

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}
