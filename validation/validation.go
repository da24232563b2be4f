package validation

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Violations holds every failed rule per attribute.
type Violations struct {
	Errors map[string][]error
}

func (violations Violations) IsEmpty() bool {
	return len(violations.Errors) == 0
}

func (violations Violations) Error() string {
	names := make([]string, 0, len(violations.Errors))
	for name := range violations.Errors {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteString("; ")
		}
		for j, err := range violations.Errors[name] {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(err.Error())
		}
	}
	return sb.String()
}

// Err returns nil when there are no violations.
func (violations Violations) Err() error {
	if violations.IsEmpty() {
		return nil
	}
	return violations
}

// ValidateMap checks every attribute in data against its rules. Rules are
// written as "name" or "name:argument", e.g. "required", "min:1", "dir",
// "oneof:debug|info".
func ValidateMap(data map[string]any, rules map[string][]string) Violations {
	var violations Violations
	violations.Errors = make(map[string][]error)

	for attributeName, attributeValue := range data {
		attributeRules, attributeRulesExists := rules[attributeName]
		if !attributeRulesExists {
			violations.Errors[attributeName] = append(violations.Errors[attributeName], fmt.Errorf("validation: no rules found :: %s", attributeName))
			continue
		}

		var errorCollection []error
		for _, attributeRule := range attributeRules {
			if err := validate(attributeRule, attributeName, attributeValue); err != nil {
				errorCollection = append(errorCollection, err)
			}
		}

		if len(errorCollection) != 0 {
			violations.Errors[attributeName] = errorCollection
		}
	}

	return violations
}

func validate(rule string, name string, value any) error {
	rule, argument, _ := strings.Cut(rule, ":")

	switch rule {
	case "required":
		switch v := value.(type) {
		case nil:
			return fmt.Errorf("%s is required", name)
		case string:
			if v == "" {
				return fmt.Errorf("%s is required", name)
			}
		}
	case "min", "max":
		limit, err := strconv.ParseInt(argument, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid validation rule :: %s:%s", rule, argument)
		}
		n, ok := number(value)
		if !ok {
			return fmt.Errorf("%s must be a number", name)
		}
		if rule == "min" && n < limit {
			return fmt.Errorf("%s must be at least %d", name, limit)
		}
		if rule == "max" && n > limit {
			return fmt.Errorf("%s must be at most %d", name, limit)
		}
	case "dir":
		path, _ := value.(string)
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%s must be an existing directory: %q", name, path)
		}
	case "oneof":
		v, _ := value.(string)
		if !slices.Contains(strings.Split(argument, "|"), v) {
			return fmt.Errorf("%s must be one of %s", name, strings.ReplaceAll(argument, "|", ", "))
		}
	default:
		return fmt.Errorf("invalid validation rule :: %s", rule)
	}

	return nil
}

func number(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case time.Duration:
		return int64(v), true
	}
	return 0, false
}
