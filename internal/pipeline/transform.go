// internal/pipeline/transform.go
package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TransformRule defines a single declarative transformation step.
type TransformRule struct {
	Type        string                 `yaml:"type" json:"type"`
	Pattern     string                 `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Replacement string                 `yaml:"replacement,omitempty" json:"replacement,omitempty"`
	Format      string                 `yaml:"format,omitempty" json:"format,omitempty"`
	Params      map[string]interface{} `yaml:"params,omitempty" json:"params,omitempty"`
}

// TransformList is a sequence of rules applied in order.
type TransformList []TransformRule

var (
	spacesRe = regexp.MustCompile(`\s+`)
	tagsRe   = regexp.MustCompile(`<[^>]*>`)
	numberRe = regexp.MustCompile(`-?\d+\.?\d*`)
)

// Apply applies all transformation rules in sequence to the input string.
func (tl TransformList) Apply(ctx context.Context, input string) (string, error) {
	result := input
	for i, rule := range tl {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		var err error
		result, err = rule.Apply(result)
		if err != nil {
			return "", fmt.Errorf("transform rule %d (%s) failed: %w", i, rule.Type, err)
		}
	}
	return result, nil
}

// Apply applies a single transformation rule to the input string.
func (tr TransformRule) Apply(input string) (string, error) {
	switch tr.Type {
	case "trim":
		return strings.TrimSpace(input), nil

	case "normalize_spaces":
		return spacesRe.ReplaceAllString(strings.TrimSpace(input), " "), nil

	case "lowercase":
		return strings.ToLower(input), nil

	case "uppercase":
		return strings.ToUpper(input), nil

	case "remove_html":
		return tagsRe.ReplaceAllString(input, ""), nil

	case "extract_number":
		match := numberRe.FindString(input)
		if match == "" {
			return "0", nil
		}
		return match, nil

	case "parse_float":
		cleaned := strings.ReplaceAll(input, ",", "")
		val, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return "", fmt.Errorf("parse_float failed: %w", err)
		}
		return strconv.FormatFloat(val, 'f', -1, 64), nil

	case "parse_int":
		cleaned := strings.ReplaceAll(input, ",", "")
		val, err := strconv.Atoi(cleaned)
		if err != nil {
			return "", fmt.Errorf("parse_int failed: %w", err)
		}
		return strconv.Itoa(val), nil

	case "regex":
		if tr.Pattern == "" {
			return "", fmt.Errorf("regex pattern is required")
		}
		re, err := regexp.Compile(tr.Pattern)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(input, tr.Replacement), nil

	case "parse_date":
		format := tr.Format
		if format == "" {
			format = "2006-01-02"
		}
		if _, err := time.Parse(format, input); err != nil {
			return "", fmt.Errorf("parse_date failed: %w", err)
		}
		return input, nil

	case "prefix":
		if tr.Params == nil || tr.Params["value"] == nil {
			return "", fmt.Errorf("prefix requires value parameter")
		}
		return fmt.Sprintf("%v", tr.Params["value"]) + input, nil

	case "suffix":
		if tr.Params == nil || tr.Params["value"] == nil {
			return "", fmt.Errorf("suffix requires value parameter")
		}
		return input + fmt.Sprintf("%v", tr.Params["value"]), nil

	case "replace":
		if tr.Params == nil || tr.Params["old"] == nil || tr.Params["new"] == nil {
			return "", fmt.Errorf("replace requires old and new parameters")
		}
		oldVal := fmt.Sprintf("%v", tr.Params["old"])
		newVal := fmt.Sprintf("%v", tr.Params["new"])
		return strings.ReplaceAll(input, oldVal, newVal), nil

	default:
		return "", fmt.Errorf("unknown transform type: %s", tr.Type)
	}
}

// Validate checks transformation rule configuration without applying it.
func (tl TransformList) Validate() error {
	for i, rule := range tl {
		switch rule.Type {
		case "trim", "normalize_spaces", "lowercase", "uppercase", "remove_html",
			"extract_number", "parse_float", "parse_int":
		case "regex":
			if rule.Pattern == "" {
				return fmt.Errorf("rule %d: regex pattern is required", i)
			}
			if _, err := regexp.Compile(rule.Pattern); err != nil {
				return fmt.Errorf("rule %d: invalid regex pattern: %w", i, err)
			}
		case "parse_date":
			// any format string accepted; parse failures surface at apply time
		case "prefix", "suffix":
			if rule.Params == nil || rule.Params["value"] == nil {
				return fmt.Errorf("rule %d: %s requires value parameter", i, rule.Type)
			}
		case "replace":
			if rule.Params == nil || rule.Params["old"] == nil || rule.Params["new"] == nil {
				return fmt.Errorf("rule %d: replace requires old and new parameters", i)
			}
		default:
			return fmt.Errorf("rule %d: unknown transform type: %s", i, rule.Type)
		}
	}
	return nil
}
