package tools

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/richinex/swasth/internal/argjson"
)

// Args holds validated, type-coerced tool arguments.
type Args map[string]any

// String returns the named string argument, or "" when absent.
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Float returns the named number argument, or 0 when absent.
func (a Args) Float(name string) float64 {
	f, _ := a[name].(float64)
	return f
}

// ValidationError reports arguments that do not satisfy a tool's schema.
type ValidationError struct {
	Tool   string
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("invalid argument %q for %s: %s", e.Param, e.Tool, e.Reason)
}

var leadingNumber = regexp.MustCompile(`^\s*([-+]?(?:\d+(?:\.\d*)?|\.\d+))`)

// bindArgs decodes raw arguments and checks them against the tool's
// parameters: required values must be present, defaults fill gaps, numbers
// accept numeric strings ("70", "70kg") and strings accept scalars.
// Parameters the tool does not declare are dropped.
func bindArgs(meta ToolMetadata, raw []byte) (Args, error) {
	obj, err := argjson.Object(raw)
	if err != nil {
		return nil, &ValidationError{Tool: meta.Name, Reason: err.Error()}
	}

	args := make(Args, len(meta.Parameters))
	for _, p := range meta.Parameters {
		v, present := obj[p.Name]
		if !present || v == nil || v == "" {
			if p.Default != nil {
				args[p.Name] = p.Default
				continue
			}
			if p.Required {
				return nil, &ValidationError{Tool: meta.Name, Param: p.Name, Reason: "is required"}
			}
			continue
		}

		switch p.ParamType {
		case TypeNumber:
			f, err := coerceNumber(v)
			if err != nil {
				return nil, &ValidationError{Tool: meta.Name, Param: p.Name, Reason: err.Error()}
			}
			args[p.Name] = f
		default:
			s, err := coerceString(v)
			if err != nil {
				return nil, &ValidationError{Tool: meta.Name, Param: p.Name, Reason: err.Error()}
			}
			if s == "" && p.Required {
				return nil, &ValidationError{Tool: meta.Name, Param: p.Name, Reason: "is required"}
			}
			args[p.Name] = s
		}
	}
	return args, nil
}

func coerceNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		m := leadingNumber.FindStringSubmatch(n)
		if m == nil {
			return 0, fmt.Errorf("expected a number, got %q", n)
		}
		return strconv.ParseFloat(m[1], 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func coerceString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(s), nil
	default:
		return "", fmt.Errorf("expected a string, got %T", v)
	}
}
