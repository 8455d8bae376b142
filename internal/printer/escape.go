package printer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"tenantql/internal/ast"
	"tenantql/internal/domain"
	"tenantql/internal/query"
)

var (
	sourceIdentifier    = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	executionIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

var escapeChars = map[rune]string{
	'\b': `\b`,
	'\f': `\f`,
	'\r': `\r`,
	'\n': `\n`,
	'\t': `\t`,
	0:    `\0`,
	'\a': `\a`,
	'\v': `\v`,
	'\\': `\\`,
}

func escapeWith(s string, quote rune) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteRune(quote)
	for _, r := range s {
		if r == quote {
			b.WriteRune('\\')
			b.WriteRune(r)
			continue
		}
		if esc, ok := escapeChars[r]; ok {
			b.WriteString(esc)
			continue
		}
		b.WriteRune(r)
	}
	b.WriteRune(quote)
	return b.String()
}

// EscapeIdentifier quotes name for dialect when it is not a plain
// identifier. Names containing % are rejected: they would collide with
// parameter placeholders.
func EscapeIdentifier(name string, dialect query.Dialect) (string, error) {
	if strings.Contains(name, "%") {
		return "", domain.ErrPolicy("The identifier %q is not permitted as it contains the %% character", name)
	}
	plain := executionIdentifier
	if dialect == query.DialectSource {
		plain = sourceIdentifier
	}
	if plain.MatchString(name) {
		return name, nil
	}
	return escapeWith(name, '`'), nil
}

// EscapeString single-quotes s.
func EscapeString(s string) string {
	return escapeWith(s, '\'')
}

// EscapeValue renders a constant inline. Times are shown in timezone.
func EscapeValue(v any, dialect query.Dialect, timezone string) (string, error) {
	switch v := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if dialect == query.DialectExecution {
			if v {
				return "1", nil
			}
			return "0", nil
		}
		if v {
			return "true", nil
		}
		return "false", nil
	case string:
		return EscapeString(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return formatFloat(v), nil
	case time.Time:
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			loc = time.UTC
		}
		ts := EscapeString(v.In(loc).Format("2006-01-02 15:04:05.000000"))
		if dialect == query.DialectExecution {
			return "toDateTime64(" + ts + ", 6, " + EscapeString(loc.String()) + ")", nil
		}
		return "toDateTime(" + ts + ")", nil
	case uuid.UUID:
		if dialect == query.DialectExecution {
			return "toUUIDOrNull(" + EscapeString(v.String()) + ")", nil
		}
		return "toUUID(" + EscapeString(v.String()) + ")", nil
	case []any:
		items, err := escapeValues(v, dialect, timezone)
		if err != nil {
			return "", err
		}
		return "[" + items + "]", nil
	case ast.TupleValue:
		items, err := escapeValues(v, dialect, timezone)
		if err != nil {
			return "", err
		}
		return "(" + items + ")", nil
	default:
		return "", domain.ErrResolution("Unsupported constant type: %T", v)
	}
}

func escapeValues(vs []any, dialect query.Dialect, timezone string) (string, error) {
	out := make([]string, len(vs))
	for i, v := range vs {
		s, err := EscapeValue(v, dialect, timezone)
		if err != nil {
			return "", err
		}
		out[i] = s
	}
	return strings.Join(out, ", "), nil
}

// formatFloat keeps a decimal point on whole numbers so the value parses
// back as a float.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
