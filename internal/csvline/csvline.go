// Package csvline splits and joins single-line comma-separated records.
//
// A record must fit on one physical line. Fields may be wrapped in double
// quotes, and a doubled quote inside a quoted field is a literal quote.
// Joined output quotes every field.
package csvline

import "strings"

// Separator is the field separator.
const Separator = ','

const quote = '"'

// Split splits line into fields. It never fails: an unbalanced quote keeps
// the rest of the line inside the current field.
func Split(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		if inQuotes {
			switch {
			case ch == quote && i+1 < len(line) && line[i+1] == quote:
				current.WriteByte(quote)
				i++
			case ch == quote:
				inQuotes = false
			default:
				current.WriteByte(ch)
			}
			continue
		}

		switch ch {
		case quote:
			inQuotes = true
		case Separator:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	return append(fields, current.String())
}

// Quote wraps s in double quotes, doubling any quote inside it.
func Quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Join quotes every field and joins them with Separator. No trailing
// separator or line terminator is added.
func Join(fields []string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(Separator)
		}
		b.WriteString(Quote(f))
	}
	return b.String()
}
