package zone

import (
	"regexp"
	"strings"
)

// replaceFirst replaces the first match of re in subject with tmpl, leaving
// the rest of subject untouched. tmpl uses the replacement syntax zone
// authors write for their destinations: $1..$99, $&, $`, $', $$ and $<name>.
func replaceFirst(re *regexp.Regexp, subject, tmpl string) string {
	loc := re.FindStringSubmatchIndex(subject)
	if loc == nil {
		return subject
	}

	var b strings.Builder
	b.WriteString(subject[:loc[0]])
	expand(&b, re, subject, loc, tmpl)
	b.WriteString(subject[loc[1]:])
	return b.String()
}

func expand(b *strings.Builder, re *regexp.Regexp, subject string, loc []int, tmpl string) {
	groups := re.NumSubexp()
	hasNames := false
	for _, name := range re.SubexpNames() {
		if name != "" {
			hasNames = true
			break
		}
	}

	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return subject[loc[2*i]:loc[2*i+1]]
	}

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '$' || i+1 == len(tmpl) {
			b.WriteByte(c)
			continue
		}

		next := tmpl[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '&':
			b.WriteString(subject[loc[0]:loc[1]])
			i++
		case next == '`':
			b.WriteString(subject[:loc[0]])
			i++
		case next == '\'':
			b.WriteString(subject[loc[1]:])
			i++
		case isDigit(next):
			n := int(next - '0')
			width := 1
			if i+2 < len(tmpl) && isDigit(tmpl[i+2]) {
				if nn := n*10 + int(tmpl[i+2]-'0'); nn >= 1 && nn <= groups {
					n, width = nn, 2
				}
			}
			if n < 1 || n > groups {
				b.WriteByte('$')
				continue
			}
			b.WriteString(group(n))
			i += width
		case next == '<' && hasNames:
			end := strings.IndexByte(tmpl[i+2:], '>')
			if end < 0 {
				b.WriteByte('$')
				continue
			}
			name := tmpl[i+2 : i+2+end]
			if idx := re.SubexpIndex(name); idx > 0 {
				b.WriteString(group(idx))
			}
			i += 2 + end
		default:
			b.WriteByte('$')
		}
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
