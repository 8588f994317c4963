package script

import "strings"

// Compress strips // and /* */ comments from src, collapses every run of
// whitespace to a single space and trims the result. See the package
// documentation for what it gets wrong.
func Compress(src string) string {
	var sb strings.Builder
	sb.Grow(len(src))

	pendingSpace := false
	for i := 0; i < len(src); {
		c := src[i]

		if c == '/' && i+1 < len(src) {
			switch src[i+1] {
			case '/':
				end := strings.IndexByte(src[i:], '\n')
				if end < 0 {
					i = len(src)
				} else {
					i += end
				}
				continue
			case '*':
				end := strings.Index(src[i+2:], "*/")
				if end < 0 {
					i = len(src)
				} else {
					i += end + 4
				}
				// A removed block comment still separates tokens.
				pendingSpace = true
				continue
			}
		}

		if isSpace(c) {
			pendingSpace = true
			i++
			continue
		}

		if pendingSpace && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		pendingSpace = false
		sb.WriteByte(c)
		i++
	}
	return sb.String()
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
