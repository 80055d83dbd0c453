package value

import (
	"strconv"
	"strings"
)

// JoinPath appends key to a dotted path. Keys that are not bare TOML keys
// are quoted so the result stays unambiguous.
func JoinPath(parent, key string) string {
	seg := QuoteKey(key)
	if parent == "" {
		return seg
	}
	return parent + "." + seg
}

// IndexPath appends an array index to a path.
func IndexPath(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}

// QuoteKey returns key unchanged when it is a bare key and as a TOML
// basic string otherwise.
func QuoteKey(key string) string {
	if IsBareKey(key) {
		return key
	}
	return QuoteString(key)
}

// IsBareKey reports whether key can appear unquoted in TOML.
func IsBareKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// SplitPath splits a dotted path produced by JoinPath and IndexPath back
// into its segments. Indices are returned as "[i]" segments.
func SplitPath(path string) []string {
	var (
		segs []string
		cur  strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch c {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				cur.WriteString(path[i:])
				i = len(path)
				continue
			}
			segs = append(segs, path[i:i+end+1])
			i += end
		case '"':
			flush()
			quoted, rest := scanQuoted(path[i:])
			if s, err := strconv.Unquote(quoted); err == nil {
				segs = append(segs, s)
			} else {
				segs = append(segs, quoted)
			}
			i = len(path) - len(rest) - 1
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return segs
}

func scanQuoted(s string) (quoted, rest string) {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return s[:i+1], s[i+1:]
		}
	}
	return s, ""
}
