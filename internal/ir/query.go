package ir

import (
	"net/url"
	"strings"
)

// Param is one decoded query key/value pair.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Query is an ordered, decoded query string. Keys are unique: duplicate
// keys resolve last-write-wins while keeping the first key's position.
type Query []Param

// ParseQuery decodes a raw query string (without the leading '?').
// '+' decodes to a space. Malformed escapes are kept verbatim.
func ParseQuery(raw string) Query {
	raw = strings.TrimPrefix(raw, "?")
	var q Query
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		q = q.With(unescape(k), unescape(v))
	}
	return q
}

func unescape(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// QueryFromMap builds a query from m in RFC 8785 key order.
func QueryFromMap(m map[string]string) Query {
	q := make(Query, 0, len(m))
	for _, k := range sortedKeys(m) {
		q = append(q, Param{Key: k, Value: m[k]})
	}
	return q
}

// Get returns the value stored under key.
func (q Query) Get(key string) (string, bool) {
	for _, p := range q {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// With returns a copy of q with key set to value.
func (q Query) With(key, value string) Query {
	out := make(Query, len(q), len(q)+1)
	copy(out, q)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Param{Key: key, Value: value})
}

// Keys returns the keys in order.
func (q Query) Keys() []string {
	keys := make([]string, len(q))
	for i, p := range q {
		keys[i] = p.Key
	}
	return keys
}

// Map returns the query as a plain map.
func (q Query) Map() map[string]string {
	m := make(map[string]string, len(q))
	for _, p := range q {
		m[p.Key] = p.Value
	}
	return m
}

// Encode renders the query without the leading '?'.
func (q Query) Encode() string {
	var b strings.Builder
	for i, p := range q {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(EscapeQueryComponent(p.Key))
		b.WriteByte('=')
		b.WriteString(EscapeQueryComponent(p.Value))
	}
	return b.String()
}

// Location is a path plus its decoded query.
type Location struct {
	Path  string `json:"path"`
	Query Query  `json:"query,omitempty"`
}

// ParseLocation splits a URL reference into path and decoded query.
// Fragments are discarded.
func ParseLocation(ref string) Location {
	ref, _, _ = strings.Cut(ref, "#")
	path, rawQuery, _ := strings.Cut(ref, "?")
	if path == "" {
		path = "/"
	}
	return Location{Path: path, Query: ParseQuery(rawQuery)}
}

// String renders the location as path[?query].
func (l Location) String() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

// EscapeQueryComponent percent-encodes a query key or value the way browser
// routers serialize them: encodeURIComponent, then '@', ':', '$', ',' and
// ';' are left literal and spaces become %20.
func EscapeQueryComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isQueryLiteral(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isQueryLiteral(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')', '@', ':', '$', ',', ';':
		return true
	}
	return false
}
