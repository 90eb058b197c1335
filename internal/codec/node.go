package codec

import "errors"

var errNotObject = errors.New("document is not a JSON object")

// node is a decoded JSON object. Accessors return zero values for missing
// or mistyped members.
type node map[string]any

func asNode(v any) node {
	m, _ := v.(map[string]any)
	return m
}

func (n node) obj(key string) node { return asNode(n[key]) }

func (n node) arr(key string) []any {
	a, _ := n[key].([]any)
	return a
}

func (n node) str(key string) (string, bool) {
	s, ok := n[key].(string)
	return s, ok
}

func (n node) strOr(key string) string {
	s, _ := n.str(key)
	return s
}

func (n node) num(key string) (float64, bool) {
	f, ok := n[key].(float64)
	return f, ok
}
