package github

import "time"

// Navigation helpers for the map[string]any payloads the GraphQL endpoint
// returns. Every accessor tolerates missing or differently-typed fields so
// one sparse node never aborts a page.

// mapValue returns the nested map stored under key.
func mapValue(data map[string]any, key string) (map[string]any, bool) {
	m, ok := data[key].(map[string]any)
	return m, ok
}

// sliceNodes returns the "nodes" list of a GraphQL connection.
func sliceNodes(data map[string]any) ([]any, bool) {
	nodes, ok := data["nodes"].([]any)
	return nodes, ok
}

// stringValue returns the string stored under key.
func stringValue(data map[string]any, key string) (string, bool) {
	s, ok := data[key].(string)
	return s, ok
}

// intValue returns the integer stored under key. JSON numbers decode as
// float64, so the value is converted.
func intValue(data map[string]any, key string) (int, bool) {
	f, ok := data[key].(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// timeValue parses the RFC 3339 timestamp stored under key. Null and
// malformed timestamps report false.
func timeValue(data map[string]any, key string) (time.Time, bool) {
	s, ok := data[key].(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// authorLogin extracts the login of a nullable author object. Deleted
// accounts come back as null and report false.
func authorLogin(data map[string]any, key string) (string, bool) {
	author, ok := mapValue(data, key)
	if !ok {
		return "", false
	}
	return stringValue(author, "login")
}
