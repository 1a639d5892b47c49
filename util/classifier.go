package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Reasons attached to suspicious access logs.
const (
	ReasonUnauthorizedAdminAccess = "Unauthorized admin access attempt"
	ReasonSessionDuplicated       = "Session duplicated detected"
)

// SessionDirectory answers whether an unexpired session exists for a session
// key. The pipeline never writes through this interface.
type SessionDirectory interface {
	ExistsActive(sessionKey string) bool
}

// RequestParam is one extracted key/value pair, kept in extraction order so
// the text blob fed to the pattern library is deterministic.
type RequestParam struct {
	Key   string
	Value string
}

// DetectSuspicious runs the suspicious-access heuristics in order: the
// admin-path check first, then the session-duplication check. The first match
// wins; no match returns (false, "").
func DetectSuspicious(path string, adminPrefix string, authenticated bool, sessionKey string, sessions SessionDirectory) (bool, string) {
	if adminPrefix != "" && strings.HasPrefix(path, adminPrefix) && !authenticated {
		return true, ReasonUnauthorizedAdminAccess
	}
	if sessionKey != "" && sessions != nil && sessions.ExistsActive(sessionKey) {
		return true, ReasonSessionDuplicated
	}
	return false, ""
}

// ExtractRequestParams flattens the inspectable request payload:
// query parameters for GET, urlencoded form fields for POST, and for
// PUT/PATCH/DELETE a JSON object body when the content type declares JSON.
// Any parse failure yields an empty slice, never an error.
func ExtractRequestParams(method, contentType, rawQuery string, body []byte) []RequestParam {
	switch method {
	case "GET":
		return parseQueryOrdered(rawQuery)
	case "POST":
		if strings.Contains(contentType, "application/x-www-form-urlencoded") {
			return parseQueryOrdered(string(body))
		}
		if strings.Contains(contentType, "application/json") {
			return parseJSONObjectOrdered(body)
		}
		return nil
	case "PUT", "PATCH", "DELETE":
		if strings.Contains(contentType, "application/json") {
			return parseJSONObjectOrdered(body)
		}
		return nil
	default:
		return nil
	}
}

// DetectSQLInjection matches every library pattern against the concatenated
// parameter values and returns the matched expressions in library order.
func DetectSQLInjection(params []RequestParam) (bool, []string) {
	if len(params) == 0 {
		return false, nil
	}

	values := make([]string, 0, len(params))
	for _, p := range params {
		values = append(values, p.Value)
	}
	combined := strings.Join(values, " ")

	var matched []string
	for _, pattern := range SQLInjectionPatterns {
		if pattern.Match(combined) {
			matched = append(matched, pattern.Expr)
		}
	}
	return len(matched) > 0, matched
}

// InjectionReason renders the matched pattern list the way it is stored on the
// access log record.
func InjectionReason(patterns []string) string {
	return strings.Join(patterns, ", ")
}

// parseQueryOrdered decodes a urlencoded string preserving wire order.
// Undecodable pairs are skipped rather than failing the whole extraction.
func parseQueryOrdered(raw string) []RequestParam {
	if raw == "" {
		return nil
	}
	var params []RequestParam
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			continue
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		params = append(params, RequestParam{Key: k, Value: v})
	}
	return params
}

// parseJSONObjectOrdered extracts top-level members of a JSON object in
// document order. A body that fails to parse, or parses to anything other
// than an object, yields nil.
func parseJSONObjectOrdered(body []byte) []RequestParam {
	dec := json.NewDecoder(bytes.NewReader(body))

	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var params []RequestParam
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil
		}
		params = append(params, RequestParam{Key: key, Value: stringifyJSONValue(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return nil
	}
	return params
}

// stringifyJSONValue renders a JSON value the way it participates in the
// pattern-matching blob: strings verbatim, everything else via %v.
func stringifyJSONValue(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
