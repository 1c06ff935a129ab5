package router

import "encoding/json"

// Route tags recognized by text extraction.
const (
	RouteGenerate        = "generate"
	RouteCompletions     = "v1/completions"
	RouteChatCompletions = "v1/chat/completions"
)

// DefaultUserID is the sentinel user id used when a request body omits
// the top-level "user" field.
const DefaultUserID = "default_uid"

// requestFields is the subset of the request body the router reads.
// Messages is kept as raw JSON so its serialized form is exactly the
// bytes the client sent — preserving field order and structure requires
// never round-tripping through a Go map, whose key order isn't stable
// across re-marshaling.
type requestFields struct {
	Text     *string         `json:"text"`
	Prompt   *string         `json:"prompt"`
	Messages json.RawMessage `json:"messages"`
	User     *string         `json:"user"`
	Stream   bool            `json:"stream"`
}

func parseRequestFields(body []byte) (requestFields, bool) {
	var f requestFields
	if err := json.Unmarshal(body, &f); err != nil {
		return requestFields{}, false
	}
	return f, true
}

// ExtractText pulls the request text out of body according to route. A
// body that isn't JSON, or a route tag with no associated field, yields
// the empty string — text extraction never fails the request.
func ExtractText(body []byte, route string) string {
	fields, ok := parseRequestFields(body)
	if !ok {
		return ""
	}
	switch route {
	case RouteGenerate:
		if fields.Text != nil {
			return *fields.Text
		}
	case RouteCompletions:
		if fields.Prompt != nil {
			return *fields.Prompt
		}
	case RouteChatCompletions:
		if len(fields.Messages) > 0 {
			return string(fields.Messages)
		}
	}
	return ""
}

// ExtractUserID returns the request's "user" field, or DefaultUserID if
// absent, empty, or the body isn't JSON.
func ExtractUserID(body []byte) string {
	fields, ok := parseRequestFields(body)
	if !ok || fields.User == nil || *fields.User == "" {
		return DefaultUserID
	}
	return *fields.User
}

// IsStreaming reports the request body's "stream" field, defaulting to
// false for non-JSON bodies or a missing field.
func IsStreaming(body []byte) bool {
	fields, ok := parseRequestFields(body)
	if !ok {
		return false
	}
	return fields.Stream
}

// ContentTypeOrDefault returns ct, or "application/json" if ct is empty.
func ContentTypeOrDefault(ct string) string {
	if ct == "" {
		return "application/json"
	}
	return ct
}
