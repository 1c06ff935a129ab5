package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText_Generate(t *testing.T) {
	body := []byte(`{"text":"hello"}`)
	assert.Equal(t, "hello", ExtractText(body, RouteGenerate))
}

func TestExtractText_Completions(t *testing.T) {
	body := []byte(`{"prompt":"once upon a time"}`)
	assert.Equal(t, "once upon a time", ExtractText(body, RouteCompletions))
}

func TestExtractText_ChatCompletions_PreservesMessageOrderVerbatim(t *testing.T) {
	body := []byte(`{"messages":[{"role":"system","content":"be terse"},{"role":"user","content":"hi"}]}`)
	got := ExtractText(body, RouteChatCompletions)
	assert.Equal(t, `[{"role":"system","content":"be terse"},{"role":"user","content":"hi"}]`, got)
}

func TestExtractText_UnknownRouteYieldsEmpty(t *testing.T) {
	body := []byte(`{"text":"hello","prompt":"world"}`)
	assert.Equal(t, "", ExtractText(body, "unknown/route"))
}

func TestExtractText_MissingFieldYieldsEmpty(t *testing.T) {
	body := []byte(`{"user":"u1"}`)
	assert.Equal(t, "", ExtractText(body, RouteGenerate))
	assert.Equal(t, "", ExtractText(body, RouteCompletions))
	assert.Equal(t, "", ExtractText(body, RouteChatCompletions))
}

func TestExtractText_NonJSONBodyYieldsEmpty(t *testing.T) {
	assert.Equal(t, "", ExtractText([]byte("not json at all"), RouteGenerate))
}

func TestExtractText_EmptyBodyYieldsEmpty(t *testing.T) {
	assert.Equal(t, "", ExtractText(nil, RouteGenerate))
}

func TestExtractUserID_PresentField(t *testing.T) {
	assert.Equal(t, "alice", ExtractUserID([]byte(`{"user":"alice"}`)))
}

func TestExtractUserID_MissingFieldDefaultsToSentinel(t *testing.T) {
	assert.Equal(t, DefaultUserID, ExtractUserID([]byte(`{"text":"hi"}`)))
}

func TestExtractUserID_EmptyStringFieldDefaultsToSentinel(t *testing.T) {
	assert.Equal(t, DefaultUserID, ExtractUserID([]byte(`{"user":""}`)))
}

func TestExtractUserID_NonJSONBodyDefaultsToSentinel(t *testing.T) {
	assert.Equal(t, DefaultUserID, ExtractUserID([]byte("garbage")))
}

func TestIsStreaming_TrueAndFalse(t *testing.T) {
	assert.True(t, IsStreaming([]byte(`{"stream":true}`)))
	assert.False(t, IsStreaming([]byte(`{"stream":false}`)))
}

func TestIsStreaming_MissingFieldDefaultsFalse(t *testing.T) {
	assert.False(t, IsStreaming([]byte(`{"text":"hi"}`)))
}

func TestIsStreaming_NonJSONBodyDefaultsFalse(t *testing.T) {
	assert.False(t, IsStreaming([]byte("not json")))
}

func TestContentTypeOrDefault_EmptyYieldsJSON(t *testing.T) {
	assert.Equal(t, "application/json", ContentTypeOrDefault(""))
}

func TestContentTypeOrDefault_PreservesExplicitValue(t *testing.T) {
	assert.Equal(t, "text/plain", ContentTypeOrDefault("text/plain"))
}

func TestParseRequestFields_InvalidJSONReportsFalse(t *testing.T) {
	_, ok := parseRequestFields([]byte("{"))
	assert.False(t, ok)
}
