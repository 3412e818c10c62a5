package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wezaxy/dmagent/internal/compose"
)

func testProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := NewProvider(Config{APIKey: "sk-test", APIBase: srv.URL, Model: "gpt-4o"})
	p.now = func() time.Time { return time.Date(2024, 6, 8, 23, 30, 0, 0, time.UTC) } // saturday night
	p.mood = func() Mood { return moods[0] }
	return p
}

func chatResponse(content string) string {
	raw, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(raw)
}

func TestGenerateReply_TextFlow(t *testing.T) {
	var captured map[string]any
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(chatResponse("sup lol")))
	})

	reply, err := p.GenerateReply(context.Background(), compose.ReplyRequest{
		Prompt:    "you up?",
		Language:  "english",
		Knowledge: "runs a sneaker shop",
	})
	require.NoError(t, err)
	assert.Equal(t, "sup lol", reply)

	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 2)
	system := msgs[0].(map[string]any)["content"].(string)
	assert.Contains(t, system, "Respond in english")
	assert.Contains(t, system, "Saturday")
	assert.Contains(t, system, "the weekend")
	assert.Contains(t, system, "runs a sneaker shop")
	assert.Equal(t, "you up?", msgs[1].(map[string]any)["content"])
}

func TestGenerateReply_ImageFlow(t *testing.T) {
	var captured map[string]any
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(chatResponse("damn that looks good")))
	})

	reply, err := p.GenerateReply(context.Background(), compose.ReplyRequest{
		Prompt:   "check this out",
		Language: "english",
		ImageB64: "aGVsbG8=",
	})
	require.NoError(t, err)
	assert.Equal(t, "damn that looks good", reply)

	msgs := captured["messages"].([]any)
	system := msgs[0].(map[string]any)["content"].(string)
	assert.Contains(t, system, "looking at an image")

	parts := msgs[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])
	img := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(img, "data:image/jpeg;base64,"))
}

func TestGenerateReply_EmptyChoices(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	})
	reply, err := p.GenerateReply(context.Background(), compose.ReplyRequest{Prompt: "hey"})
	require.NoError(t, err)
	assert.Empty(t, reply) // composer handles the retry
}

func TestGenerateReply_UpstreamError(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "slow down"}`))
	})
	_, err := p.GenerateReply(context.Background(), compose.ReplyRequest{Prompt: "hey"})
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		`"wrapped in quotes"`:           "wrapped in quotes",
		"has **bold** and *stars*":      "has bold and stars",
		"1. numbered start":             "numbered start",
		"line one\n\n\nline two":        "line one line two",
		"dash --- artifacts -- here":    "dash  artifacts  here",
		"  already clean  ":             "already clean",
		"• bullet glyphs ● everywhere": "bullet glyphs  everywhere",
	}
	for in, want := range cases {
		assert.Equal(t, want, Sanitize(in), "input %q", in)
	}
}

func TestBuildTimeContext(t *testing.T) {
	night := buildTimeContext(time.Date(2024, 6, 5, 2, 0, 0, 0, time.UTC))
	assert.Equal(t, "night", night.timeOfDay)
	assert.Equal(t, "sleepy", night.energy)
	assert.False(t, night.isWeekend)

	morning := buildTimeContext(time.Date(2024, 6, 8, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, "morning", morning.timeOfDay)
	assert.Equal(t, "alert", morning.energy)
	assert.True(t, morning.isWeekend)
}
