package speech

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	KeyUnknownCalendar,
	KeyWhoIs,
	KeyIAm,
	KeyAgentSays,
	KeyRandomNumber,
	KeyCurrentTime,
}

// TestLocaleIntegrity ensures every key used in code exists in every locale
// file, and that locale files carry no unused keys.
func TestLocaleIntegrity(t *testing.T) {
	entries, err := os.ReadDir("locales")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, entry := range entries {
		content, err := os.ReadFile("locales/" + entry.Name())
		require.NoError(t, err)

		var messages map[string]string
		require.NoErrorf(t, json.Unmarshal(content, &messages), "%s must be valid JSON", entry.Name())

		for _, key := range allKeys {
			assert.Containsf(t, messages, key, "key %q missing in %s", key, entry.Name())
		}
		assert.Lenf(t, messages, len(allKeys), "%s has unused keys", entry.Name())
	}
}

func TestSay(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, []string{"de", "en"}, c.Languages())

	tests := []struct {
		name string
		lang string
		key  string
		data map[string]any
		want string
	}{
		{"unknown calendar", "en", KeyUnknownCalendar, map[string]any{"Name": "work"}, "Unknown calendar 'work'."},
		{"who is", "", KeyWhoIs, map[string]any{"Name": "Jarvis"}, "Who is Jarvis?"},
		{"i am", "en", KeyIAm, map[string]any{"Name": "Jarvis"}, "I am Jarvis!"},
		{"says", "en", KeyAgentSays, map[string]any{"Name": "Jarvis", "Text": "It's sunny"}, "Jarvis says 'It's sunny'"},
		{"number", "en", KeyRandomNumber, map[string]any{"Number": 42}, "42"},
		{"time", "en", KeyCurrentTime, map[string]any{"Time": "09:05"}, "The time is 09:05"},
		{"german", "de", KeyWhoIs, map[string]any{"Name": "Jarvis"}, "Wer ist Jarvis?"},
		{"unknown language falls back", "fr", KeyIAm, map[string]any{"Name": "Jarvis"}, "I am Jarvis!"},
		{"unknown key", "en", "Nope", nil, "Nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Say(tt.lang, tt.key, tt.data))
		})
	}
}
