package useragent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pagemetry/internal/useragent"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		ua      string
		browser string
		os      string
		device  string
		bot     bool
	}{
		{
			name:    "chrome on windows desktop",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			browser: "Chrome",
			os:      "Windows",
			device:  "desktop",
		},
		{
			name:    "safari on iphone",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
			browser: "Safari",
			os:      "iOS",
			device:  "smartphone",
		},
		{
			name:    "firefox on linux",
			ua:      "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			browser: "Firefox",
			os:      "Linux",
			device:  "desktop",
		},
		{
			name:    "edge before chrome",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			browser: "Microsoft Edge",
			os:      "Windows",
			device:  "desktop",
		},
		{
			name:    "chrome on android tablet",
			ua:      "Mozilla/5.0 (Linux; Android 13; SM-X710) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			browser: "Chrome",
			os:      "Android",
			device:  "tablet",
		},
		{
			name:    "chrome on android phone",
			ua:      "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			browser: "Chrome",
			os:      "Android",
			device:  "smartphone",
		},
		{
			name:    "googlebot",
			ua:      "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			browser: "Googlebot",
			os:      "Unknown",
			device:  "bot",
			bot:     true,
		},
		{
			name:    "curl",
			ua:      "curl/8.4.0",
			browser: "HTTP Client",
			os:      "Unknown",
			device:  "bot",
			bot:     true,
		},
		{
			name:    "empty string",
			ua:      "",
			browser: "Unknown",
			os:      "Unknown",
			device:  "desktop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := useragent.Parse(tt.ua)
			assert.Equal(t, tt.browser, result.Browser)
			assert.Equal(t, tt.os, result.OS)
			assert.Equal(t, tt.device, result.Device)
			assert.Equal(t, tt.bot, result.Bot)
		})
	}
}

func TestParseVersions(t *testing.T) {
	result := useragent.Parse("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Equal(t, "Chrome", result.Browser)
	assert.Equal(t, "120.0.0.0", result.BrowserVn)
	assert.Equal(t, "macOS", result.OS)
	assert.Equal(t, "10.15.7", result.OSVersion)
}
