package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		fallback string
		country  string
		want     string
	}{
		{
			name: "x-locale overrides",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "ID")
			},
			country: "US",
			want:    "id",
		},
		{
			name: "x-locale with underscore region",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "pt_BR")
			},
			want: "pt",
		},
		{
			name: "accept-language used",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-US,en;q=0.9")
			},
			want: "en",
		},
		{
			name: "accept-language weights respected",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "de;q=0.4,es-MX;q=0.9")
			},
			want: "es",
		},
		{
			name: "unsupported accept-language falls through to country",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "sw")
			},
			country: "FR",
			want:    "fr",
		},
		{
			name:    "country id maps to indonesian",
			country: "ID",
			want:    "id",
		},
		{
			name:    "country us maps to english",
			country: "US",
			want:    "en",
		},
		{
			name:     "configured fallback",
			fallback: "ja",
			want:     "ja",
		},
		{
			name: "default to en",
			want: "en",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			assert.Equal(t, tc.want, detectLocale(req, tc.fallback, tc.country))
		})
	}
}

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		resolver CountryLookup
		want     string
	}{
		{
			name: "header precedence",
			setup: func(r *http.Request) {
				r.Header.Set("X-Country-Code", "us")
				r.Header.Set("CF-IPCountry", "id")
			},
			want: "US",
		},
		{
			name: "locale region fallback",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "en-AU")
			},
			want: "AU",
		},
		{
			name: "accept-language region",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-GB,en;q=0.9")
			},
			want: "GB",
		},
		{
			name: "resolver fallback",
			resolver: func(ip string) (string, error) {
				if ip != "203.0.113.4" {
					return "", errors.New("unexpected ip " + ip)
				}
				return "my", nil
			},
			want: "MY",
		},
		{
			name: "resolver error returns empty",
			resolver: func(string) (string, error) {
				return "", errors.New("boom")
			},
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.4:80"
			if tc.setup != nil {
				tc.setup(req)
			}
			assert.Equal(t, tc.want, ResolveCountry(req, tc.resolver))
		})
	}
}

func TestI18NStoresLocaleAndCountry(t *testing.T) {
	var locale, country string
	h := I18N("en", func(string) (string, error) { return "de", nil })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale = LocaleFromContext(r.Context())
		country = CountryFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "DE", country)
	assert.Equal(t, "de", locale)
	assert.Equal(t, "de", rec.Header().Get("Content-Language"))
}

func TestLocaleFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "en", LocaleFromContext(ctx))
	assert.Equal(t, "", CountryFromContext(ctx))
	ctx = context.WithValue(ctx, LocaleKey, "id")
	assert.Equal(t, "id", LocaleFromContext(ctx))
}

func TestMatchLocaleRequiresSupportedLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"fr-CA", "fr"},
		{"pt_BR", "pt"},
		{"en-GB,en;q=0.9", "en"},
		{"sw", ""},
		{"zh-TW,ko;q=0.8", ""},
		{"sw,ja;q=0.5", "ja"},
		{"", ""},
	}
	for _, tc := range tests {
		t.Run(tc.header, func(t *testing.T) {
			assert.Equal(t, tc.want, matchLocale(tc.header))
		})
	}
}
