package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestTFallsBackToEnglishThenKey(t *testing.T) {
	if got := T("th-TH", "error.export_failed"); got != "Failed to generate Excel file" {
		t.Fatalf("want english fallback got %s", got)
	}
	if got := T("zh-CN", "error.unknown_key"); got != "error.unknown_key" {
		t.Fatalf("want key fallback got %s", got)
	}
}

func TestSprintfFormatsArgs(t *testing.T) {
	got := Sprintf("en-US", "error.import_missing_columns", "Month, Route")
	if got != "Missing required columns: Month, Route" {
		t.Fatalf("unexpected message: %s", got)
	}
	got = Sprintf("zh-CN", "message.import_preview", 31, 1)
	if got == "" || got == "message.import_preview" {
		t.Fatalf("zh-CN preview message missing")
	}
}

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query  string
		header string
		want   string
	}{
		{"", "", "en-US"},
		{"", "zh-CN,zh;q=0.9,en;q=0.8", "zh-CN"},
		{"", "th", "th-TH"},
		{"lang=zh-CN", "en-US", "zh-CN"},
		{"", "fr-FR", "en-US"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		req := httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		if tc.header != "" {
			req.Header.Set("Accept-Language", tc.header)
		}
		c.Request = req
		if got := ResolveLocale(c); got != tc.want {
			t.Fatalf("query=%q header=%q want %s got %s", tc.query, tc.header, tc.want, got)
		}
	}
}
