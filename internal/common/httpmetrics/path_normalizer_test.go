package httpmetrics

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/api/chat/messages", "/api/chat/messages"},
		{"/api/chat/messages/", "/api/chat/messages"},
		{"/api/profile", "/api/profile"},
		{"/ws/chat", "/ws/chat"},
		{"/api/chat/messages/42", "unmatched"},
		{"/wp-login.php", "unmatched"},
		{"", "unmatched"},
		{"/", "unmatched"},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
