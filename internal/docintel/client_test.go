package docintel

import (
	"testing"

	"github.com/yungbote/breakdown-backend/internal/pkg/httpx"
)

func TestHTTPErrorRetryClassification(t *testing.T) {
	tests := []struct {
		name string
		code int
		want bool
	}{
		{name: "service unavailable", code: 503, want: true},
		{name: "rate limited", code: 429, want: true},
		{name: "internal error", code: 500, want: true},
		{name: "bad request", code: 400, want: false},
		{name: "not found", code: 404, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &HTTPError{StatusCode: tt.code, Body: "body"}
			if got := httpx.IsRetryableError(err); got != tt.want {
				t.Fatalf("IsRetryableError(%d) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
