package llm

import (
	"errors"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{
			name: "bare object",
			text: `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "code fence",
			text: "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "prose around object",
			text: `Here is the result: {"nodes": []} Hope that helps.`,
			want: `{"nodes": []}`,
		},
		{
			name: "nested braces",
			text: `{"outer": {"inner": true}}`,
			want: `{"outer": {"inner": true}}`,
		},
		{
			name:    "no object",
			text:    "sorry, I cannot do that",
			wantErr: true,
		},
		{
			name:    "invalid json between braces",
			text:    `{not json}`,
			wantErr: true,
		},
		{
			name:    "close before open",
			text:    `} {`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("got %s, want error", got)
				}
				if !errors.Is(err, ErrMalformedOutput) {
					t.Fatalf("err = %v, want ErrMalformedOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}
