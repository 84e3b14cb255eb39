package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantKey string
		wantErr string
	}{
		{
			name:    "bare object",
			text:    `{"summary": "ok"}`,
			wantKey: "summary",
		},
		{
			name:    "object wrapped in prose",
			text:    "Sure, here is the extraction:\n{\"summary\": \"ok\"}\nLet me know if you need anything else.",
			wantKey: "summary",
		},
		{
			name:    "object in code fence",
			text:    "```json\n{\"summary\": \"ok\"}\n```",
			wantKey: "summary",
		},
		{
			name:    "nested braces stay balanced",
			text:    `{"line_items": [{"name": "a {weird} item"}], "summary": "ok"}`,
			wantKey: "line_items",
		},
		{
			name:    "brace inside string does not close the object",
			text:    `{"summary": "uses } inside"}`,
			wantKey: "summary",
		},
		{
			name:    "no object at all",
			text:    "I could not read this bill, sorry.",
			wantErr: "no JSON object found",
		},
		{
			name:    "unterminated object",
			text:    `{"summary": "ok"`,
			wantErr: "no JSON object found",
		},
		{
			name:    "balanced but invalid JSON",
			text:    `{summary: ok}`,
			wantErr: "undecodable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, violation := ParseObject(tt.text)
			if tt.wantErr != "" {
				require.NotNil(t, violation)
				assert.Contains(t, violation.Actual, tt.wantErr)
				return
			}
			require.Nil(t, violation)
			assert.Contains(t, obj, tt.wantKey)
		})
	}
}
