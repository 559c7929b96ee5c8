package httpmetrics_test

import (
	"testing"

	"github.com/AlibekovAA/examination-system/internal/common/httpmetrics"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", "/"},
		{"/exams", "/exams"},
		{"/exams/3F2504E0-4F89-41D3-9A0C-0305E82C3301", "/exams/{id}"},
		{"/attempts/3f2504e0-4f89-41d3-9a0c-0305e82c3301/submit", "/attempts/{id}/submit"},
		{"/Account/Login", "/account/login"},
		{"/pages/42", "/pages/{param}"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := httpmetrics.NormalizePath(tt.path); got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
