package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFilterExpr(t *testing.T) {
	tests := []struct {
		name    string
		filters map[string][]string
		want    string
	}{
		{
			name:    "empty",
			filters: nil,
			want:    "",
		},
		{
			name:    "single key single value",
			filters: map[string][]string{"file_id": {"F1"}},
			want:    `file_id in ["F1"]`,
		},
		{
			name:    "single key multiple values",
			filters: map[string][]string{"file_id": {"F1", "F2"}},
			want:    `file_id in ["F1", "F2"]`,
		},
		{
			name: "multiple keys are or combined in sorted key order",
			filters: map[string][]string{
				"file_id":   {"F1"},
				"course_id": {"C1"},
			},
			want: `course_id in ["C1"] or file_id in ["F1"]`,
		},
		{
			name:    "values are quoted",
			filters: map[string][]string{"file_id": {`F"1`}},
			want:    `file_id in ["F\"1"]`,
		},
		{
			name:    "key without values is skipped",
			filters: map[string][]string{"file_id": {}, "course_id": {"C1"}},
			want:    `course_id in ["C1"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFilterExpr(tt.filters))
		})
	}
}

func TestBuildEqualityExpr(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]string
		want     string
	}{
		{
			name:     "empty",
			metadata: nil,
			want:     "",
		},
		{
			name:     "single key",
			metadata: map[string]string{"file_id": "F1"},
			want:     `file_id == "F1"`,
		},
		{
			name: "multiple keys are and combined in sorted key order",
			metadata: map[string]string{
				"file_id":   "F1",
				"course_id": "C1",
			},
			want: `course_id == "C1" and file_id == "F1"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildEqualityExpr(tt.metadata))
		})
	}
}
