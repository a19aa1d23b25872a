package runner

import "testing"

func TestExtractTaskID(t *testing.T) {
	tests := []struct {
		name  string
		event any
		want  string
	}{
		{
			"top level task_id",
			map[string]any{"task_id": "t-1"},
			"t-1",
		},
		{
			"camel case variant",
			map[string]any{"taskId": "t-2"},
			"t-2",
		},
		{
			"upper variant",
			map[string]any{"taskID": "t-3"},
			"t-3",
		},
		{
			"known keys beat recursion",
			map[string]any{"task_id": "direct", "nested": map[string]any{"task_id": "deep"}},
			"direct",
		},
		{
			"nested object",
			map[string]any{"msg": map[string]any{"meta": map[string]any{"taskId": "deep"}}},
			"deep",
		},
		{
			"array elements",
			map[string]any{"items": []any{map[string]any{"x": 1}, map[string]any{"task_id": "in-array"}}},
			"in-array",
		},
		{
			"empty string ignored",
			map[string]any{"task_id": "  ", "inner": map[string]any{"task_id": "fallback"}},
			"fallback",
		},
		{
			"non-string ignored",
			map[string]any{"task_id": 42.0},
			"",
		},
		{
			"scalar event",
			"just a string",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTaskID(tt.event); got != tt.want {
				t.Errorf("extractTaskID = %q, want %q", got, tt.want)
			}
		})
	}
}
