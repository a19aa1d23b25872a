package runner

import (
	"sort"
	"strings"
)

// taskIDKeys are the event keys that may carry a task identifier, in
// preference order.
var taskIDKeys = []string{"task_id", "taskId", "taskID"}

// extractTaskID walks an event tree looking for a task identifier. At any
// object it first considers the known keys, then recurses into the values;
// arrays are recursed elementwise. The first non-empty string wins.
func extractTaskID(event any) string {
	switch v := event.(type) {
	case map[string]any:
		for _, key := range taskIDKeys {
			if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		for _, key := range sortedKeys(v) {
			if id := extractTaskID(v[key]); id != "" {
				return id
			}
		}
	case []any:
		for _, item := range v {
			if id := extractTaskID(item); id != "" {
				return id
			}
		}
	}
	return ""
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic recursion order; Go map iteration is randomized.
	sort.Strings(keys)
	return keys
}
