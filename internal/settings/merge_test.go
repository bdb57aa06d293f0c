package settings

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestDeepMerge(t *testing.T) {
	tests := []struct {
		name string
		dst  string
		src  string
		want string
	}{
		{"scalar replaces", `1`, `2`, `2`},
		{"absent destination", `null`, `{"a":1}`, `{"a":1}`},
		{"objects merge", `{"a":1,"b":{"c":1}}`, `{"b":{"d":2},"e":3}`, `{"a":1,"b":{"c":1,"d":2},"e":3}`},
		{"object replaces scalar", `{"a":1}`, `{"a":{"x":1}}`, `{"a":{"x":1}}`},
		{"scalar replaces object", `{"a":{"x":1}}`, `{"a":5}`, `{"a":5}`},
		{"array appends new scalars", `[1,2]`, `[3]`, `[1,2,3]`},
		{"array skips present scalars", `[1,2]`, `[2]`, `[1,2]`},
		{"array fills missing indexes", `[1]`, `[1,5,6]`, `[1,5,6]`},
		{"array merges objects by index", `[{"a":1},{"b":1}]`, `[{"c":2}]`, `[{"a":1,"c":2},{"b":1}]`},
		{"array object lands on pushed index", `[1]`, `[2,{"a":1}]`, `[1,{"a":1}]`},
		{"array replaces object", `{"a":[1]}`, `{"a":{"b":1}}`, `{"a":{"b":1}}`},
		{"nested custom things", `{"123":{"columns":["1"]}}`, `{"456":{"columns":["2"]},"123":{"columns":["3"]}}`,
			`{"123":{"columns":["1","3"]},"456":{"columns":["2"]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeepMerge(decode(t, tt.dst), decode(t, tt.src))
			assert.Equal(t, decode(t, tt.want), got)
		})
	}
}

func TestDeepMerge_DoesNotAliasInputs(t *testing.T) {
	dst := map[string]any{"a": map[string]any{"x": 1.0}}
	src := map[string]any{"b": []any{1.0}}

	out := DeepMerge(dst, src).(map[string]any)
	out["a"].(map[string]any)["x"] = 99.0
	out["b"].([]any)[0] = 99.0

	assert.Equal(t, 1.0, dst["a"].(map[string]any)["x"])
	assert.Equal(t, 1.0, src["b"].([]any)[0])
}
