package expressions

import (
	"context"
	"math"
	"testing"

	"github.com/stack21/flowengine/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_IsIndependent(t *testing.T) {
	orig := map[string]any{
		"user":  map[string]any{"email": "a@b.com"},
		"items": []any{map[string]any{"id": 1}},
		"tags":  []string{"x"},
	}
	snap := Snapshot(orig).(map[string]any)

	orig["user"].(map[string]any)["email"] = "changed"
	orig["items"].([]any)[0].(map[string]any)["id"] = 2
	orig["tags"].([]string)[0] = "y"
	orig["new"] = true

	assert.Equal(t, map[string]any{
		"user":  map[string]any{"email": "a@b.com"},
		"items": []any{map[string]any{"id": 1}},
		"tags":  []string{"x"},
	}, snap)
}

func TestSnapshot_StructsGoThroughJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	snap := Snapshot(&payload{Name: "n"})
	assert.Equal(t, map[string]any{"name": "n"}, snap)

	assert.Nil(t, Snapshot(nil))
	assert.Equal(t, 3, Snapshot(3))
	assert.Nil(t, SnapshotMap(nil))
}

func TestResolvePath(t *testing.T) {
	data := map[string]any{
		"user":  map[string]any{"email": "a@b.com"},
		"items": []any{"first", map[string]any{"sku": "X1"}},
		"0":     "zero-key",
	}

	tests := []struct {
		path string
		want any
		ok   bool
	}{
		{"$.user.email", "a@b.com", true},
		{"$.items.1.sku", "X1", true},
		{"$.0", "zero-key", true},
		{"$.user.phone", nil, false},
		{"$.items.9", nil, false},
		{"$.user.email.domain", nil, false},
		{"user.email", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := ResolvePath(data, tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	whole, ok := ResolvePath(data, "$.")
	assert.True(t, ok)
	assert.Equal(t, data, whole)
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(0))
	assert.False(t, Truthy(0.0))
	assert.False(t, Truthy(math.NaN()))
	assert.False(t, Truthy(uint8(0)))

	assert.True(t, Truthy(true))
	assert.True(t, Truthy("no"))
	assert.True(t, Truthy(-1))
	assert.True(t, Truthy(map[string]any{}))
	assert.True(t, Truthy([]any{}))
}

func TestConditionEvaluator(t *testing.T) {
	set, err := NewSet()
	require.NoError(t, err)
	c := NewConditionEvaluator(set)
	ctx := context.Background()
	input := map[string]any{"amount": 250.0, "email": "a@b.com"}

	ok, err := c.Evaluate(ctx, "", "$.amount > 100", input, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Evaluate(ctx, "cel", `$.email.endsWith("@b.com")`, input, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Evaluate(ctx, "expr", "$.missing", input, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, cond := range []string{"$.missing > 100", "$.missing <= 100", "100 < $.missing", "$.missing >= $.other"} {
		ok, err = c.Evaluate(ctx, "", cond, map[string]any{}, nil)
		require.NoError(t, err, cond)
		assert.False(t, ok, cond)
	}

	ok, err = c.Evaluate(ctx, "", "$.amount >= 250 && $.amount < 251", input, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.Evaluate(ctx, "", "$.amount >", input, nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression))

	_, err = c.Evaluate(ctx, "jq", ".amount", input, nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	_, err = c.Evaluate(ctx, "lua", "true", input, nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

func TestRewritePaths(t *testing.T) {
	assert.Equal(t, "input.a > 1 && input.b.c", RewritePaths("$.a > 1 && $.b.c"))
}

func TestInterpolate(t *testing.T) {
	data := map[string]any{"id": 42.0, "user": map[string]any{"name": "Ana"}}

	s, err := Interpolate("https://api.test/users/${{ $.id }}?n=${{$.user.name}}", data)
	require.NoError(t, err)
	assert.Equal(t, "https://api.test/users/42?n=Ana", s)

	s, err = Interpolate("${{ $.user }}|${{ $.nope }}", data)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ana"}|`, s)

	_, err = Interpolate("${{ $.id", data)
	assert.Error(t, err)

	_, err = Interpolate("${{ id }}", data)
	assert.Error(t, err)

	v, err := InterpolateValue(map[string]any{
		"to":    "${{ $.user.name }}",
		"count": 3,
		"list":  []any{"${{ $.id }}"},
	}, data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"to": "Ana", "count": 3, "list": []any{"42"}}, v)
}
