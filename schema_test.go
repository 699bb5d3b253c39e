package api_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chotinc/api"
)

func TestSchema_Validate_scalars(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		schema *api.Schema
		input  any
		want   any
		errs   []string
	}{
		"integer from string": {
			schema: api.Integer(),
			input:  "1234",
			want:   int64(1234),
		},
		"integer from json.Number": {
			schema: api.Integer(),
			input:  json.Number("42"),
			want:   int64(42),
		},
		"integer from integral float": {
			schema: api.Integer(),
			input:  float64(7),
			want:   int64(7),
		},
		"integer from uint8": {
			schema: api.Integer(),
			input:  uint8(3),
			want:   int64(3),
		},
		"integer from uint64 in range": {
			schema: api.Integer(),
			input:  uint64(math.MaxInt64),
			want:   int64(math.MaxInt64),
		},
		"integer rejects uint64 overflow": {
			schema: api.Integer(),
			input:  uint64(math.MaxUint64),
			errs:   []string{"type"},
		},
		"integer rejects uint overflow": {
			schema: api.Integer(),
			input:  uint(math.MaxUint),
			errs:   []string{"type"},
		},
		"integer rejects fraction": {
			schema: api.Integer(),
			input:  "1.5",
			errs:   []string{"type"},
		},
		"integer rejects bool": {
			schema: api.Integer(),
			input:  true,
			errs:   []string{"type"},
		},
		"positive rejects zero": {
			schema: api.Integer(api.Positive()),
			input:  "0",
			errs:   []string{"exclusiveMinimum"},
		},
		"minimum is inclusive": {
			schema: api.Integer(api.Minimum(0)),
			input:  0,
			want:   int64(0),
		},
		"maximum": {
			schema: api.Number(api.Maximum(1.5)),
			input:  "2.25",
			errs:   []string{"maximum"},
		},
		"number from string": {
			schema: api.Number(),
			input:  "2.5",
			want:   2.5,
		},
		"boolean from string": {
			schema: api.Boolean(),
			input:  "true",
			want:   true,
		},
		"boolean rejects number": {
			schema: api.Boolean(),
			input:  1,
			errs:   []string{"type"},
		},
		"string rejects number": {
			schema: api.String(),
			input:  12,
			errs:   []string{"type"},
		},
		"string length and pattern together": {
			schema: api.String(api.MinLength(3), api.Pattern(`^[a-z]+$`)),
			input:  "A",
			errs:   []string{"minLength", "pattern"},
		},
		"enum": {
			schema: api.String(api.Enum("asc", "desc")),
			input:  "up",
			errs:   []string{"enum"},
		},
		"missing value": {
			schema: api.String(),
			input:  nil,
			errs:   []string{"required"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := tc.schema.Validate(tc.input)
			if len(tc.errs) > 0 {
				var verrs api.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				constraints := make([]string, len(verrs))
				for i, v := range verrs {
					constraints[i] = v.Constraint
				}
				assert.Equal(t, tc.errs, constraints)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSchema_Validate_object(t *testing.T) {
	t.Parallel()

	s := api.Object(
		api.Field("id", api.Integer(api.Positive())),
		api.Field("name", api.String(api.MinLength(1))),
		api.Optional("limit", api.Integer(api.Default(20))),
		api.Optional("tags", api.Array(api.String(), api.MaxItems(2))),
	)

	t.Run("coerces and applies defaults", func(t *testing.T) {
		t.Parallel()

		got, err := s.Validate(map[string]any{"id": "5", "name": "acme", "extra": true})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"id": int64(5), "name": "acme", "limit": int64(20)}, got)
	})

	t.Run("collects every violation", func(t *testing.T) {
		t.Parallel()

		_, err := s.Validate(map[string]any{
			"id":   "-1",
			"tags": []any{"a", 3, "c"},
		})

		var verrs api.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, []string{"id", "name", "tags", "tags[1]"}, verrs.Fields())
	})

	t.Run("rejects non-objects", func(t *testing.T) {
		t.Parallel()

		_, err := s.Validate([]any{1})
		var verrs api.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "type", verrs[0].Constraint)
	})

	t.Run("accepts string keyed maps from YAML", func(t *testing.T) {
		t.Parallel()

		got, err := s.Validate(map[any]any{"id": 1, "name": "x"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.(map[string]any)["id"])
	})
}

func TestSchema_Validate_array(t *testing.T) {
	t.Parallel()

	s := api.Array(api.Integer(), api.MinItems(1))

	got, err := s.Validate([]string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, got)

	_, err = s.Validate([]any{})
	var verrs api.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "minItems", verrs[0].Constraint)
}

func TestSchema_With(t *testing.T) {
	t.Parallel()

	base := api.Integer(api.Minimum(1))
	named := base.With(api.Named("Count"), api.Describe("How many."), api.Example(3))

	assert.Empty(t, base.Name())
	assert.Equal(t, "Count", named.Name())
	assert.Equal(t, "How many.", named.Description())

	_, ok := base.ExampleValue()
	assert.False(t, ok)
	ex, ok := named.ExampleValue()
	assert.True(t, ok)
	assert.Equal(t, 3, ex)

	_, err := named.Validate(0)
	require.Error(t, err, "With must keep existing constraints")
}

func TestSchema_accessors(t *testing.T) {
	t.Parallel()

	s := api.Object(
		api.Field("a", api.String()),
		api.Optional("b", api.Array(api.Boolean(), api.Default([]any{true}))),
	)

	assert.Equal(t, api.KindObject, s.Kind())
	fields := s.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "a", fields[0].Name())
	assert.True(t, fields[0].Required())
	assert.False(t, fields[1].Required())
	assert.Equal(t, api.KindBoolean, fields[1].Schema().Items().Kind())

	def, ok := fields[1].Schema().DefaultValue()
	assert.True(t, ok)
	assert.Equal(t, []any{true}, def)
}
