package document

import (
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/appcfg/internal/item"
)

func TestIsWellFormedJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		json string
		want bool
	}{
		{"{}", true},
		{"[]", true},
		{"  [ ]\n", true},
		{`{"k":"v"}`, true},
		{`{"k":"v"`, false},
		{"{k}", false},
		{"{k:v}", false},
		{`{"k": true}`, true},
		{`{"k": {}}`, true},
		{`{"k": []}`, true},
		{`"string"`, false},
		{"42", false},
		{"", false},
		{"[}", false},
	}

	for _, tt := range tests {
		t.Run(tt.json, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWellFormedJSON([]byte(tt.json)))
		})
	}
}

func TestParse_Valid(t *testing.T) {
	t.Parallel()

	input := `[
  {"Key": "Api:Url", "Value": "https://example.com", "Environment": "Prod", "Application": "Api"},
  {"key": "Db:Password", "keyvault": true, "value": "db-password"},
  {"Key": "Old", "Purge": true},
  {"Key": "Tagged", "Label": "blue", "Value": "", "Unknown": 42}
]`

	items, problems := Parse([]byte(input))
	require.Empty(t, problems)
	require.Len(t, items, 4)

	assert.Equal(t, item.ConfigItem{Key: "Api:Url", Value: "https://example.com", Environment: "Prod", Application: "Api"}, items[0])
	assert.Equal(t, item.ConfigItem{Key: "Db:Password", IsSecretRef: true, Value: "db-password"}, items[1])
	assert.Equal(t, item.ConfigItem{Key: "Old", Purge: true}, items[2])
	assert.Equal(t, item.ConfigItem{Key: "Tagged", Label: "blue"}, items[3])
}

func TestParse_TruncatedObject(t *testing.T) {
	t.Parallel()

	items, problems := Parse([]byte(`{"k":"v"`))
	assert.Empty(t, items)
	require.Len(t, problems, 1)
	assert.Equal(t, KindParse, problems[0].Kind)
	assert.Contains(t, problems[0].Message, "invalid JSON")
}

func TestParse_NotJSON(t *testing.T) {
	t.Parallel()

	items, problems := Parse([]byte("Key=Value\n"))
	assert.Empty(t, items)
	require.NotEmpty(t, problems)
	assert.True(t, HasParseProblems(problems))
}

func TestParse_RootNotArray(t *testing.T) {
	t.Parallel()

	items, problems := Parse([]byte(`{"Key": "A"}`))
	assert.Empty(t, items)
	require.Len(t, problems, 1)
	assert.Equal(t, -1, problems[0].Index)
	assert.Contains(t, problems[0].Message, "array")
}

func TestParse_RecoversAroundTypeErrors(t *testing.T) {
	t.Parallel()

	input := `[
  {"Key": "A", "Value": "1"},
  "not an object",
  {"Key": "B", "KeyVault": "yes", "Value": "secret-b"},
  {"Key": "C", "Value": 5}
]`

	items, problems := Parse([]byte(input))

	require.Len(t, items, 3)
	assert.Equal(t, "A", items[0].Key)
	assert.Equal(t, item.ConfigItem{Key: "B", Value: "secret-b"}, items[1])
	assert.Equal(t, item.ConfigItem{Key: "C"}, items[2])

	byIndex := map[int]Problem{}
	for _, p := range problems {
		assert.Equal(t, KindParse, p.Kind, p.Error())
		byIndex[p.Index] = p
	}
	require.Len(t, byIndex, 3)
	assert.Empty(t, byIndex[1].Field)
	assert.Equal(t, "KeyVault", byIndex[2].Field)
	assert.Equal(t, "Value", byIndex[3].Field)
}

func TestParse_FoldsValidationProblems(t *testing.T) {
	t.Parallel()

	input := `[
  {"Key": "ok", "Value": "1"},
  {"Key": "..", "Value": "1"},
  {"Key": "S", "KeyVault": true, "Value": "bad_name"},
  {"Key": "L", "Label": "x", "Environment": "Prod"}
]`

	items, problems := Parse([]byte(input))
	require.Len(t, items, 4)
	require.Len(t, problems, 3)
	for _, p := range problems {
		assert.Equal(t, KindValidation, p.Kind)
	}
	assert.False(t, HasParseProblems(problems))
	assert.Equal(t, 1, problems[0].Index)
	assert.Equal(t, "Key", problems[0].Field)
	assert.Equal(t, 2, problems[1].Index)
	assert.Equal(t, "Value", problems[1].Field)
	assert.Equal(t, 3, problems[2].Index)
	assert.Equal(t, "Label", problems[2].Field)
}

func TestParse_ValidationIndexSkipsNonObjects(t *testing.T) {
	t.Parallel()

	items, problems := Parse([]byte(`[1, {"Key": ""}]`))
	require.Len(t, items, 1)

	var validationProblems []Problem
	for _, p := range problems {
		if p.Kind == KindValidation {
			validationProblems = append(validationProblems, p)
		}
	}
	require.Len(t, validationProblems, 1)
	assert.Equal(t, 1, validationProblems[0].Index)
}

func TestParse_NullsAreDefaults(t *testing.T) {
	t.Parallel()

	items, problems := Parse([]byte(`[{"Key": "A", "Label": null, "Value": null, "KeyVault": null}]`))
	require.Empty(t, problems)
	assert.Equal(t, []item.ConfigItem{{Key: "A"}}, items)
}

func TestSerialize_SortedAndCompact(t *testing.T) {
	t.Parallel()

	out, err := Serialize([]item.ConfigItem{
		{Key: "b", Value: "2"},
		{Key: "a", Value: "secret-a", IsSecretRef: true, Environment: "Prod"},
		{Key: "b", Value: "1", Label: "second"},
	})
	require.NoError(t, err)

	want := `[
  {
    "Key": "a",
    "Environment": "Prod",
    "Value": "secret-a",
    "KeyVault": true
  },
  {
    "Key": "b",
    "Value": "2"
  },
  {
    "Key": "b",
    "Label": "second",
    "Value": "1"
  }
]
`
	assert.Equal(t, want, string(out))
}

func TestSerialize_Empty(t *testing.T) {
	t.Parallel()

	out, err := Serialize(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(out))
}

func TestDocument_RoundTrip_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	genItem := gen.IntRange(0, 3).FlatMap(func(v interface{}) gopter.Gen {
		shape := v.(int)
		return gopter.CombineGens(
			gen.RegexMatch(`[A-Za-z][A-Za-z0-9:._]{0,10}`),
			gen.RegexMatch(`[a-z0-9-]{1,10}`),
			gen.RegexMatch(`[A-Za-z0-9_-]{1,8}`),
		).Map(func(vals []interface{}) item.ConfigItem {
			key, val, group := vals[0].(string), vals[1].(string), vals[2].(string)
			switch shape {
			case 0:
				return item.ConfigItem{Key: key, Value: val}
			case 1:
				return item.ConfigItem{Key: key, Value: val, IsSecretRef: true, Environment: group}
			case 2:
				return item.ConfigItem{Key: key, Value: val, Label: group}
			default:
				return item.ConfigItem{Key: key, Purge: true}
			}
		})
	}, reflect.TypeOf(item.ConfigItem{}))

	properties.Property("parse(serialize(items)) reproduces items", prop.ForAll(
		func(items []item.ConfigItem) bool {
			for i := range items {
				items[i].Key = fmt.Sprintf("%s-%d", items[i].Key, i)
			}
			out, err := Serialize(items)
			if err != nil {
				return false
			}
			parsed, problems := Parse(out)
			if len(problems) != 0 {
				return false
			}

			want := make([]item.ConfigItem, len(items))
			copy(want, items)
			sort.SliceStable(want, func(i, j int) bool { return want[i].Key < want[j].Key })
			return assert.ObjectsAreEqual(want, parsed)
		},
		gen.SliceOfN(8, genItem),
	))

	properties.TestingRun(t)
}
