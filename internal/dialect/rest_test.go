package dialect

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remoteq/internal/ir"
	"github.com/roach88/remoteq/internal/queryir"
)

func compileREST(t *testing.T, q queryir.Query) *Result {
	t.Helper()
	res, err := RESTCompiler{}.Compile(q)
	require.NoError(t, err)
	return res
}

func TestREST_Contains(t *testing.T) {
	q := queryir.New().Where(queryir.Contains(queryir.Field("name"), "push"))

	res := compileREST(t, q)

	assert.Equal(t, "search=push", res.Encode())
	assert.Empty(t, res.Warnings)
}

func TestREST_ContainsMergedIntoOneSearch(t *testing.T) {
	q := queryir.New().
		Where(queryir.Eq(queryir.Field("level"), ir.Int(2))).
		Where(queryir.Contains(queryir.Field("name"), "push")).
		Where(queryir.Ge(queryir.Field("sets"), ir.Int(3))).
		Where(queryir.Contains(queryir.Field("description"), "chest day"))

	res := compileREST(t, q)

	assert.Equal(t, []string{"level", "search", "sets_gte"}, res.Keys())
	search, ok := res.Get(RESTSearch)
	require.True(t, ok)
	assert.Equal(t, "push chest day", search)
	assert.Equal(t, "level=2&search=push%20chest%20day&sets_gte=3", res.Encode())
}

func TestREST_OperatorSuffixes(t *testing.T) {
	f := queryir.Field("weight")
	testCases := []struct {
		name string
		pred queryir.Predicate
		want string
	}{
		{"eq", queryir.Eq(f, ir.Int(80)), "weight=80"},
		{"ne", queryir.Ne(f, ir.Int(80)), "weight_ne=80"},
		{"gt", queryir.Gt(f, ir.Int(80)), "weight_gt=80"},
		{"ge", queryir.Ge(f, ir.Int(80)), "weight_gte=80"},
		{"lt", queryir.Lt(f, ir.Float(72.5)), "weight_lt=72.5"},
		{"le", queryir.Le(f, ir.Int(80)), "weight_lte=80"},
		{"startsWith", queryir.StartsWith(queryir.Field("name"), "Bench"), "name_startswith=Bench"},
		{"endsWith", queryir.EndsWith(queryir.Field("name"), "press"), "name_endswith=press"},
		{"bool", queryir.Eq(queryir.Field("isActive"), ir.Bool(true)), "isactive=true"},
		{"null", queryir.Eq(queryir.Field("deletedAt"), ir.Null{}), "deletedat=null"},
		{"nested field", queryir.Eq(queryir.Field("exercise", "Name"), ir.String("Squat")), "exercise.name=Squat"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := compileREST(t, queryir.New().Where(tc.pred))
			assert.Equal(t, tc.want, res.Encode())
		})
	}
}

func TestREST_DateTimeISO8601(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	q := queryir.New().Where(queryir.Gt(queryir.Field("createdDate"), ir.Time(ts)))

	res := compileREST(t, q)

	assert.Equal(t, "createddate_gt=2024-01-02T03:04:05Z", res.Encode())
}

func TestREST_ValuesPercentEncoded(t *testing.T) {
	q := queryir.New().Where(queryir.Eq(queryir.Field("name"), ir.String("a&b=c+d #1")))

	res := compileREST(t, q)

	assert.Equal(t, "name=a%26b%3Dc%2Bd%20%231", res.Encode())
	v, _ := res.Get("name")
	assert.Equal(t, "a&b=c+d #1", v, "params hold unescaped values")
}

func TestREST_Sort(t *testing.T) {
	q := queryir.New().
		OrderBy(queryir.Field("name"), queryir.Descending).
		ThenBy(queryir.Field("createdDate"), queryir.Ascending)

	res := compileREST(t, q)

	assert.Equal(t, "sort=name_desc,createddate_asc", res.Encode())
}

func TestREST_SortImplicitAscending(t *testing.T) {
	q := queryir.New().OrderBy(queryir.Field("name"))

	res := compileREST(t, q)

	assert.Equal(t, "sort=name_asc", res.Encode())
}

func TestREST_Paging(t *testing.T) {
	testCases := []struct {
		name     string
		q        queryir.Query
		want     string
		warnings int
	}{
		{"skip and take", queryir.New().Skip(20).Take(10), "pageIndex=2&pageSize=10", 0},
		{"take only", queryir.New().Take(10), "pageIndex=0&pageSize=10", 0},
		{"skip only uses default size", queryir.New().Skip(40), "pageIndex=2&pageSize=20", 0},
		{"skip zero unbounded", queryir.New().Skip(0), "", 0},
		{"misaligned skip truncates", queryir.New().Skip(25).Take(10), "pageIndex=2&pageSize=10", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := compileREST(t, tc.q)
			assert.Equal(t, tc.want, res.Encode())
			assert.Len(t, res.Warnings, tc.warnings)
		})
	}
}

func TestREST_NoPagingWhenUnset(t *testing.T) {
	q := queryir.New().Where(queryir.Eq(queryir.Field("level"), ir.Int(1)))

	res := compileREST(t, q)

	assert.NotContains(t, res.Keys(), RESTPageIndex)
	assert.NotContains(t, res.Keys(), RESTPageSize)
}

func TestREST_ParameterOrder(t *testing.T) {
	q := queryir.New().
		Take(10).
		OrderBy(queryir.Field("name")).
		Where(queryir.Eq(queryir.Field("level"), ir.Int(1))).
		Skip(10)

	res := compileREST(t, q)

	assert.Equal(t, []string{"level", RESTSort, RESTPageIndex, RESTPageSize}, res.Keys())
}

// TestREST_CallOrderPreserved checks that for shuffled call orders of the
// same comparisons, parameters come out in exactly the call order.
func TestREST_CallOrderPreserved(t *testing.T) {
	fields := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot"}
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		order := rng.Perm(len(fields))

		q := queryir.New()
		var expected []string
		for _, idx := range order {
			name := fields[idx]
			q = q.Where(queryir.Gt(queryir.Field(name), ir.Int(int64(idx))))
			expected = append(expected, name+"_gt")
		}

		res := compileREST(t, q)
		assert.Equal(t, expected, res.Keys(), "round %d", round)
	}
}

func TestREST_Deterministic(t *testing.T) {
	q := queryir.New().
		Where(queryir.Contains(queryir.Field("name"), "row")).
		Where(queryir.Or(
			queryir.Eq(queryir.Field("muscle"), ir.String("back")),
			queryir.Eq(queryir.Field("muscle"), ir.String("biceps")),
		)).
		OrderBy(queryir.Field("name")).
		Skip(30).Take(15)

	first := compileREST(t, q)
	second := compileREST(t, q)

	assert.Equal(t, first.Encode(), second.Encode())
	assert.Equal(t, first.Warnings, second.Warnings)
}

func TestREST_DisjunctionRenderedAsIndependentParams(t *testing.T) {
	q := queryir.New().Where(queryir.Or(
		queryir.Eq(queryir.Field("muscle"), ir.String("chest")),
		queryir.Eq(queryir.Field("muscle"), ir.String("back")),
	))

	res := compileREST(t, q)

	// Reproduced as-is: both sides become parameters, which the server ANDs.
	assert.Equal(t, "muscle=chest&muscle=back", res.Encode())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "disjunction")
	assert.Contains(t, res.Warnings[0], "muscle eq chest OR muscle eq back")

	err := res.StrictErr()
	require.Error(t, err)
	assert.True(t, IsUnsupportedShape(err))
}

func TestREST_RejectsUnsupportedShapes(t *testing.T) {
	testCases := []struct {
		name string
		q    queryir.Query
		is   func(error) bool
	}{
		{
			name: "field comparison",
			q:    queryir.New().Where(queryir.CompareFields(queryir.Field("updatedAt"), queryir.OpGt, queryir.Field("createdAt"))),
			is:   IsUnsupportedShape,
		},
		{
			name: "field comparison under or",
			q: queryir.New().Where(queryir.Or(
				queryir.Eq(queryir.Field("a"), ir.Int(1)),
				queryir.CompareFields(queryir.Field("b"), queryir.OpEq, queryir.Field("c")),
			)),
			is: IsUnsupportedShape,
		},
		{
			name: "unknown operator",
			q:    queryir.New().Where(queryir.Compare(queryir.Field("a"), queryir.Operator("like"), ir.String("x"))),
			is:   IsUnsupportedShape,
		},
		{
			name: "null contains",
			q:    queryir.New().Where(queryir.Compare(queryir.Field("a"), queryir.OpContains, ir.Null{})),
			is:   IsUnsupportedShape,
		},
		{
			name: "missing operand",
			q:    queryir.New().Where(queryir.Conjunction{Left: queryir.Eq(queryir.Field("a"), ir.Int(1))}),
			is:   IsUnsupportedShape,
		},
		{
			name: "empty filter field",
			q:    queryir.New().Where(queryir.Eq(queryir.Field(""), ir.Int(1))),
			is:   IsInvalidField,
		},
		{
			name: "empty sort field",
			q:    queryir.New().OrderBy(queryir.Field(" ")),
			is:   IsInvalidField,
		},
		{
			name: "negative take",
			q:    queryir.New().Take(-1),
			is:   IsUnsupportedShape,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := RESTCompiler{}.Compile(tc.q)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, tc.is(err), "unexpected error type: %v", err)
			assert.Contains(t, err.Error(), "rest dialect")
		})
	}
}

func TestREST_EmptyQuery(t *testing.T) {
	res := compileREST(t, queryir.New())
	assert.Equal(t, "", res.Encode())
	assert.Empty(t, res.Params)
}

func ExampleRESTCompiler() {
	q := queryir.New().
		Where(queryir.Contains(queryir.Field("name"), "push")).
		OrderBy(queryir.Field("name"), queryir.Descending).
		Skip(20).
		Take(10)

	res, _ := RESTCompiler{}.Compile(q)
	fmt.Println(res.Encode())
	// Output: search=push&sort=name_desc&pageIndex=2&pageSize=10
}
