package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Age  int      `json:"age"`
	City string   `json:"city,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

func people() []person {
	return []person{
		{ID: "1", Name: "ann", Age: 30, City: "Berlin", Tags: []string{"admin"}},
		{ID: "2", Name: "bob", Age: 25, City: "Hamburg"},
		{ID: "3", Name: "cid", Age: 35, Tags: []string{"admin", "ops"}},
		{ID: "4", Name: "dee", Age: 25, City: "Berlin"},
	}
}

func ids(items []person) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}

func TestFilterConditions(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter[person]
		want   []string
	}{
		{"eq string", Eq[person]("name", "bob"), []string{"2"}},
		{"eq number", Eq[person]("age", 25), []string{"2", "4"}},
		{"ne", Match[person]("city", OpNe, "Berlin"), []string{"2", "3"}},
		{"gt", Match[person]("age", OpGt, 25), []string{"1", "3"}},
		{"gte", Match[person]("age", OpGte, 30), []string{"1", "3"}},
		{"lt", Match[person]("age", OpLt, 30), []string{"2", "4"}},
		{"lte", Match[person]("age", OpLte, 25), []string{"2", "4"}},
		{"in", Match[person]("name", OpIn, []string{"ann", "dee"}), []string{"1", "4"}},
		{"contains array", Match[person]("tags", OpContains, "admin"), []string{"1", "3"}},
		{"contains substring", Match[person]("name", OpContains, "e"), []string{"4"}},
		{"missing field never gt", Match[person]("city", OpGt, "A"), []string{"1", "2", "4"}},
		{"eq missing field vs null", Eq[person]("city", nil), []string{"3"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := test.filter.Apply(people())
			assert.Equal(t, test.want, ids(got))
		})
	}
}

func TestFilterCombinators(t *testing.T) {
	adults := Match[person]("age", OpGte, 30)
	berlin := Eq[person]("city", "Berlin")

	t.Run("and", func(t *testing.T) {
		got := adults.And(berlin).Apply(people())
		assert.Equal(t, []string{"1"}, ids(got))
	})

	t.Run("or", func(t *testing.T) {
		got := adults.Or(berlin).Apply(people())
		assert.Equal(t, []string{"1", "3", "4"}, ids(got))
	})

	t.Run("not", func(t *testing.T) {
		got := Not(berlin).Apply(people())
		assert.Equal(t, []string{"2", "3"}, ids(got))
	})

	t.Run("nested", func(t *testing.T) {
		got := Not(adults).And(berlin.Or(Eq[person]("city", "Hamburg"))).Apply(people())
		assert.Equal(t, []string{"2", "4"}, ids(got))
	})
}

func TestFilterCustom(t *testing.T) {
	evenAge := Custom(func(p person) bool { return p.Age%2 == 0 })

	got := evenAge.Apply(people())
	assert.Equal(t, []string{"1"}, ids(got))

	// Custom predicates compose with structured conditions
	got = evenAge.Or(Eq[person]("name", "bob")).Apply(people())
	assert.Equal(t, []string{"1", "2"}, ids(got))
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	input := people()
	Eq[person]("name", "bob").Apply(input)
	assert.Equal(t, people(), input)
}

func TestSortByField(t *testing.T) {
	t.Run("ascending", func(t *testing.T) {
		got := SortBy[person]("age", false).Apply(people())
		assert.Equal(t, []string{"2", "4", "1", "3"}, ids(got))
	})

	t.Run("descending negates without breaking stability", func(t *testing.T) {
		got := SortBy[person]("age", true).Apply(people())
		// 2 and 4 tie on age; input order is preserved among ties
		assert.Equal(t, []string{"3", "1", "2", "4"}, ids(got))
	})

	t.Run("missing values sort first", func(t *testing.T) {
		got := SortBy[person]("city", false).Apply(people())
		assert.Equal(t, "3", got[0].ID)
	})

	t.Run("stable on ties", func(t *testing.T) {
		got := SortBy[person]("age", false).Apply(people())
		assert.Equal(t, []string{"2", "4"}, ids(got[:2]))
	})
}

func TestSortWithComparator(t *testing.T) {
	byNameLen := SortWith(func(a, b person) int { return len(a.Name) - len(b.Name) }, false)
	got := byNameLen.Apply(people())
	// All names are three letters; stability preserves input order
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(got))

	reversed := SortWith(func(a, b person) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	}, true)
	got = reversed.Apply(people())
	assert.Equal(t, []string{"4", "3", "2", "1"}, ids(got))
}

func TestSortChainingMakesLaterSortPrimary(t *testing.T) {
	// Sort by name first, then by age: age becomes primary, name the tie-break
	byName := SortBy[person]("name", false)
	byAge := SortBy[person]("age", false)

	got := byAge.Apply(byName.Apply(people()))
	assert.Equal(t, []string{"2", "4", "1", "3"}, ids(got))
}

func TestRange(t *testing.T) {
	tests := []struct {
		name  string
		start int
		count int
		want  []string
	}{
		{"window", 1, 2, []string{"2", "3"}},
		{"from start", 0, 2, []string{"1", "2"}},
		{"clamped past end", 2, 10, []string{"3", "4"}},
		{"start past end", 10, 5, []string{}},
		{"zero count", 0, 0, []string{}},
		{"negative clamps", -3, -1, []string{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := NewRange[person](test.start, test.count).Apply(people())
			assert.Equal(t, test.want, ids(got))
		})
	}
}

func TestCompositionAssociativity(t *testing.T) {
	f := Match[person]("age", OpGte, 25)
	s := SortBy[person]("age", true)
	r := NewRange[person](0, 2)

	direct := r.Apply(s.Apply(f.Apply(people())))

	queries := []Query[person]{f, s, r}
	chained := people()
	for _, q := range queries {
		chained = q.Apply(chained)
	}

	require.Equal(t, ids(direct), ids(chained))
	assert.Equal(t, []string{"3", "1"}, ids(direct))
}

func TestQueryKinds(t *testing.T) {
	assert.Equal(t, KindFilter, Eq[person]("name", "x").Kind())
	assert.Equal(t, KindSort, SortBy[person]("name", false).Kind())
	assert.Equal(t, KindRange, NewRange[person](0, 1).Kind())
}

func TestSortByObjectFieldIsSymmetric(t *testing.T) {
	type record struct {
		ID   string         `json:"id"`
		Meta map[string]any `json:"meta"`
	}
	recordIDs := func(items []record) []string {
		out := make([]string, len(items))
		for i, r := range items {
			out[i] = r.ID
		}
		return out
	}

	a := record{ID: "a", Meta: map[string]any{"zone": "west"}}
	b := record{ID: "b", Meta: map[string]any{"zone": "east"}}
	c := record{ID: "c", Meta: map[string]any{"zone": "east"}}

	sorted := SortBy[record]("meta", false)
	assert.Equal(t, []string{"b", "c", "a"}, recordIDs(sorted.Apply([]record{a, b, c})))
	assert.Equal(t, []string{"c", "b", "a"}, recordIDs(sorted.Apply([]record{c, b, a})))

	x := map[string]any{"k": "1"}
	y := map[string]any{"k": "2"}
	assert.Equal(t, -1, compareValues(x, y))
	assert.Equal(t, 1, compareValues(y, x))
	assert.Equal(t, 0, compareValues(x, map[string]any{"k": "1"}))
}
