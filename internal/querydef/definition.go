// Package querydef loads query definitions from YAML or CUE files and
// builds them into a queryir.Query plus include chains.
//
// A definition mirrors the builder API one-to-one, so a file compiles to
// exactly the query string the equivalent Go calls would produce:
//
//	name: push_workouts
//	endpoint: workouts
//	dialect: odata
//	where:
//	  - {field: name, op: contains, value: push}
//	  - any:
//	      - {field: muscle, op: eq, value: chest}
//	      - {field: muscle, op: eq, value: back}
//	  - {field: createdDate, op: gt, value: "2024-01-01T00:00:00Z", type: datetime}
//	order_by:
//	  - {field: name, direction: desc}
//	skip: 20
//	take: 10
//	include:
//	  - [weekPlans, weekPlanSets]
package querydef

import (
	"fmt"
	"time"

	"cuelang.org/go/cue/token"

	"github.com/roach88/remoteq/internal/include"
	"github.com/roach88/remoteq/internal/ir"
	"github.com/roach88/remoteq/internal/queryir"
)

// Definition is a declarative query.
type Definition struct {
	Name     string     `yaml:"name" json:"name"`
	Endpoint string     `yaml:"endpoint" json:"endpoint"`
	Dialect  string     `yaml:"dialect,omitempty" json:"dialect,omitempty"`
	Where    []Clause   `yaml:"where,omitempty" json:"where,omitempty"`
	OrderBy  []SortSpec `yaml:"order_by,omitempty" json:"order_by,omitempty"`
	Skip     *int       `yaml:"skip,omitempty" json:"skip,omitempty"`
	Take     *int       `yaml:"take,omitempty" json:"take,omitempty"`
	Include  [][]string `yaml:"include,omitempty" json:"include,omitempty"`
}

// Clause is one filter entry. Exactly one form must be used:
//   - Field + Op + Value: a comparison with a literal
//   - Field + Op + CompareTo: a field-to-field comparison
//   - Any: the entries ORed together, in order
//   - All: the entries ANDed together, in order
type Clause struct {
	Field     string   `yaml:"field,omitempty" json:"field,omitempty"`
	Op        string   `yaml:"op,omitempty" json:"op,omitempty"`
	Value     any      `yaml:"value,omitempty" json:"value,omitempty"`
	Type      string   `yaml:"type,omitempty" json:"type,omitempty"` // "datetime" parses Value as RFC 3339
	CompareTo string   `yaml:"compare_to,omitempty" json:"compare_to,omitempty"`
	Any       []Clause `yaml:"any,omitempty" json:"any,omitempty"`
	All       []Clause `yaml:"all,omitempty" json:"all,omitempty"`
}

// SortSpec is one ordering key. An empty Direction means implicit
// ascending.
type SortSpec struct {
	Field     string `yaml:"field" json:"field"`
	Direction string `yaml:"direction,omitempty" json:"direction,omitempty"`
}

// DefinitionError reports an invalid definition, with a source position
// when the definition came from CUE.
type DefinitionError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *DefinitionError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DialectOr returns the definition's dialect, or fallback when unset.
func (d *Definition) DialectOr(fallback string) string {
	if d.Dialect != "" {
		return d.Dialect
	}
	return fallback
}

// Build converts the definition into a query and its include chains.
//
// Clauses are folded with AND in file order, so the compiled parameters
// appear in the same order as the file.
func (d *Definition) Build() (queryir.Query, include.Builder, error) {
	q := queryir.New()
	inc := include.New()

	if d.Endpoint == "" {
		return q, inc, &DefinitionError{Field: "endpoint", Message: "endpoint is required"}
	}

	for i, c := range d.Where {
		p, err := c.build(fmt.Sprintf("where[%d]", i))
		if err != nil {
			return q, inc, err
		}
		q = q.Where(p)
	}

	for i, s := range d.OrderBy {
		field := queryir.Field(s.Field)
		if field.IsEmpty() {
			return q, inc, &DefinitionError{Field: fmt.Sprintf("order_by[%d].field", i), Message: "field is required"}
		}
		var dirs []queryir.Direction
		if s.Direction != "" {
			dir, err := queryir.ParseDirection(s.Direction)
			if err != nil {
				return q, inc, &DefinitionError{
					Field:   fmt.Sprintf("order_by[%d].direction", i),
					Message: err.Error(),
				}
			}
			dirs = append(dirs, dir)
		}
		if i == 0 {
			q = q.OrderBy(field, dirs...)
		} else {
			q = q.ThenBy(field, dirs...)
		}
	}

	if d.Skip != nil {
		q = q.Skip(*d.Skip)
	}
	if d.Take != nil {
		q = q.Take(*d.Take)
	}

	for i, chain := range d.Include {
		if len(chain) == 0 {
			return q, inc, &DefinitionError{Field: fmt.Sprintf("include[%d]", i), Message: "empty include chain"}
		}
		inc = inc.Include(chain[0])
		for _, seg := range chain[1:] {
			inc = inc.ThenInclude(seg)
		}
	}
	if err := inc.Err(); err != nil {
		return q, inc, &DefinitionError{Field: "include", Message: err.Error()}
	}

	return q, inc, nil
}

func (c Clause) build(path string) (queryir.Predicate, error) {
	forms := 0
	if c.Field != "" || c.Op != "" {
		forms++
	}
	if len(c.Any) > 0 {
		forms++
	}
	if len(c.All) > 0 {
		forms++
	}
	if forms != 1 {
		return nil, &DefinitionError{Field: path, Message: "clause needs exactly one of field/op, any, all"}
	}

	switch {
	case len(c.Any) > 0:
		return buildGroup(path+".any", c.Any, queryir.Or)
	case len(c.All) > 0:
		return buildGroup(path+".all", c.All, queryir.And)
	}

	field := queryir.Field(c.Field)
	if field.IsEmpty() {
		return nil, &DefinitionError{Field: path + ".field", Message: "field is required"}
	}
	op, err := queryir.ParseOperator(c.Op)
	if err != nil {
		return nil, &DefinitionError{Field: path + ".op", Message: err.Error()}
	}

	if c.CompareTo != "" {
		return queryir.CompareFields(field, op, queryir.Field(c.CompareTo)), nil
	}

	value, err := c.literal()
	if err != nil {
		return nil, &DefinitionError{Field: path + ".value", Message: err.Error()}
	}
	return queryir.Compare(field, op, value), nil
}

func buildGroup(path string, clauses []Clause, combine func(l, r queryir.Predicate) queryir.Predicate) (queryir.Predicate, error) {
	var out queryir.Predicate
	for i, c := range clauses {
		p, err := c.build(fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = combine(out, p)
	}
	return out, nil
}

func (c Clause) literal() (ir.Value, error) {
	switch c.Type {
	case "":
		return ir.FromAny(c.Value)
	case "datetime":
		switch v := c.Value.(type) {
		case time.Time:
			return ir.Time(v), nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return nil, fmt.Errorf("invalid datetime %q: %w", v, err)
			}
			return ir.Time(t), nil
		default:
			return nil, fmt.Errorf("datetime value must be a string, got %T", c.Value)
		}
	case "string":
		if s, ok := c.Value.(string); ok {
			return ir.String(s), nil
		}
		return ir.String(fmt.Sprint(c.Value)), nil
	default:
		return nil, fmt.Errorf("unknown value type %q", c.Type)
	}
}
