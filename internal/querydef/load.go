package querydef

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Load reads a definition file, choosing the format by extension:
// .cue for CUE, .yaml/.yml for YAML.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".cue":
		return LoadCUE(data, path)
	case ".yaml", ".yml":
		return LoadYAML(data)
	default:
		return nil, &DefinitionError{Field: "file", Message: fmt.Sprintf("unsupported definition extension %q (want .cue, .yaml or .yml)", ext)}
	}
}

// LoadYAML decodes a YAML definition. Unknown keys are rejected so a typo
// like "oder_by" fails loudly instead of silently dropping the ordering.
func LoadYAML(data []byte) (*Definition, error) {
	var def Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		return nil, fmt.Errorf("parse YAML definition: %w", err)
	}
	return &def, nil
}

// LoadCUE compiles a CUE definition. The definition is either the file's
// top-level struct or, when present, its "query" field. filename is used
// for error positions only.
func LoadCUE(data []byte, filename string) (*Definition, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	if q := v.LookupPath(cue.ParsePath("query")); q.Exists() {
		v = q
	}
	return decodeCUE(v)
}

func decodeCUE(v cue.Value) (*Definition, error) {
	def := &Definition{}
	var err error

	if def.Name, err = optionalString(v, "name"); err != nil {
		return nil, err
	}
	if def.Endpoint, err = optionalString(v, "endpoint"); err != nil {
		return nil, err
	}
	if def.Dialect, err = optionalString(v, "dialect"); err != nil {
		return nil, err
	}

	if whereVal := v.LookupPath(cue.ParsePath("where")); whereVal.Exists() {
		def.Where, err = cueClauses(whereVal)
		if err != nil {
			return nil, err
		}
	}

	if orderVal := v.LookupPath(cue.ParsePath("order_by")); orderVal.Exists() {
		iter, err := orderVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			var s SortSpec
			if s.Field, err = optionalString(iter.Value(), "field"); err != nil {
				return nil, err
			}
			if s.Direction, err = optionalString(iter.Value(), "direction"); err != nil {
				return nil, err
			}
			def.OrderBy = append(def.OrderBy, s)
		}
	}

	if def.Skip, err = optionalInt(v, "skip"); err != nil {
		return nil, err
	}
	if def.Take, err = optionalInt(v, "take"); err != nil {
		return nil, err
	}

	if incVal := v.LookupPath(cue.ParsePath("include")); incVal.Exists() {
		chains, err := incVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for chains.Next() {
			segs, err := chains.Value().List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			var chain []string
			for segs.Next() {
				s, err := segs.Value().String()
				if err != nil {
					return nil, formatCUEError(err)
				}
				chain = append(chain, s)
			}
			def.Include = append(def.Include, chain)
		}
	}

	return def, nil
}

func cueClauses(v cue.Value) ([]Clause, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var clauses []Clause
	for iter.Next() {
		cv := iter.Value()
		var c Clause
		if c.Field, err = optionalString(cv, "field"); err != nil {
			return nil, err
		}
		if c.Op, err = optionalString(cv, "op"); err != nil {
			return nil, err
		}
		if c.Type, err = optionalString(cv, "type"); err != nil {
			return nil, err
		}
		if c.CompareTo, err = optionalString(cv, "compare_to"); err != nil {
			return nil, err
		}
		if valueVal := cv.LookupPath(cue.ParsePath("value")); valueVal.Exists() {
			if c.Value, err = cueScalar(valueVal); err != nil {
				return nil, err
			}
		}
		if anyVal := cv.LookupPath(cue.ParsePath("any")); anyVal.Exists() {
			if c.Any, err = cueClauses(anyVal); err != nil {
				return nil, err
			}
		}
		if allVal := cv.LookupPath(cue.ParsePath("all")); allVal.Exists() {
			if c.All, err = cueClauses(allVal); err != nil {
				return nil, err
			}
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

// cueScalar converts a concrete CUE scalar to the Go value ir.FromAny
// expects.
func cueScalar(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.StringKind:
		s, err := v.String()
		return s, formatCUEError(err)
	case cue.IntKind:
		i, err := v.Int64()
		return i, formatCUEError(err)
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		return f, formatCUEError(err)
	case cue.BoolKind:
		b, err := v.Bool()
		return b, formatCUEError(err)
	default:
		return nil, &DefinitionError{
			Field:   "value",
			Message: fmt.Sprintf("value must be a concrete scalar, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func optionalString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalInt(v cue.Value, path string) (*int, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil, nil
	}
	i, err := f.Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	n := int(i)
	return &n, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &DefinitionError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
