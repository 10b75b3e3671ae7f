package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/roach88/remoteq/internal/include"
	"github.com/roach88/remoteq/internal/querydef"
	"github.com/roach88/remoteq/internal/queryir"
)

// LoadError reports a definition file that could not be turned into a
// query.
type LoadError struct {
	Code string // ErrCodeNotFound, ErrCodeParseFailed or ErrCodeInvalidDefinition
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadedQuery is a definition together with the AST and include chains
// built from it.
type LoadedQuery struct {
	Path       string
	Definition *querydef.Definition
	AST        queryir.Query
	Includes   include.Builder
}

// LoadQuery reads a .yaml, .yml or .cue definition and builds it.
func LoadQuery(path string) (*LoadedQuery, error) {
	def, err := querydef.Load(path)
	if err != nil {
		code := ErrCodeParseFailed
		var defErr *querydef.DefinitionError
		switch {
		case errors.Is(err, fs.ErrNotExist):
			code = ErrCodeNotFound
		case errors.As(err, &defErr):
			code = ErrCodeInvalidDefinition
		}
		return nil, &LoadError{Code: code, Path: path, Err: err}
	}

	ast, inc, err := def.Build()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidDefinition, Path: path, Err: err}
	}

	return &LoadedQuery{
		Path:       path,
		Definition: def,
		AST:        ast,
		Includes:   inc,
	}, nil
}
