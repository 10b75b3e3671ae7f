package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/remoteq/internal/querydef"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario (and its golden file).
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Query is the inline query definition.
	Query *querydef.Definition `yaml:"query,omitempty"`

	// QueryFile points at a .yaml or .cue definition instead of Query.
	// Relative paths resolve against the scenario file's directory.
	QueryFile string `yaml:"query_file,omitempty"`

	// Strict turns compile warnings into errors.
	Strict bool `yaml:"strict,omitempty"`

	// Expect holds the per-dialect expectations.
	Expect Expect `yaml:"expect"`

	// Fetch optionally enumerates the query against a canned response.
	Fetch *FetchStep `yaml:"fetch,omitempty"`
}

// Expect lists what each dialect must produce. A nil dialect entry is not
// checked.
type Expect struct {
	REST    *DialectExpect `yaml:"rest,omitempty"`
	OData   *DialectExpect `yaml:"odata,omitempty"`
	Include *string        `yaml:"include,omitempty"`
}

// DialectExpect is the expected outcome of compiling for one dialect.
// Exactly one of Query or Error must be set.
type DialectExpect struct {
	// Query is the exact encoded query string.
	Query string `yaml:"query,omitempty"`

	// Warnings are substrings, one per expected warning, in order.
	Warnings []string `yaml:"warnings,omitempty"`

	// Error is a substring of the expected compile error.
	Error string `yaml:"error,omitempty"`
}

// FetchStep serves Body from a fake endpoint and enumerates the query.
type FetchStep struct {
	// Dialect selects the compiler for the request (default rest).
	Dialect string `yaml:"dialect,omitempty"`

	// Status is the HTTP status to answer with (default 200).
	Status int `yaml:"status,omitempty"`

	// Body is the response body.
	Body string `yaml:"body"`

	// Expect describes the enumeration outcome.
	Expect FetchExpect `yaml:"expect"`
}

// FetchExpect is the expected enumeration outcome.
type FetchExpect struct {
	Items *int   `yaml:"items,omitempty"`
	Total *int64 `yaml:"total,omitempty"`

	// Error is "transport" or "decode".
	Error string `yaml:"error,omitempty"`
}

// Fetch error kinds.
const (
	FetchErrorTransport = "transport"
	FetchErrorDecode    = "decode"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expects:" vs "expect:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.QueryFile != "" && !filepath.IsAbs(scenario.QueryFile) {
		scenario.QueryFile = filepath.Join(filepath.Dir(path), scenario.QueryFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// definition returns the scenario's query definition, loading QueryFile
// when set.
func (s *Scenario) definition() (*querydef.Definition, error) {
	if s.QueryFile != "" {
		return querydef.Load(s.QueryFile)
	}
	return s.Query, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Query == nil && s.QueryFile == "":
		return fmt.Errorf("one of query or query_file is required")
	case s.Query != nil && s.QueryFile != "":
		return fmt.Errorf("query and query_file are mutually exclusive")
	}

	if s.QueryFile != "" {
		if _, err := os.Stat(s.QueryFile); os.IsNotExist(err) {
			return fmt.Errorf("query file not found: %s", s.QueryFile)
		}
	}

	if s.Expect.REST == nil && s.Expect.OData == nil && s.Expect.Include == nil && s.Fetch == nil {
		return fmt.Errorf("expect needs at least one of rest, odata, include, or a fetch step")
	}

	for name, de := range map[string]*DialectExpect{"rest": s.Expect.REST, "odata": s.Expect.OData} {
		if de == nil {
			continue
		}
		if (de.Query == "") == (de.Error == "") {
			return fmt.Errorf("expect.%s: exactly one of query or error is required", name)
		}
	}

	if f := s.Fetch; f != nil {
		switch f.Expect.Error {
		case "", FetchErrorTransport, FetchErrorDecode:
		default:
			return fmt.Errorf("fetch.expect.error: unknown kind %q (want transport or decode)", f.Expect.Error)
		}
		if f.Status != 0 && (f.Status < 100 || f.Status > 599) {
			return fmt.Errorf("fetch.status: %d is not an HTTP status", f.Status)
		}
	}

	return nil
}
