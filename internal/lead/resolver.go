// Package lead holds the per-row primitives of the cleaning pipeline:
// heuristic column resolution and per-company bundle assignment.
package lead

import (
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-cleaner/internal/model"
)

// Field names the logical columns the pipeline reads from a lead row.
type Field string

const (
	FieldTitle   Field = "title"
	FieldCompany Field = "company"
	FieldEmail   Field = "email"
)

// Defaults substituted when a logical field cannot be resolved.
const (
	UnknownPosition = "Unknown Position"
	UnknownCompany  = "Unknown Company"
)

// defaultPatterns is the built-in ranked pattern list per logical field.
// Patterns are matched case-insensitively against column names; rank order
// decides between patterns, header order decides between columns matching
// the same pattern.
var defaultPatterns = map[Field][]string{
	FieldTitle:   {`title`},
	FieldCompany: {`organization name`, `company`, `company name`, `organization`},
	FieldEmail:   {`email`},
}

// Resolver locates logical fields in an unordered header set.
type Resolver struct {
	rules map[Field][]*regexp.Regexp
}

// NewResolver builds a resolver from the built-in ranked patterns.
func NewResolver() *Resolver {
	r, err := newResolver(defaultPatterns)
	if err != nil {
		// Built-in patterns are compile-time constants.
		panic(err)
	}
	return r
}

// rulesFile is the YAML shape for pattern overrides.
type rulesFile struct {
	Fields map[string][]string `yaml:"fields"`
}

// NewResolverFromFile builds a resolver from the built-in patterns with
// per-field overrides loaded from a YAML file. A field listed in the file
// replaces that field's ranked list entirely; unlisted fields keep defaults.
func NewResolverFromFile(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "lead: read rules file %s", path)
	}

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, eris.Wrap(err, "lead: parse rules file")
	}

	patterns := make(map[Field][]string, len(defaultPatterns))
	for f, ps := range defaultPatterns {
		patterns[f] = ps
	}
	for name, ps := range rf.Fields {
		f := Field(name)
		if _, ok := defaultPatterns[f]; !ok {
			return nil, eris.Errorf("lead: unknown field %q in rules file", name)
		}
		if len(ps) == 0 {
			return nil, eris.Errorf("lead: empty pattern list for field %q", name)
		}
		patterns[f] = ps
	}

	return newResolver(patterns)
}

func newResolver(patterns map[Field][]string) (*Resolver, error) {
	rules := make(map[Field][]*regexp.Regexp, len(patterns))
	for f, ps := range patterns {
		for _, p := range ps {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return nil, eris.Wrapf(err, "lead: compile pattern %q for field %s", p, f)
			}
			rules[f] = append(rules[f], re)
		}
	}
	return &Resolver{rules: rules}, nil
}

// Resolve returns the first column in header matching the field's ranked
// pattern list, or ("", false) when no column matches. It never inspects
// values, only column names.
func (r *Resolver) Resolve(header []string, field Field) (string, bool) {
	for _, re := range r.rules[field] {
		for _, col := range header {
			if re.MatchString(col) {
				return col, true
			}
		}
	}
	return "", false
}

// Title resolves the title field from a row, defaulting to UnknownPosition.
func (r *Resolver) Title(header []string, row model.Row) string {
	if col, ok := r.Resolve(header, FieldTitle); ok {
		if v := row[col]; v != "" {
			return v
		}
	}
	return UnknownPosition
}

// Company resolves the company field from a row, defaulting to UnknownCompany.
func (r *Resolver) Company(header []string, row model.Row) string {
	if col, ok := r.Resolve(header, FieldCompany); ok {
		if v := row[col]; v != "" {
			return v
		}
	}
	return UnknownCompany
}

// Email resolves the email field from a row. The second return is false when
// the column is absent or the value is empty.
func (r *Resolver) Email(header []string, row model.Row) (string, bool) {
	col, ok := r.Resolve(header, FieldEmail)
	if !ok {
		return "", false
	}
	v := row[col]
	return v, v != ""
}
