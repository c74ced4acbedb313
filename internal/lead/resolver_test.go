package lead

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cleaner/internal/model"
)

func TestResolve_CaseInsensitive(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	header := []string{"First Name", "Job TITLE", "Company"}

	col, ok := r.Resolve(header, FieldTitle)
	require.True(t, ok)
	assert.Equal(t, "Job TITLE", col)
}

func TestResolve_RankOrderBeatsHeaderOrder(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	// "Company" appears first, but "Organization Name" outranks it.
	header := []string{"Company", "Organization Name"}

	col, ok := r.Resolve(header, FieldCompany)
	require.True(t, ok)
	assert.Equal(t, "Organization Name", col)
}

func TestResolve_HeaderOrderWithinPattern(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	header := []string{"Work Email", "Personal Email"}

	col, ok := r.Resolve(header, FieldEmail)
	require.True(t, ok)
	assert.Equal(t, "Work Email", col)
}

func TestResolve_NoMatch(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	_, ok := r.Resolve([]string{"First Name", "Phone"}, FieldTitle)
	assert.False(t, ok)
}

func TestTitle_Defaults(t *testing.T) {
	t.Parallel()

	r := NewResolver()

	// Column absent.
	assert.Equal(t, UnknownPosition, r.Title([]string{"Name"}, model.Row{"Name": "Ana"}))

	// Column present but value empty.
	assert.Equal(t, UnknownPosition, r.Title([]string{"Title"}, model.Row{"Title": ""}))

	// Value present.
	assert.Equal(t, "CEO", r.Title([]string{"Title"}, model.Row{"Title": "CEO"}))
}

func TestCompany_Defaults(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	header := []string{"Company"}

	assert.Equal(t, "Globex", r.Company(header, model.Row{"Company": "Globex"}))
	assert.Equal(t, UnknownCompany, r.Company(header, model.Row{"Company": ""}))
	assert.Equal(t, UnknownCompany, r.Company([]string{"Name"}, model.Row{"Name": "x"}))
}

func TestEmail_MissingAndEmpty(t *testing.T) {
	t.Parallel()

	r := NewResolver()

	_, ok := r.Email([]string{"Name"}, model.Row{"Name": "Ana"})
	assert.False(t, ok)

	_, ok = r.Email([]string{"Email"}, model.Row{"Email": ""})
	assert.False(t, ok)

	v, ok := r.Email([]string{"Email"}, model.Row{"Email": "a@b.com"})
	require.True(t, ok)
	assert.Equal(t, "a@b.com", v)
}

func TestNewResolverFromFile_Overrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	rules := "fields:\n  title:\n    - cargo\n    - puesto\n"
	require.NoError(t, os.WriteFile(path, []byte(rules), 0o644))

	r, err := NewResolverFromFile(path)
	require.NoError(t, err)

	// Overridden field uses the new list only.
	col, ok := r.Resolve([]string{"Title", "Cargo"}, FieldTitle)
	require.True(t, ok)
	assert.Equal(t, "Cargo", col)

	// Untouched fields keep defaults.
	col, ok = r.Resolve([]string{"Email"}, FieldEmail)
	require.True(t, ok)
	assert.Equal(t, "Email", col)
}

func TestNewResolverFromFile_UnknownField(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  telefono:\n    - phone\n"), 0o644))

	_, err := NewResolverFromFile(path)
	assert.Error(t, err)
}
