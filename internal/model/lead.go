package model

// Row is a single lead record keyed by column name as it appeared in the
// source header. Values are raw strings; column order lives in Table.Header.
type Row map[string]string

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is a fully materialized lead dataset: an ordered header plus rows.
// The whole dataset resides in memory for the duration of a run.
type Table struct {
	Header []string
	Rows   []Row
}

// Derived output columns appended to the input header, in this order.
const (
	ColClassification = "Limpio"
	ColBundle         = "Bundle"
	ColProvider       = "MX Result"
)

// OutputHeader returns the augmented header: input columns followed by the
// three derived columns.
func OutputHeader(input []string) []string {
	out := make([]string, 0, len(input)+3)
	out = append(out, input...)
	return append(out, ColClassification, ColBundle, ColProvider)
}

// ProviderResult is the outcome of classifying a lead's email provider.
type ProviderResult string

const (
	ProviderGmail   ProviderResult = "Gmail"
	ProviderOutlook ProviderResult = "Outlook"
	ProviderOther   ProviderResult = "Other"
	ProviderNoMX    ProviderResult = "No MX Records"
	ProviderInvalid ProviderResult = "Invalid Email"
	ProviderNoEmail ProviderResult = "No Email"
	ProviderError   ProviderResult = "ERROR"
)
