package domain

// ValueKind discriminates the mutation payload a field update carries.
type ValueKind int

const (
	ValueOption ValueKind = iota // selection-like fields, by option ID
	ValueNumber
	ValueDate
	ValueText
)

// FieldValue is the tagged payload for a field-value mutation. Exactly one
// of the payload members is meaningful, selected by Kind.
type FieldValue struct {
	Kind     ValueKind
	OptionID string
	Number   float64
	Date     string // YYYY-MM-DD
	Text     string
}

// OptionValue builds a payload targeting a single-select or iteration option.
func OptionValue(optionID string) FieldValue {
	return FieldValue{Kind: ValueOption, OptionID: optionID}
}

// NumberValue builds a numeric payload.
func NumberValue(n float64) FieldValue {
	return FieldValue{Kind: ValueNumber, Number: n}
}

// DateValue builds a date payload. The date must already be in YYYY-MM-DD form.
func DateValue(d string) FieldValue {
	return FieldValue{Kind: ValueDate, Date: d}
}

// TextValue builds a free-text payload.
func TextValue(t string) FieldValue {
	return FieldValue{Kind: ValueText, Text: t}
}
