package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := []Token{
		{Kind: KindEditItem, ProjectID: "PVT_kwDOABC123", Number: 42},
		{Kind: KindFieldSelect, ProjectID: "PVT_kwDOABC123", Number: 42},
		{Kind: KindValueSelect, ProjectID: "PVT_kwDOABC123", Number: 42, FieldID: "PVTSSF_f1"},
		{Kind: KindValueModal, ProjectID: "PVT_kwDOABC123", Number: 7, FieldID: "PVTF_f2"},
		{Kind: KindConfirm, Nonce: "5f0c2a2e-1111-2222-3333-444455556666"},
		{Kind: KindCancel, Nonce: "abc"},
	}

	for _, tok := range tokens {
		got, err := Parse(tok.Encode())
		require.NoError(t, err, "token %q", tok.Encode())
		assert.Equal(t, tok, got)
	}
}

func TestTokenEncoding(t *testing.T) {
	assert.Equal(t, "edit:item:P:42", Token{Kind: KindEditItem, ProjectID: "P", Number: 42}.Encode())
	assert.Equal(t, "val:sel:P:42:F", Token{Kind: KindValueSelect, ProjectID: "P", Number: 42, FieldID: "F"}.Encode())
	assert.Equal(t, "edit:confirm:n1", Token{Kind: KindConfirm, Nonce: "n1"}.Encode())
}

func TestParseRejectsMalformedTokens(t *testing.T) {
	for _, s := range []string{
		"",
		"hello",
		"edit:item",
		"edit:item:P",              // missing number
		"edit:item:P:notanumber",   // non-numeric number
		"edit:item::42",            // empty project
		"val:sel:P:42",             // missing field
		"val:sel:P:42:",            // empty field
		"val:modal:P:xx:F",         // non-numeric number
		"proj_page_Roadmap_2",      // foreign control identifier
		"edit:item:P:42:extra",     // trailing segment
		"unknown:kind:1:2",
	} {
		_, err := Parse(s)
		assert.ErrorIs(t, err, ErrBadToken, "input %q", s)
	}
}
