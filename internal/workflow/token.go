// Package workflow implements the stateless multi-step edit interactions.
// All state a step needs is carried in an opaque correlation token embedded
// in the prompt itself; the engine is driven entirely by external events.
package workflow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadToken indicates a token that does not decode to any known workflow
// step. Events carrying one are reported as stale and never mutate anything.
var ErrBadToken = errors.New("unrecognized workflow token")

// Kind identifies the workflow step a token belongs to.
type Kind int

const (
	// KindEditItem starts the interactive edit of one record: the next
	// prompt presents the project's editable fields.
	KindEditItem Kind = iota
	// KindFieldSelect carries a chosen field; the next prompt collects the
	// value (option choice or free text).
	KindFieldSelect
	// KindValueSelect carries a chosen option for a selection-like field.
	KindValueSelect
	// KindValueModal carries free text submitted for a free-form field.
	KindValueModal
	// KindConfirm and KindCancel are single-use confirmation buttons scoped
	// to one in-flight command by nonce.
	KindConfirm
	KindCancel
)

// Token is the decoded form of a correlation token. ProjectID and Number
// identify the record being edited; FieldID is present from the field
// choice onward; Nonce scopes confirmation buttons to one command
// invocation. Tokens carry no secrets and round-trip without external
// state.
type Token struct {
	Kind      Kind
	ProjectID string
	Number    int
	FieldID   string
	Nonce     string
}

// Encode renders the token as its opaque string form.
func (t Token) Encode() string {
	switch t.Kind {
	case KindEditItem:
		return fmt.Sprintf("edit:item:%s:%d", t.ProjectID, t.Number)
	case KindFieldSelect:
		return fmt.Sprintf("field:sel:%s:%d", t.ProjectID, t.Number)
	case KindValueSelect:
		return fmt.Sprintf("val:sel:%s:%d:%s", t.ProjectID, t.Number, t.FieldID)
	case KindValueModal:
		return fmt.Sprintf("val:modal:%s:%d:%s", t.ProjectID, t.Number, t.FieldID)
	case KindConfirm:
		return "edit:confirm:" + t.Nonce
	default:
		return "edit:cancel:" + t.Nonce
	}
}

// Parse decodes a token string. Returns ErrBadToken for anything that does
// not match exactly one step shape.
func Parse(s string) (Token, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		return Token{}, ErrBadToken
	}

	switch parts[0] + ":" + parts[1] {
	case "edit:item":
		return parseRecordToken(KindEditItem, parts)
	case "field:sel":
		return parseRecordToken(KindFieldSelect, parts)
	case "val:sel":
		return parseFieldToken(KindValueSelect, parts)
	case "val:modal":
		return parseFieldToken(KindValueModal, parts)
	case "edit:confirm":
		return Token{Kind: KindConfirm, Nonce: strings.Join(parts[2:], ":")}, nil
	case "edit:cancel":
		return Token{Kind: KindCancel, Nonce: strings.Join(parts[2:], ":")}, nil
	}
	return Token{}, ErrBadToken
}

func parseRecordToken(kind Kind, parts []string) (Token, error) {
	if len(parts) != 4 {
		return Token{}, ErrBadToken
	}
	num, err := strconv.Atoi(parts[3])
	if err != nil || parts[2] == "" {
		return Token{}, ErrBadToken
	}
	return Token{Kind: kind, ProjectID: parts[2], Number: num}, nil
}

func parseFieldToken(kind Kind, parts []string) (Token, error) {
	if len(parts) != 5 {
		return Token{}, ErrBadToken
	}
	num, err := strconv.Atoi(parts[3])
	if err != nil || parts[2] == "" || parts[4] == "" {
		return Token{}, ErrBadToken
	}
	return Token{Kind: kind, ProjectID: parts[2], Number: num, FieldID: parts[4]}, nil
}
