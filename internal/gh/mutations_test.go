package gh

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/h0rv/ghcord/internal/domain"
)

func TestValueInputShapes(t *testing.T) {
	assert.Equal(t,
		map[string]interface{}{"singleSelectOptionId": "o1"},
		valueInput(domain.OptionValue("o1")))

	assert.Equal(t,
		map[string]interface{}{"number": 3.5},
		valueInput(domain.NumberValue(3.5)))

	assert.Equal(t,
		map[string]interface{}{"date": "2026-08-24"},
		valueInput(domain.DateValue("2026-08-24")))

	assert.Equal(t,
		map[string]interface{}{"text": "hello"},
		valueInput(domain.TextValue("hello")))
}
