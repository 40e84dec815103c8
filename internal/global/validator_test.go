package global

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Platform string `validate:"required,platform"`
	ID       string `validate:"graph_id"`
	Text     string `validate:"no_xss"`
}

func TestCustomValidators(t *testing.T) {
	InitValidator()

	assert.NoError(t, Validate.Struct(sample{Platform: "instagram", ID: "m_abc-123", Text: "hello"}))
	assert.Error(t, Validate.Struct(sample{Platform: "whatsapp", ID: "1", Text: "x"}))
	assert.Error(t, Validate.Struct(sample{Platform: "facebook", ID: "a b", Text: "x"}))
	assert.Error(t, Validate.Struct(sample{Platform: "facebook", ID: "1", Text: "<script>alert(1)</script>"}))
}
