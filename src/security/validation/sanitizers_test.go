package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeForFormulaInjection(t *testing.T) {
	assert.Equal(t, "'=SUM(A1:A2)", SanitizeForFormulaInjection("=SUM(A1:A2)"))
	assert.Equal(t, "'+1234", SanitizeForFormulaInjection("+1234"))
	assert.Equal(t, "'-42", SanitizeForFormulaInjection("-42"))
	assert.Equal(t, "'@cmd", SanitizeForFormulaInjection("@cmd"))
	assert.Equal(t, "2024-01-01", SanitizeForFormulaInjection("2024-01-01"))
	assert.Equal(t, "", SanitizeForFormulaInjection(""))
}

func TestStripUnprintable(t *testing.T) {
	assert.Equal(t, "hello world", StripUnprintable("hello\x00 world"))
	assert.Equal(t, "tabs\tand\nnewlines\r", StripUnprintable("tabs\tand\nnewlines\r"))
	assert.Equal(t, "clean", StripUnprintable("clean"))
}
