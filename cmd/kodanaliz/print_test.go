package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
	"github.com/itstheanurag/kodanaliz/internal/localize"
)

func TestPrintResult(t *testing.T) {
	color.NoColor = true
	loc, err := localize.New("tr")
	require.NoError(t, err)

	var buf bytes.Buffer
	printResult(&buf, loc, "en", "main.py", diagnostic.Failed(diagnostic.Diagnostic{
		Kind:       diagnostic.RuntimeError,
		Line:       2,
		Category:   "ZeroDivisionError",
		RawMessage: "ZeroDivisionError: division by zero",
		ToolSource: "python3",
	}))
	out := buf.String()
	assert.Contains(t, out, "main.py:2: RuntimeError [python3] ZeroDivisionError: division by zero")
	assert.Contains(t, out, "  -> ")

	buf.Reset()
	printResult(&buf, loc, "en", "main.py", diagnostic.Success("hi"))
	assert.Equal(t, "OK\nhi\n", buf.String())
}
