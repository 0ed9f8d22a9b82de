package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter_TextTable(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatText, &buf)

	require.NoError(t, f.PrintTable(
		[]string{"id", "status"},
		[][]string{{"D-001", "active"}, {"D-002", "superseded"}},
	))

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "D-001")
	assert.Contains(t, out, "superseded")
}

func TestFormatter_JSONTable(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatJSON, &buf)

	require.NoError(t, f.PrintTable(
		[]string{"id", "status"},
		[][]string{{"D-001", "active"}},
	))

	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "D-001", decoded[0]["id"])
	assert.Equal(t, "active", decoded[0]["status"])
}

func TestFormatter_SuccessByFormat(t *testing.T) {
	var text bytes.Buffer
	require.NoError(t, NewFormatter(FormatText, &text).PrintSuccess("done"))
	assert.Equal(t, "✓ done\n", text.String())

	var out bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON, &out).PrintSuccess("done"))
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "success", decoded["status"])
	assert.Equal(t, "done", decoded["message"])
}

func TestNewFormatter_UnknownFormatIsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter("bogus", &buf).PrintError("nope"))
	assert.Equal(t, "✗ nope\n", buf.String())
}
