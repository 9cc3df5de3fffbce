package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/chanlog/internal/model"
	"github.com/crimson-sun/chanlog/internal/output"
)

func testBatch() []model.Record {
	at := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	return []model.Record{
		{ConnID: "c", Network: "libera", Channel: "#go", Format: model.Plain, Time: at, Line: "<alice> hi\n"},
		{ConnID: "c", Network: "libera", Channel: "#go", Format: model.Markup, Time: at, Line: "<p>hi</p>\n"},
	}
}

func TestTextEchoesPlainOnly(t *testing.T) {
	var buf bytes.Buffer
	out := New(WithWriter(&buf))

	require.NoError(t, out.Write(context.Background(), testBatch()))
	assert.Equal(t, "[libera #go] <alice> hi\n", buf.String())
}

func TestJSONEcho(t *testing.T) {
	var buf bytes.Buffer
	out := New(WithWriter(&buf), WithJSON(false), WithFormats(model.Plain, model.Markup))

	require.NoError(t, out.Write(context.Background(), testBatch()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var got output.Payload
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, "markup", got.Format)
	assert.Equal(t, "<p>hi</p>", got.Line)
	assert.Equal(t, "#go", got.Channel)
}

func TestPrettyJSONIsIndented(t *testing.T) {
	var buf bytes.Buffer
	out := New(WithWriter(&buf), WithJSON(true))

	require.NoError(t, out.Write(context.Background(), testBatch()))
	assert.Contains(t, buf.String(), "\n  \"network\": \"libera\"")
}

func TestFlushAndCloseAreNoops(t *testing.T) {
	out := New(WithWriter(&bytes.Buffer{}))
	assert.NoError(t, out.Flush(time.Now()))
	assert.NoError(t, out.Close())
}
