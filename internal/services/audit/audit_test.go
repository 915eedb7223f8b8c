package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fgeck/wolproxy/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func sampleRecord() models.AuditRecord {
	return models.AuditRecord{
		Identifier:    "123456789",
		Outcome:       models.StatusSent,
		CorrelationID: "corr-1",
		SourceAddr:    "192.168.1.20:51234",
		Timestamp:     "2026-02-10T20:12:52.493Z",
	}
}

func TestLogSink_Append(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))

	sink.Append(sampleRecord())

	out := buf.String()
	assert.Contains(t, out, `"identifier":"123456789"`)
	assert.Contains(t, out, `"outcome":"Sent"`)
	assert.Contains(t, out, `"correlation_id":"corr-1"`)
}

func TestFileSink_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, err := NewFileSink(path, testLogger())
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	sink.Append(sampleRecord())

	second := sampleRecord()
	second.Outcome = models.StatusUnknownDevice
	second.Identifier = "ghost"
	sink.Append(second)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	var records []models.AuditRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec models.AuditRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}

	require.Len(t, records, 2)
	assert.Equal(t, models.StatusSent, records[0].Outcome)
	assert.Equal(t, "ghost", records[1].Identifier)
}

func TestFileSink_AppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	first, err := NewFileSink(path, testLogger())
	require.NoError(t, err)
	first.Append(sampleRecord())
	require.NoError(t, first.Close())

	second, err := NewFileSink(path, testLogger())
	require.NoError(t, err)
	second.Append(sampleRecord())
	require.NoError(t, second.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))
}

func TestMultiSink_FansOut(t *testing.T) {
	var first, second bytes.Buffer
	sink := MultiSink{
		NewLogSink(zerolog.New(&first)),
		NewLogSink(zerolog.New(&second)),
	}

	sink.Append(sampleRecord())

	assert.Contains(t, first.String(), "123456789")
	assert.Contains(t, second.String(), "123456789")
}
