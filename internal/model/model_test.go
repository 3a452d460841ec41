package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_SourceLabel(t *testing.T) {
	c := Chunk{Metadata: ChunkMetadata{Source: "report.pdf", PageNumber: 3, Section: UnknownSection}}
	assert.Equal(t, "📄 report.pdf | Page 3", c.SourceLabel())

	c.Metadata.Section = "SUMMARY"
	assert.Equal(t, "📄 report.pdf | Page 3 | Section: SUMMARY", c.SourceLabel())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("  short  ", 200))

	long := strings.Repeat("a", 250)
	got := Preview(long, 200)
	assert.Equal(t, strings.Repeat("a", 200)+"...", got)

	// 按字符而非字节截断
	cjk := strings.Repeat("文", 201)
	assert.Equal(t, strings.Repeat("文", 200)+"...", Preview(cjk, 200))
}

func TestLocalTime_JSON(t *testing.T) {
	ts := LocalTime(time.Date(2024, 5, 1, 10, 30, 0, 123456000, time.Local))
	b, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-01T10:30:00.123456"`, string(b))

	var back LocalTime
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, ts.Time().Equal(back.Time()))
}
