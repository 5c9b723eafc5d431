package subtitle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSRTBytes(t *testing.T) {
	data := []byte("1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:03,000 --> 00:00:04,000\nWorld\n")

	file, err := ReadSRTBytes(data, "embedded://sample")
	require.NoError(t, err)
	require.Len(t, file.Lines, 2)
	assert.Equal(t, "Hello", file.Lines[0].Text)
	assert.Equal(t, "World", file.Lines[1].Text)
	assert.Equal(t, "SRT", file.Format)
	assert.Equal(t, "embedded://sample", file.Path)
}

func TestReadSRTBytes_MultilineCue(t *testing.T) {
	data := []byte("1\n00:01:02,500 --> 00:01:04,000\nfirst line\nsecond line\n\n")

	file, err := ReadSRTBytes(data, "multiline.srt")
	require.NoError(t, err)
	require.Len(t, file.Lines, 1)

	line := file.Lines[0]
	assert.Equal(t, 1, line.Index)
	assert.Equal(t, time.Minute+2*time.Second+500*time.Millisecond, line.StartTime)
	assert.Equal(t, time.Minute+4*time.Second, line.EndTime)
	assert.Equal(t, "first line\nsecond line", line.Text)
}

func TestReadSRTBytes_BOMAndCRLF(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF},
		[]byte("1\r\n00:00:01,000 --> 00:00:02,000\r\nHello\r\n\r\n")...)

	file, err := ReadSRTBytes(data, "bom.srt")
	require.NoError(t, err)
	require.Len(t, file.Lines, 1)
	assert.Equal(t, 1, file.Lines[0].Index)
	assert.Equal(t, "Hello", file.Lines[0].Text)
}

func TestReadSRTBytes_InvalidTime(t *testing.T) {
	data := []byte("1\nnot a timestamp\nHello\n\n")

	_, err := ReadSRTBytes(data, "broken.srt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse time")
}

func TestReadSRTBytes_Empty(t *testing.T) {
	file, err := ReadSRTBytes(nil, "empty.srt")
	require.NoError(t, err)
	assert.Empty(t, file.Lines)
}
