package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/core/ports"
	"github.com/vidra-project/vidra/internal/logger"
)

const sampleProbeJSON = `{
	"id": "dQw4w9WgXcQ",
	"title": "Test Video",
	"channel": "Test Channel",
	"thumbnail": "https://i.ytimg.example/vi/dQw4w9WgXcQ/hq720.jpg",
	"webpage_url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	"duration": 212,
	"view_count": 1000000,
	"formats": [
		{"format_id": "18", "ext": "mp4", "url": "https://cdn.example/muxed", "vcodec": "avc1", "acodec": "mp4a", "abr": 96, "height": 360},
		{"format_id": "251", "ext": "webm", "url": "https://cdn.example/opus", "vcodec": "none", "acodec": "opus", "abr": 160},
		{"format_id": "140", "ext": "m4a", "url": "https://cdn.example/m4a", "vcodec": "none", "acodec": "mp4a", "abr": 128}
	]
}`

func newTestExtractor(t *testing.T) *YtDlp {
	t.Helper()
	y, err := NewYtDlp(config.ExtractorConfig{Workers: 2}, logger.NewTestLogger())
	require.NoError(t, err)
	return y
}

func TestParseMediaInfo(t *testing.T) {
	info, err := parseMediaInfo([]byte(sampleProbeJSON))
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", info.ID)
	assert.Equal(t, "Test Video", info.Title)
	assert.Equal(t, "Test Channel", info.Channel)
	assert.Equal(t, int64(212), info.DurationSeconds)
	assert.Equal(t, int64(1000000), info.Views)
	require.Len(t, info.Formats, 3)
	assert.Equal(t, "251", info.Formats[1].FormatID)
	assert.Equal(t, 160.0, info.Formats[1].AudioBitrate)
}

func TestParseMediaInfoUploaderFallback(t *testing.T) {
	info, err := parseMediaInfo([]byte(`{"id": "x", "uploader": "Someone"}`))
	require.NoError(t, err)
	assert.Equal(t, "Someone", info.Channel)
}

func TestParseMediaInfoRejectsGarbage(t *testing.T) {
	_, err := parseMediaInfo([]byte("not json"))
	assert.Error(t, err)

	_, err = parseMediaInfo([]byte(`{"title": "no id"}`))
	assert.Error(t, err)
}

func TestBestAudioURLPrefersAudioOnly(t *testing.T) {
	y := newTestExtractor(t)
	info, err := parseMediaInfo([]byte(sampleProbeJSON))
	require.NoError(t, err)

	url, formatID, err := y.BestAudioURL(info)
	require.NoError(t, err)
	// Highest-bitrate audio-only format wins over the muxed one.
	assert.Equal(t, "https://cdn.example/opus", url)
	assert.Equal(t, "251", formatID)
}

func TestBestAudioURLFallsBackToMuxed(t *testing.T) {
	y := newTestExtractor(t)
	info := &ports.MediaInfo{Formats: []ports.MediaFormat{
		{URL: "https://cdn.example/muxed", FormatID: "18", VideoCodec: "avc1", AudioCodec: "mp4a", AudioBitrate: 96},
		{URL: "https://cdn.example/video-only", FormatID: "137", VideoCodec: "avc1", AudioCodec: "none"},
	}}

	url, formatID, err := y.BestAudioURL(info)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/muxed", url)
	assert.Equal(t, "18", formatID)
}

func TestBestAudioURLLastResortAnyURL(t *testing.T) {
	y := newTestExtractor(t)
	info := &ports.MediaInfo{Formats: []ports.MediaFormat{
		{URL: "https://cdn.example/video-only", FormatID: "137", VideoCodec: "avc1", AudioCodec: "none"},
	}}

	url, _, err := y.BestAudioURL(info)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/video-only", url)
}

func TestBestAudioURLNoFormats(t *testing.T) {
	y := newTestExtractor(t)
	_, _, err := y.BestAudioURL(&ports.MediaInfo{})
	assert.Error(t, err)

	_, _, err = y.BestAudioURL(nil)
	assert.Error(t, err)
}

var _ ports.Extractor = (*YtDlp)(nil)
