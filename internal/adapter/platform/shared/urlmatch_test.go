package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.True(t, IsURL("http://rumble.com/v4abcd-title.html"))
	assert.False(t, IsURL("lofi hip hop radio"))
	assert.False(t, IsURL("youtube.com/watch?v=abc"))
	assert.False(t, IsURL("https://"))
}

func TestYouTubeVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=tooshort", ""},
		{"https://www.youtube.com/playlist?list=PL123", ""},
		{"https://vimeo.com/12345", ""},
		{"not a url", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, YouTubeVideoID(tt.url), tt.url)
	}
}

func TestRumbleVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://rumble.com/v4abcd-some-title.html", "v4abcd"},
		{"https://rumble.com/v4abcd.html", "v4abcd"},
		{"https://rumble.com/v4abcd", "v4abcd"},
		{"https://www.rumble.com/embed/v4abcd/", "v4abcd"},
		{"https://rumble.com/c/channel", ""},
		{"https://example.com/v4abcd", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RumbleVideoID(tt.url), tt.url)
	}
}

func TestPeerTubeVideoID(t *testing.T) {
	uuid := "9c9de5e8-0a1e-484a-b099-e80766180a6d"
	assert.Equal(t, uuid, PeerTubeVideoID("https://tilvids.com/videos/watch/"+uuid))
	assert.Equal(t, uuid, PeerTubeVideoID("https://video.example.org/w/"+uuid))
	assert.Equal(t, "", PeerTubeVideoID("https://tilvids.com/videos/watch/not-a-uuid"))
	assert.Equal(t, "", PeerTubeVideoID("https://tilvids.com/about"))
}

func TestOdyseeVideoID(t *testing.T) {
	assert.Equal(t, "@channel/video-slug", OdyseeVideoID("https://odysee.com/@channel/video-slug"))
	assert.Equal(t, "", OdyseeVideoID("https://odysee.com/$/discover"))
	assert.Equal(t, "", OdyseeVideoID("https://example.com/@channel/video"))
}
