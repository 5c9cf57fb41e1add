package hls

import (
	"strings"
	"time"

	"github.com/grafov/m3u8"
)

type mediaInfo struct {
	Duration  time.Duration
	Encrypted bool
}

// inspectMedia reads tag metadata that the line scanner ignores. Text that grafov/m3u8 cannot decode as a media
// playlist gives no information rather than an error, since the scanner is the authority on segments. grafov panics
// on some valid lists, e.g. a key tag followed by URIs without #EXTINF.
func inspectMedia(text string) (info mediaInfo) {
	defer func() {
		if recover() != nil {
			info = mediaInfo{}
		}
	}()
	pl, listType, err := m3u8.DecodeFrom(strings.NewReader(text), false)
	if err != nil || listType != m3u8.MEDIA {
		return info
	}
	media, ok := pl.(*m3u8.MediaPlaylist)
	if !ok {
		return info
	}
	info.Encrypted = isEncrypted(media.Key)
	var seconds float64
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		seconds += seg.Duration
		if isEncrypted(seg.Key) {
			info.Encrypted = true
		}
	}
	info.Duration = time.Duration(seconds * float64(time.Second))
	return info
}

func isEncrypted(key *m3u8.Key) bool {
	return key != nil && key.Method != "" && !strings.EqualFold(key.Method, "NONE")
}
