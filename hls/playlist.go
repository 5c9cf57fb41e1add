package hls

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanbriolat/elonet-archiver/util"
)

const (
	PlaylistExt = ".m3u8"
	SegmentExt  = ".ts"

	headerTag    = "#EXTM3U"
	streamInfTag = "#EXT-X-STREAM-INF:"
	keyTag       = "#EXT-X-KEY:"
)

// Playlist is either a *MasterPlaylist or a *MediaPlaylist.
type Playlist interface {
	PlaylistURL() string
}

type Variant struct {
	Bandwidth uint64
	URL       string
}

// MasterPlaylist lists variant streams in the order they appear in the file.
type MasterPlaylist struct {
	URL      string
	Variants []Variant
}

func (p *MasterPlaylist) PlaylistURL() string {
	return p.URL
}

// Best returns the variant with the strictly greatest bandwidth. Ties go to the variant listed first, and a variant
// without a positive bandwidth is never selected, so ok is false if no variant has a usable BANDWIDTH.
func (p *MasterPlaylist) Best() (best Variant, ok bool) {
	for _, v := range p.Variants {
		if v.Bandwidth > best.Bandwidth {
			best = v
			ok = true
		}
	}
	return best, ok
}

// MediaPlaylist lists segment URLs in playback order.
type MediaPlaylist struct {
	URL      string
	Segments []string
	// Total of the #EXTINF durations, if known.
	Duration time.Duration
	// Set by any #EXT-X-KEY with a METHOD other than NONE.
	Encrypted bool
}

func (p *MediaPlaylist) PlaylistURL() string {
	return p.URL
}

// Decode classifies playlist text as master or media and extracts its URLs, resolved against base.
func Decode(text string, base *url.URL) Playlist {
	lines := splitLines(text)
	if isMaster(lines) {
		return decodeMaster(lines, base)
	}
	return decodeMedia(lines, base)
}

// DecodeMedia treats playlist text as a media playlist regardless of its contents.
func DecodeMedia(text string, base *url.URL) *MediaPlaylist {
	return decodeMedia(splitLines(text), base)
}

// IsPlaylistText reports whether text looks like an M3U8 document.
func IsPlaylistText(text string) bool {
	for _, line := range splitLines(text) {
		if line != "" {
			return strings.HasPrefix(line, headerTag)
		}
	}
	return false
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines
}

func isURI(line string) bool {
	return line != "" && !strings.HasPrefix(line, "#")
}

// isMaster is true if a variant stream tag is followed somewhere by a playlist URI.
func isMaster(lines []string) bool {
	seenTag := false
	for _, line := range lines {
		if strings.HasPrefix(line, streamInfTag) {
			seenTag = true
		} else if seenTag && isURI(line) && util.HasExt(line, PlaylistExt) {
			return true
		}
	}
	return false
}

// decodeMaster pairs each variant stream tag with the URI line that follows it.
func decodeMaster(lines []string, base *url.URL) *MasterPlaylist {
	p := &MasterPlaylist{URL: base.String()}
	var attrs *string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, streamInfTag):
			a := strings.TrimPrefix(line, streamInfTag)
			attrs = &a
		case isURI(line):
			if attrs != nil && util.HasExt(line, PlaylistExt) {
				p.Variants = append(p.Variants, Variant{
					Bandwidth: bandwidth(*attrs),
					URL:       resolve(base, line),
				})
			}
			attrs = nil
		}
	}
	return p
}

func decodeMedia(lines []string, base *url.URL) *MediaPlaylist {
	p := &MediaPlaylist{URL: base.String()}
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, keyTag):
			if method, _ := attribute(strings.TrimPrefix(line, keyTag), "METHOD"); !strings.EqualFold(method, "NONE") {
				p.Encrypted = true
			}
		case isURI(line) && util.HasExt(line, SegmentExt):
			p.Segments = append(p.Segments, resolve(base, line))
		}
	}
	return p
}

// bandwidth extracts BANDWIDTH from an attribute list, or 0 if it is missing or not an unsigned integer.
func bandwidth(attrs string) uint64 {
	value, found := attribute(attrs, "BANDWIDTH")
	if !found {
		return 0
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// attribute returns the first value of the named attribute, unquoted.
func attribute(attrs string, name string) (string, bool) {
	for _, attr := range splitAttributes(attrs) {
		key, value, found := strings.Cut(attr, "=")
		if found && strings.EqualFold(strings.TrimSpace(key), name) {
			return strings.Trim(strings.TrimSpace(value), `"`), true
		}
	}
	return "", false
}

// splitAttributes splits on commas that are not inside a quoted string, e.g. CODECS="avc1.4d401f,mp4a.40.2".
func splitAttributes(attrs string) []string {
	var parts []string
	inQuotes := false
	start := 0
	for i, c := range attrs {
		switch c {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				parts = append(parts, attrs[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, attrs[start:])
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
