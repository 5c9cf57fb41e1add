package hls

import (
	"context"
	"html"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/alanbriolat/elonet-archiver/util"
)

// A playlist URL runs from the scheme up to ".m3u8" (plus any query string), and must be followed by whitespace, a
// quote or the end of the document.
var playlistURLPattern = regexp.MustCompile(`(https?://[^\s"'<>]+?\.m3u8(?:\?[^\s"'<>]*)?)(?:[\s"'<>]|$)`)

// Resolver finds the media playlist behind a source URL, unwrapping at most one embed page.
type Resolver struct {
	fetcher Fetcher
	log     *zap.Logger
}

func NewResolver(fetcher Fetcher, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{fetcher: fetcher, log: log.Named("resolver")}
}

// Resolve returns sourceURL itself if it already points at a playlist, otherwise the first playlist URL found in the
// document it points at. The found URL is returned without being fetched.
func (r *Resolver) Resolve(ctx context.Context, sourceURL string) (string, error) {
	if util.HasExt(sourceURL, PlaylistExt) {
		return sourceURL, nil
	}
	body, err := r.fetcher.GetText(ctx, sourceURL)
	if err != nil {
		return "", &ResolutionError{URL: sourceURL, Err: err}
	}
	if IsPlaylistText(body) {
		r.log.Debug("source is a playlist without a playlist extension", zap.String("url", sourceURL))
		return sourceURL, nil
	}
	found, ok := FindPlaylistURL(body)
	if !ok {
		return "", &ResolutionError{URL: sourceURL, Err: ErrNoPlaylistURL}
	}
	r.log.Debug("found playlist in embed page", zap.String("page", sourceURL), zap.String("playlist", found))
	return found, nil
}

// FindPlaylistURL returns the first absolute playlist URL in a document, which may be HTML, JavaScript or JSON.
func FindPlaylistURL(body string) (string, bool) {
	body = html.UnescapeString(strings.ReplaceAll(body, `\/`, "/"))
	m := playlistURLPattern.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return m[1], true
}
