package hls

import (
	"context"
	"net/url"

	"go.uber.org/zap"
)

// Fetcher retrieves a text document, failing on anything but HTTP 200.
type Fetcher interface {
	GetText(ctx context.Context, url string) (string, error)
}

// Parser turns a playlist URL into the ordered list of segment URLs to download.
type Parser struct {
	fetcher Fetcher
	log     *zap.Logger
}

func NewParser(fetcher Fetcher, log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{fetcher: fetcher, log: log.Named("parser")}
}

// Parse fetches a playlist. A master playlist is followed to its highest-bandwidth variant, which must be a media
// playlist. If a master playlist has no variant with a usable bandwidth, its own text is treated as a media playlist.
func (p *Parser) Parse(ctx context.Context, playlistURL string) (*MediaPlaylist, error) {
	base, text, err := p.fetch(ctx, playlistURL)
	if err != nil {
		return nil, err
	}

	var media *MediaPlaylist
	switch pl := Decode(text, base).(type) {
	case *MasterPlaylist:
		best, ok := pl.Best()
		if !ok {
			p.log.Warn("no variant with a usable bandwidth, treating master playlist as media playlist",
				zap.String("url", playlistURL), zap.Int("variants", len(pl.Variants)))
			media = DecodeMedia(text, base)
			break
		}
		p.log.Info("selected variant stream",
			zap.String("url", best.URL), zap.Uint64("bandwidth", best.Bandwidth), zap.Int("variants", len(pl.Variants)))
		variantBase, variantText, err := p.fetch(ctx, best.URL)
		if err != nil {
			return nil, err
		}
		variant, isMedia := Decode(variantText, variantBase).(*MediaPlaylist)
		if !isMedia {
			return nil, &PlaylistError{URL: best.URL, Err: ErrNestedMaster}
		}
		media, text = variant, variantText
	case *MediaPlaylist:
		media = pl
	}

	if len(media.Segments) == 0 {
		return nil, &PlaylistError{URL: media.URL, Err: ErrNoSegments}
	}
	info := inspectMedia(text)
	if media.Encrypted || info.Encrypted {
		return nil, &PlaylistError{URL: media.URL, Err: ErrEncrypted}
	}
	media.Duration = info.Duration
	p.log.Debug("parsed media playlist",
		zap.String("url", media.URL), zap.Int("segments", len(media.Segments)), zap.Duration("duration", media.Duration))
	return media, nil
}

func (p *Parser) fetch(ctx context.Context, playlistURL string) (*url.URL, string, error) {
	base, err := url.Parse(playlistURL)
	if err != nil {
		return nil, "", &PlaylistError{URL: playlistURL, Err: err}
	}
	text, err := p.fetcher.GetText(ctx, playlistURL)
	if err != nil {
		return nil, "", &PlaylistError{URL: playlistURL, Err: err}
	}
	return base, text, nil
}
