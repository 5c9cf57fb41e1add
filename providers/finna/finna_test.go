package finna

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanbriolat/elonet-archiver"
	"github.com/alanbriolat/elonet-archiver/generic"
)

const hlsSources = `[{"src":"https://cdn.example.com/a.mp4","type":"video/mp4"},{"src":"https://cdn.example.com/a.m3u8","type":"application/x-mpegURL"}]`

func mustDocument(t *testing.T, html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestTitle(t *testing.T) {
	cases := map[string]struct {
		html  string
		title generic.Option[string]
	}{
		"heading":   {`<title>Other | Finna</title><h1 class="title"> Heading </h1>`, generic.Some("Heading")},
		"title tag": {`<title>Tuntematon sotilas | Elonet | Finna.fi</title>`, generic.Some("Tuntematon sotilas")},
		"plain":     {`<title>Just a title</title>`, generic.Some("Just a title")},
		"none":      {`<p>nothing</p>`, generic.None[string]()},
		"empty":     {`<title> | Finna</title>`, generic.None[string]()},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert_.Equal(t, c.title, Title(mustDocument(t, c.html)))
		})
	}
}

func TestExtract_Layouts(t *testing.T) {
	cases := map[string]string{
		"video-js":     `<video class="video-js vjs" data-sources='` + hlsSources + `'></video>`,
		"video-player": `<div id="video-player-1" data-video-sources='` + hlsSources + `'></div>`,
		"script": `<script>var x = 1;</script><script>
			var videoSources = ` + hlsSources + `;
			initPlayer(videoSources);
		</script>`,
		"script multiline": "<script>videoSources =\n[\n{\"src\": \"https://cdn.example.com/a.m3u8\",\n \"type\": \"application/x-mpegURL\"}\n];</script>",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			assert := assert_.New(t)
			video, err := Extract(mustDocument(t, `<html><head><title>Film: "Cut" | Finna</title></head><body>`+body+`</body></html>`))
			require.NoError(t, err)
			assert.Equal("https://cdn.example.com/a.m3u8", video.SourceURL)
			assert.Equal("Film_ _Cut_.mp4", video.Title)
		})
	}
}

func TestExtract_LaterLayoutUsedWhenEarlierHasNoHLS(t *testing.T) {
	doc := mustDocument(t, `
		<video class="video-js" data-sources='[{"src":"a.mp4","type":"video/mp4"}]'></video>
		<div id="video-player" data-video-sources='[{"src":"https://x/b.m3u8","type":"application/x-mpegURL"}]'></div>`)
	video, err := Extract(doc)
	require.NoError(t, err)
	assert_.Equal(t, "https://x/b.m3u8", video.SourceURL)
	assert_.Equal(t, FallbackTitle, video.Title)
}

func TestExtract_NoSources(t *testing.T) {
	assert := assert_.New(t)
	_, err := Extract(mustDocument(t, `<h1 class="title">Film</h1><script>var other = [];</script>`))
	require.Error(t, err)
	assert.ErrorIs(err, elonet_archiver.ErrNoVideoSources)
	assert.Contains(err.Error(), "[video-js]")
	assert.Contains(err.Error(), "[script]")
}

func TestRegistered(t *testing.T) {
	for _, u := range []string{"https://elonet.finna.fi/Record/kavi.elonet_elokuva_1", "https://www.finna.fi/Record/x"} {
		match, err := elonet_archiver.DefaultProviderRegistry.Match(u)
		require.NoError(t, err)
		assert_.Equal(t, Name, match.ProviderName)
		assert_.Equal(t, elonet_archiver.SiteFinna, match.Page.Site)
	}
}
