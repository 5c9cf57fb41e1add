// Package finna extracts videos from Finna record pages, including elonet.finna.fi.
//
// Finna has used several player layouts over time, so the video sources are looked for in each of them in turn.
package finna

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alanbriolat/elonet-archiver"
	"github.com/alanbriolat/elonet-archiver/generic"
)

const (
	Name          = "finna"
	Domain        = "finna.fi"
	FallbackTitle = "finna_video.mp4"
)

var scriptSourcesRegexp = regexp.MustCompile(`(?s)videoSources\s*=\s*(\[.*?\]);`)

var sourceProbes = []elonet_archiver.Probe[string]{
	{Name: "video-js", Run: elonet_archiver.HLSSourceFromAttr("video.video-js", "data-sources")},
	{Name: "video-player", Run: elonet_archiver.HLSSourceFromAttr(`div[id^="video-player"]`, "data-video-sources")},
	{Name: "script", Run: scriptSources},
}

// scriptSources finds a `videoSources = [...];` assignment in an inline script.
func scriptSources(doc *goquery.Document) generic.Result[string] {
	var result generic.Result[string]
	found := false
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "videoSources") {
			return true
		}
		m := scriptSourcesRegexp.FindStringSubmatch(text)
		if m == nil {
			return true
		}
		found = true
		result = elonet_archiver.HLSSourceFromJSON(m[1])
		return result.IsErr()
	})
	if !found {
		return generic.Err[string](fmt.Errorf("videoSources script: %w", elonet_archiver.ErrNotFound))
	}
	return result
}

// Title is the page heading, or the page title without the site name.
func Title(doc *goquery.Document) generic.Option[string] {
	return elonet_archiver.Text(doc, "h1.title").OrElse(func() generic.Option[string] {
		title, _, _ := strings.Cut(doc.Find("title").First().Text(), " | ")
		title = strings.TrimSpace(title)
		return generic.SomeIf(title, title != "")
	})
}

func Extract(doc *goquery.Document) (elonet_archiver.VideoSource, error) {
	source, err := elonet_archiver.FirstOf(doc, sourceProbes...)
	if err != nil {
		return elonet_archiver.VideoSource{}, fmt.Errorf("%w: %v", elonet_archiver.ErrNoVideoSources, err)
	}
	return elonet_archiver.VideoSource{
		Title:     elonet_archiver.SanitizeTitle(Title(doc).UnwrapOr(""), FallbackTitle),
		SourceURL: source,
	}, nil
}

func init() {
	elonet_archiver.DefaultProviderRegistry.MustAdd(elonet_archiver.Provider{
		Name:      Name,
		Site:      elonet_archiver.SiteFinna,
		Match:     elonet_archiver.HostContains(Domain),
		Extractor: elonet_archiver.ExtractorFunc(Extract),
	})
}
