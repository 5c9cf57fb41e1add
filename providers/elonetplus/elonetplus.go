// Package elonetplus extracts videos from elonetplus.fi pages.
package elonetplus

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/alanbriolat/elonet-archiver"
)

const (
	Name          = "elonetplus"
	Domain        = "elonetplus.fi"
	FallbackTitle = "video.mp4"
)

var sourceProbes = []elonet_archiver.Probe[string]{
	{Name: "video-data", Run: elonet_archiver.HLSSourceFromAttr("span#video-data", "data-video-sources")},
}

func Extract(doc *goquery.Document) (elonet_archiver.VideoSource, error) {
	source, err := elonet_archiver.FirstOf(doc, sourceProbes...)
	if err != nil {
		return elonet_archiver.VideoSource{}, err
	}
	title := elonet_archiver.Text(doc, `h1[property="name"]`).UnwrapOr("")
	return elonet_archiver.VideoSource{
		Title:     elonet_archiver.SanitizeTitle(title, FallbackTitle),
		SourceURL: source,
	}, nil
}

func init() {
	elonet_archiver.DefaultProviderRegistry.MustAdd(elonet_archiver.Provider{
		Name:      Name,
		Site:      elonet_archiver.SiteElonetPlus,
		Match:     elonet_archiver.HostContains(Domain),
		Extractor: elonet_archiver.ExtractorFunc(Extract),
	})
}
