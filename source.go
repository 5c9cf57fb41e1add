package elonet_archiver

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// SiteKind identifies which media library a page belongs to, and so how to extract its video.
type SiteKind string

const (
	SiteElonetPlus SiteKind = "elonetplus"
	SiteFinna      SiteKind = "finna"
)

// PageReference is a page URL classified by site.
type PageReference struct {
	URL  *url.URL
	Site SiteKind
}

func (p PageReference) String() string {
	return fmt.Sprintf("%s [%s]", p.URL, p.Site)
}

// VideoSource is what a site page says about its video. Title is already a safe filename, including extension.
type VideoSource struct {
	Title     string
	SourceURL string
}

// An Extractor finds the VideoSource in a site's page markup.
type Extractor interface {
	Extract(doc *goquery.Document) (VideoSource, error)
}

// ExtractorFunc adapts a plain function to Extractor.
type ExtractorFunc func(doc *goquery.Document) (VideoSource, error)

func (f ExtractorFunc) Extract(doc *goquery.Document) (VideoSource, error) {
	return f(doc)
}

// ExtractionError means none of a site's known page layouts matched.
type ExtractionError struct {
	Site SiteKind
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("error processing %s page: %v", e.Site, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
