package elonet_archiver

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-multierror"

	"github.com/alanbriolat/elonet-archiver/generic"
)

const HLSMimeType = "application/x-mpegURL"

var (
	ErrNotFound          = errors.New("not found")
	ErrMalformedSources  = errors.New("malformed video sources")
	ErrNoHLSSource       = errors.New("no HLS video sources found")
	ErrNoVideoSources    = errors.New("could not find video sources in the page")
	errEmptyProbeResults = errors.New("no probes")
)

// A Probe looks in one place in a page. Probes are pure, so they can be tried in any order.
type Probe[T any] struct {
	Name string
	Run  func(doc *goquery.Document) generic.Result[T]
}

// FirstOf runs probes in order and returns the first success. If every probe fails, all of the failures are returned.
func FirstOf[T any](doc *goquery.Document, probes ...Probe[T]) (T, error) {
	var result error
	for _, p := range probes {
		r := p.Run(doc)
		if r.IsOk() {
			return r.Value, nil
		}
		result = multierror.Append(result, multierror.Prefix(r.Error, fmt.Sprintf("[%s]", p.Name)))
	}
	if result == nil {
		result = errEmptyProbeResults
	}
	var zero T
	return zero, result
}

// Text returns the trimmed text of the first element matching selector, if it is not empty.
func Text(doc *goquery.Document, selector string) generic.Option[string] {
	text := strings.TrimSpace(doc.Find(selector).First().Text())
	return generic.SomeIf(text, text != "")
}

// Attr returns an attribute of the first element matching selector that has it.
func Attr(doc *goquery.Document, selector string, attr string) generic.Option[string] {
	value, ok := doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		_, has := s.Attr(attr)
		return has
	}).First().Attr(attr)
	return generic.SomeIf(value, ok)
}

// MediaSource is one entry of a video player's source list.
type MediaSource struct {
	Src  string `json:"src"`
	Type string `json:"type"`
}

// ParseSources decodes a JSON array of media sources. Unknown fields are ignored, but every entry must be an object.
func ParseSources(data string) ([]MediaSource, error) {
	var sources []MediaSource
	if err := json.Unmarshal([]byte(data), &sources); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSources, err)
	}
	return sources, nil
}

// SelectHLS returns the URL of the first HLS source.
func SelectHLS(sources []MediaSource) (string, error) {
	for _, s := range sources {
		if s.Type == HLSMimeType && s.Src != "" {
			return s.Src, nil
		}
	}
	return "", ErrNoHLSSource
}

// HLSSourceFromJSON is ParseSources followed by SelectHLS.
func HLSSourceFromJSON(data string) generic.Result[string] {
	sources, err := ParseSources(data)
	if err != nil {
		return generic.Err[string](err)
	}
	return generic.NewResult(SelectHLS(sources))
}

// HLSSourceFromAttr is a Probe body reading a JSON source list from an element attribute.
func HLSSourceFromAttr(selector string, attr string) func(doc *goquery.Document) generic.Result[string] {
	return func(doc *goquery.Document) generic.Result[string] {
		data, ok := Attr(doc, selector, attr).Get()
		if !ok {
			return generic.Err[string](fmt.Errorf("%s[%s]: %w", selector, attr, ErrNotFound))
		}
		return HLSSourceFromJSON(data)
	}
}
