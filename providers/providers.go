// Package providers registers every site provider with the default registry.
package providers

import (
	"github.com/alanbriolat/elonet-archiver"
	"github.com/alanbriolat/elonet-archiver/providers/elonetplus"
	_ "github.com/alanbriolat/elonet-archiver/providers/finna"
)

// FallbackName is the provider used for pages on unknown hosts. They are assumed to use the elonetplus.fi layout.
const FallbackName = "fallback"

func init() {
	elonet_archiver.DefaultProviderRegistry.MustAdd(elonet_archiver.Provider{
		Name:      FallbackName,
		Site:      elonet_archiver.SiteElonetPlus,
		Match:     elonet_archiver.AnyHost,
		Extractor: elonet_archiver.ExtractorFunc(elonetplus.Extract),
		Priority:  elonet_archiver.PriorityLowest,
	})
}
