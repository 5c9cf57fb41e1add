package elonet_archiver

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/alanbriolat/elonet-archiver/generic"
)

var (
	ErrDuplicateProvider = errors.New("duplicate provider name")
	ErrInvalidProvider   = errors.New("invalid provider")
	ErrInvalidURL        = errors.New("invalid page URL")
	ErrNoMatch           = errors.New("no provider matched the input")
	ErrUnknownProvider   = errors.New("unknown provider")
)

var (
	PriorityHighest int16 = math.MinInt16
	PriorityDefault int16 = 0
	PriorityLowest  int16 = math.MaxInt16
)

var protocols = generic.NewSet("http", "https")

// MatchFunc returns nil if the provider can handle the page URL, otherwise an error saying why not.
type MatchFunc = func(*url.URL) error

// A Provider knows which pages belong to one site, and how to find the video in them.
type Provider struct {
	Name      string
	Site      SiteKind
	Match     MatchFunc
	Extractor Extractor
	// Priority of the matcher, lower (including negative) means matching earlier.
	Priority int16
}

// A Match is the result of a Provider successfully matching a URL.
type Match struct {
	ProviderName string
	Page         PageReference
	Extractor    Extractor
}

func newMatch(p *Provider, u *url.URL) *Match {
	return &Match{
		ProviderName: p.Name,
		Page:         PageReference{URL: u, Site: p.Site},
		Extractor:    p.Extractor,
	}
}

// A ProviderRegistry is a collection of Provider instances which can be used to try to match URLs.
type ProviderRegistry struct {
	providers   []*Provider
	providerMap map[string]*Provider
}

// Add registers a Provider with the ProviderRegistry. Provider.Name, Provider.Site, Provider.Match and
// Provider.Extractor must be set, and Provider.Name must be unique within the ProviderRegistry.
func (r *ProviderRegistry) Add(p Provider) error {
	if r.providerMap == nil {
		r.providerMap = make(map[string]*Provider)
	}
	if p.Name == "" || p.Site == "" || p.Match == nil || p.Extractor == nil {
		return ErrInvalidProvider
	}
	if _, ok := r.providerMap[p.Name]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateProvider, p.Name)
	}
	r.providerMap[p.Name] = &p
	r.providers = append(r.providers, r.providerMap[p.Name])
	r.sortByPriority()
	return nil
}

// GetPriority gets the priority of the named Provider. If ErrUnknownProvider is returned, the returned priority is the
// default priority.
func (r *ProviderRegistry) GetPriority(name string) (int16, error) {
	if p, ok := r.providerMap[name]; ok {
		return p.Priority, nil
	} else {
		return PriorityDefault, ErrUnknownProvider
	}
}

// List returns the names of registered providers in priority order.
func (r *ProviderRegistry) List() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name)
	}
	return names
}

// Match a page URL against each Provider in priority order. If nothing matches, the error wraps ErrNoMatch and lists
// each provider's reason.
func (r *ProviderRegistry) Match(s string) (*Match, error) {
	u, err := ParsePageURL(s)
	if err != nil {
		return nil, err
	}
	var result error
	for _, p := range r.providers {
		if err := p.Match(u); err == nil {
			return newMatch(p, u), nil
		} else {
			result = multierror.Append(result, multierror.Prefix(err, fmt.Sprintf("[%v]", p.Name)))
		}
	}
	if result == nil {
		return nil, ErrNoMatch
	}
	return nil, fmt.Errorf("%w: %v", ErrNoMatch, result)
}

// MatchWith will attempt to match a page URL against a specific provider.
func (r *ProviderRegistry) MatchWith(name string, s string) (*Match, error) {
	p, ok := r.providerMap[name]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownProvider, name)
	}
	u, err := ParsePageURL(s)
	if err != nil {
		return nil, err
	}
	if err := p.Match(u); err != nil {
		return nil, fmt.Errorf("%w: [%v] %v", ErrNoMatch, name, err)
	}
	return newMatch(p, u), nil
}

// MustAdd wraps Add but panics if there is an error.
func (r *ProviderRegistry) MustAdd(p Provider) {
	generic.Unwrap_(r.Add(p))
}

// SetPriority adjust the priority of a named Provider.
func (r *ProviderRegistry) SetPriority(name string, priority int16) error {
	if p, ok := r.providerMap[name]; ok {
		p.Priority = priority
		r.sortByPriority()
		return nil
	} else {
		return ErrUnknownProvider
	}
}

func (r *ProviderRegistry) sortByPriority() {
	sort.SliceStable(r.providers, func(i, j int) bool {
		return r.providers[i].Priority < r.providers[j].Priority
	})
}

var DefaultProviderRegistry ProviderRegistry

// ParsePageURL accepts only absolute http(s) URLs.
func ParsePageURL(s string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !protocols.Contains(strings.ToLower(u.Scheme)) {
		return nil, fmt.Errorf("%w: unknown URL scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

// HostContains matches URLs whose host contains any of the given domains.
func HostContains(domains ...string) MatchFunc {
	return func(u *url.URL) error {
		host := strings.ToLower(u.Hostname())
		for _, d := range domains {
			if strings.Contains(host, d) {
				return nil
			}
		}
		return fmt.Errorf("host %q is not one of %v", host, domains)
	}
}

// AnyHost matches every URL. It is meant for a lowest priority fallback.
func AnyHost(*url.URL) error {
	return nil
}
