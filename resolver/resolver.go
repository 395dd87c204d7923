// Package resolver turns raw user strings ("apple", "euro to dollar", "PST")
// into canonical entity ids with a confidence score and a live-data category.
// Resolution is pure dictionary lookup plus syntactic fallbacks; no I/O.
package resolver

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/emberloop/ember/providers"
)

// Version identifies the dictionary revision reported in traces.
const Version = "1.0.0"

// EntityType is the coarse type tag the extractor attaches to a raw string.
type EntityType string

const (
	TypeTicker       EntityType = "ticker"
	TypeCrypto       EntityType = "crypto"
	TypeCurrency     EntityType = "currency"
	TypeCurrencyPair EntityType = "currency_pair"
	TypeLocation     EntityType = "location"
	TypeTimezone     EntityType = "timezone"
	TypeIndex        EntityType = "index"
	TypeCommodity    EntityType = "commodity"
)

// Status reports how resolution of a single entity ended.
type Status string

const (
	StatusResolved    Status = "resolved"
	StatusAmbiguous   Status = "ambiguous"
	StatusNotFound    Status = "not_found"
	StatusUnsupported Status = "unsupported"
	StatusInvalid     Status = "invalid"
)

// Confidence tiers per match method.
const (
	confExact      = 0.95
	confPatternLo  = 0.8
	confPatternHi  = 0.9
	confPartialLo  = 0.7
	confPartialHi  = 0.9
	minPartialRune = 3
)

// Metadata carries optional per-entity details for downstream cards.
type Metadata struct {
	// Exchange is the listing venue of a ticker.
	Exchange string `json:"exchange,omitempty"`
	// Country is the ISO country code of a ticker, index, or location.
	Country string `json:"country,omitempty"`
	// TimezoneID is the IANA zone of a location or timezone entity.
	TimezoneID string `json:"timezoneId,omitempty"`
	// CurrencyCode is the ISO code of a currency entity.
	CurrencyCode string `json:"currencyCode,omitempty"`
}

// ResolvedEntity is the outcome of resolving one raw string.
type ResolvedEntity struct {
	// Raw is the input string as received.
	Raw string `json:"raw"`
	// Type is the coarse type tag the input carried.
	Type EntityType `json:"type"`
	// Status reports the resolution outcome.
	Status Status `json:"status"`
	// CanonicalID is the id providers fetch by. Empty unless resolved or
	// ambiguous.
	CanonicalID string `json:"canonicalId,omitempty"`
	// DisplayName is the human-readable name of the entity.
	DisplayName string `json:"displayName,omitempty"`
	// Category routes the entity to a provider.
	Category providers.Category `json:"category,omitempty"`
	// Confidence is in [0,1]; exact alias hits score 0.95.
	Confidence float64 `json:"confidence"`
	// Candidates lists the competing canonical ids of an ambiguous match.
	Candidates []string `json:"candidates,omitempty"`
	// Metadata carries optional entity details.
	Metadata Metadata `json:"metadata,omitempty"`
}

// Input is one raw string to resolve.
type Input struct {
	Raw  string     `json:"raw"`
	Type EntityType `json:"type"`
}

// Trace records the timings and counts of one ResolveEntities call.
type Trace struct {
	OriginalQuery    string `json:"originalQuery"`
	ExtractionTimeMs int64  `json:"extractionTimeMs"`
	ResolutionTimeMs int64  `json:"resolutionTimeMs"`
	ExtractedCount   int    `json:"extractedCount"`
	ResolvedCount    int    `json:"resolvedCount"`
	Method           string `json:"method"`
	ResolverVersion  string `json:"resolverVersion"`
}

// Result is the aggregate outcome of ResolveEntities: the full ordered list
// plus status partitions and a trace.
type Result struct {
	Entities  []ResolvedEntity `json:"entities"`
	Resolved  []ResolvedEntity `json:"resolved"`
	Ambiguous []ResolvedEntity `json:"ambiguous"`
	Failed    []ResolvedEntity `json:"failed"`
	Trace     Trace            `json:"trace"`
}

// Request bundles the inputs to ResolveEntities. ExtractionTime is how long
// the caller spent extracting the inputs from OriginalQuery; it is echoed in
// the trace.
type Request struct {
	OriginalQuery  string
	Inputs         []Input
	ExtractionTime time.Duration
}

// Resolver resolves raw strings against the static dictionaries. The zero
// value is not usable; call New.
type Resolver struct {
	clock func() time.Time
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithClock overrides the trace time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Resolver) { r.clock = clock }
}

// New builds a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	tickerPattern   = regexp.MustCompile(`^[A-Z]{1,5}$`)
	cryptoPattern   = regexp.MustCompile(`^[A-Z]{2,6}$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	zonePattern     = regexp.MustCompile(`^[A-Za-z_]+/[A-Za-z_+\-]+$`)
	pairPattern     = regexp.MustCompile(`^([A-Z]{3})[/\-]?([A-Z]{3})$`)
)

// Resolve maps one raw string of the given type to a ResolvedEntity. It is
// pure and idempotent: equal inputs always yield equal outputs.
func (r *Resolver) Resolve(raw string, typ EntityType) ResolvedEntity {
	out := ResolvedEntity{Raw: raw, Type: typ}
	norm := strings.ToUpper(strings.TrimSpace(raw))
	if norm == "" {
		out.Status = StatusInvalid
		return out
	}
	switch typ {
	case TypeTicker:
		return resolveTicker(out, norm)
	case TypeCrypto:
		return resolveCrypto(out, norm)
	case TypeCurrency:
		return resolveCurrency(out, norm)
	case TypeCurrencyPair:
		return resolveCurrencyPair(out, norm)
	case TypeLocation:
		return resolveLocation(out, norm)
	case TypeTimezone:
		return resolveTimezone(out, norm)
	case TypeIndex:
		return resolveIndex(out, norm)
	case TypeCommodity:
		return resolveCommodity(out, norm)
	default:
		out.Status = StatusUnsupported
		return out
	}
}

// ResolveEntities resolves every input and partitions the results by status.
func (r *Resolver) ResolveEntities(req Request) Result {
	start := r.clock()
	res := Result{Entities: make([]ResolvedEntity, 0, len(req.Inputs))}
	for _, in := range req.Inputs {
		e := r.Resolve(in.Raw, in.Type)
		res.Entities = append(res.Entities, e)
		switch e.Status {
		case StatusResolved:
			res.Resolved = append(res.Resolved, e)
		case StatusAmbiguous:
			res.Ambiguous = append(res.Ambiguous, e)
		default:
			res.Failed = append(res.Failed, e)
		}
	}
	res.Trace = Trace{
		OriginalQuery:    req.OriginalQuery,
		ExtractionTimeMs: req.ExtractionTime.Milliseconds(),
		ResolutionTimeMs: r.clock().Sub(start).Milliseconds(),
		ExtractedCount:   len(req.Inputs),
		ResolvedCount:    len(res.Resolved),
		Method:           "static_dictionary",
		ResolverVersion:  Version,
	}
	return res
}

func resolveTicker(out ResolvedEntity, norm string) ResolvedEntity {
	if info, ok := tickers[norm]; ok {
		out.Status = StatusResolved
		out.CanonicalID = info.symbol
		out.DisplayName = info.name
		out.Category = providers.CategoryMarket
		out.Confidence = confExact
		out.Metadata = Metadata{Exchange: info.exchange, Country: info.country}
		return out
	}
	if tickerPattern.MatchString(norm) {
		// Plausible symbol outside the dictionary; pass it through so the
		// provider can reject it with a live lookup.
		out.Status = StatusResolved
		out.CanonicalID = norm
		out.DisplayName = norm
		out.Category = providers.CategoryMarket
		out.Confidence = confPatternLo
		return out
	}
	return partialMatch(out, norm, providers.CategoryMarket, tickerAliases())
}

func resolveCrypto(out ResolvedEntity, norm string) ResolvedEntity {
	if info, ok := cryptos[norm]; ok {
		out.Status = StatusResolved
		out.CanonicalID = info.symbol
		out.DisplayName = info.name
		out.Category = providers.CategoryCrypto
		out.Confidence = confExact
		return out
	}
	if cryptoPattern.MatchString(norm) {
		out.Status = StatusResolved
		out.CanonicalID = norm
		out.DisplayName = norm
		out.Category = providers.CategoryCrypto
		out.Confidence = confPatternLo
		return out
	}
	return partialMatch(out, norm, providers.CategoryCrypto, cryptoAliases())
}

func resolveCurrency(out ResolvedEntity, norm string) ResolvedEntity {
	if info, ok := currencies[norm]; ok {
		out.Status = StatusResolved
		out.CanonicalID = info.code
		out.DisplayName = info.name
		out.Category = providers.CategoryFX
		out.Confidence = confExact
		out.Metadata = Metadata{CurrencyCode: info.code}
		return out
	}
	if code, ok := currencyNames[norm]; ok {
		info := currencies[code]
		out.Status = StatusResolved
		out.CanonicalID = info.code
		out.DisplayName = info.name
		out.Category = providers.CategoryFX
		out.Confidence = confExact
		out.Metadata = Metadata{CurrencyCode: info.code}
		return out
	}
	if currencyPattern.MatchString(norm) {
		out.Status = StatusResolved
		out.CanonicalID = norm
		out.DisplayName = norm
		out.Category = providers.CategoryFX
		out.Confidence = confPatternLo
		out.Metadata = Metadata{CurrencyCode: norm}
		return out
	}
	return partialMatch(out, norm, providers.CategoryFX, currencyAliases())
}

func resolveCurrencyPair(out ResolvedEntity, norm string) ResolvedEntity {
	base, quote, conf, ok := parsePair(norm)
	if !ok {
		out.Status = StatusNotFound
		return out
	}
	out.Status = StatusResolved
	out.CanonicalID = base + "/" + quote
	out.DisplayName = displayCurrency(base) + " / " + displayCurrency(quote)
	out.Category = providers.CategoryFX
	out.Confidence = conf
	return out
}

// parsePair recognizes XXX/YYY, XXX-YYY, XXXYYY, "XXX to YYY", and named
// forms like "EURO TO DOLLAR". Pairs of known codes score as exact matches;
// syntactically valid unknown codes score lower.
func parsePair(norm string) (base, quote string, conf float64, ok bool) {
	if m := pairPattern.FindStringSubmatch(norm); m != nil {
		return scorePair(m[1], m[2])
	}
	var left, right string
	switch {
	case strings.Contains(norm, " TO "):
		parts := strings.SplitN(norm, " TO ", 2)
		left, right = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	case strings.Contains(norm, "/"):
		parts := strings.SplitN(norm, "/", 2)
		left, right = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	case strings.Contains(norm, "-"):
		parts := strings.SplitN(norm, "-", 2)
		left, right = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	default:
		return "", "", 0, false
	}
	base, okBase := currencyCode(left)
	quote, okQuote := currencyCode(right)
	if !okBase || !okQuote {
		return "", "", 0, false
	}
	return scorePair(base, quote)
}

func scorePair(base, quote string) (string, string, float64, bool) {
	_, baseKnown := currencies[base]
	_, quoteKnown := currencies[quote]
	if baseKnown && quoteKnown {
		return base, quote, confExact, true
	}
	return base, quote, confPatternLo, true
}

// currencyCode resolves a side of a pair: an ISO code directly, or a spoken
// name through the name table.
func currencyCode(s string) (string, bool) {
	if currencyPattern.MatchString(s) {
		return s, true
	}
	if code, ok := currencyNames[s]; ok {
		return code, true
	}
	return "", false
}

func displayCurrency(code string) string {
	if info, ok := currencies[code]; ok {
		return info.name
	}
	return code
}

func resolveLocation(out ResolvedEntity, norm string) ResolvedEntity {
	if info, ok := locations[norm]; ok {
		out.Status = StatusResolved
		out.CanonicalID = info.id
		out.DisplayName = info.name
		out.Category = providers.CategoryWeather
		out.Confidence = confExact
		out.Metadata = Metadata{Country: info.country, TimezoneID: info.timezone}
		return out
	}
	out = partialMatch(out, norm, providers.CategoryWeather, locationAliases())
	if out.Status == StatusResolved {
		// Partial matches carry the metadata of the canonical entry.
		for _, info := range locations {
			if info.id == out.CanonicalID {
				out.DisplayName = info.name
				out.Metadata = Metadata{Country: info.country, TimezoneID: info.timezone}
				break
			}
		}
	}
	return out
}

func resolveTimezone(out ResolvedEntity, norm string) ResolvedEntity {
	if zone, ok := timezoneAliases[norm]; ok {
		out.Status = StatusResolved
		out.CanonicalID = zone
		out.DisplayName = zone
		out.Category = providers.CategoryTime
		out.Confidence = confExact
		out.Metadata = Metadata{TimezoneID: zone}
		return out
	}
	// Full IANA ids keep their original casing.
	trimmed := strings.TrimSpace(out.Raw)
	if zonePattern.MatchString(trimmed) {
		if _, err := time.LoadLocation(trimmed); err == nil {
			out.Status = StatusResolved
			out.CanonicalID = trimmed
			out.DisplayName = trimmed
			out.Category = providers.CategoryTime
			out.Confidence = confPatternHi
			out.Metadata = Metadata{TimezoneID: trimmed}
			return out
		}
	}
	// City names double as timezone queries ("time in tokyo").
	if info, ok := locations[norm]; ok {
		out.Status = StatusResolved
		out.CanonicalID = info.timezone
		out.DisplayName = info.timezone
		out.Category = providers.CategoryTime
		out.Confidence = confPatternLo
		out.Metadata = Metadata{TimezoneID: info.timezone}
		return out
	}
	out.Status = StatusNotFound
	return out
}

func resolveIndex(out ResolvedEntity, norm string) ResolvedEntity {
	if info, ok := indices[norm]; ok {
		out.Status = StatusResolved
		out.CanonicalID = info.symbol
		out.DisplayName = info.name
		out.Category = providers.CategoryMarket
		out.Confidence = confExact
		out.Metadata = Metadata{Country: info.country}
		return out
	}
	return partialMatch(out, norm, providers.CategoryMarket, indexAliases())
}

func resolveCommodity(out ResolvedEntity, norm string) ResolvedEntity {
	if info, ok := commodities[norm]; ok {
		out.Status = StatusResolved
		out.CanonicalID = info.symbol
		out.DisplayName = info.name
		out.Category = providers.CategoryMarket
		out.Confidence = confExact
		return out
	}
	return partialMatch(out, norm, providers.CategoryMarket, commodityAliases())
}

// aliasEntry pairs an alias with the canonical id and display name it maps to.
type aliasEntry struct {
	alias string
	id    string
	name  string
}

// partialMatch scans aliases for containment either way. One distinct
// canonical id resolves; several make the result ambiguous with the best
// candidate first. Confidence scales with how much of the alias the input
// covers, clamped to [0.7, 0.9].
func partialMatch(out ResolvedEntity, norm string, cat providers.Category, aliases []aliasEntry) ResolvedEntity {
	if len([]rune(norm)) < minPartialRune {
		out.Status = StatusNotFound
		return out
	}
	type hit struct {
		id   string
		name string
		conf float64
	}
	best := map[string]hit{}
	for _, a := range aliases {
		if len([]rune(a.alias)) < minPartialRune {
			continue
		}
		var conf float64
		switch {
		case strings.Contains(a.alias, norm):
			conf = clampConf(float64(len(norm)) / float64(len(a.alias)))
		case strings.Contains(norm, a.alias):
			conf = clampConf(float64(len(a.alias)) / float64(len(norm)))
		default:
			continue
		}
		if prev, ok := best[a.id]; !ok || conf > prev.conf {
			best[a.id] = hit{id: a.id, name: a.name, conf: conf}
		}
	}
	switch len(best) {
	case 0:
		out.Status = StatusNotFound
		return out
	case 1:
		for _, h := range best {
			out.Status = StatusResolved
			out.CanonicalID = h.id
			out.DisplayName = h.name
			out.Category = cat
			out.Confidence = h.conf
		}
		return out
	default:
		var top hit
		ids := make([]string, 0, len(best))
		for _, h := range best {
			ids = append(ids, h.id)
			if h.conf > top.conf || (h.conf == top.conf && (top.id == "" || h.id < top.id)) {
				top = h
			}
		}
		// Deterministic candidate order: best first, rest sorted.
		rest := ids[:0]
		for _, id := range ids {
			if id != top.id {
				rest = append(rest, id)
			}
		}
		sort.Strings(rest)
		out.Status = StatusAmbiguous
		out.CanonicalID = top.id
		out.DisplayName = top.name
		out.Category = cat
		out.Confidence = top.conf
		out.Candidates = append([]string{top.id}, rest...)
		return out
	}
}

func clampConf(ratio float64) float64 {
	conf := confPartialLo + ratio*(confPartialHi-confPartialLo)
	if conf < confPartialLo {
		return confPartialLo
	}
	if conf > confPartialHi {
		return confPartialHi
	}
	return conf
}

func tickerAliases() []aliasEntry {
	out := make([]aliasEntry, 0, len(tickers))
	for alias, info := range tickers {
		out = append(out, aliasEntry{alias: alias, id: info.symbol, name: info.name})
	}
	return out
}

func cryptoAliases() []aliasEntry {
	out := make([]aliasEntry, 0, len(cryptos))
	for alias, info := range cryptos {
		out = append(out, aliasEntry{alias: alias, id: info.symbol, name: info.name})
	}
	return out
}

func currencyAliases() []aliasEntry {
	out := make([]aliasEntry, 0, len(currencies)+len(currencyNames))
	for alias, info := range currencies {
		out = append(out, aliasEntry{alias: alias, id: info.code, name: info.name})
	}
	for alias, code := range currencyNames {
		info := currencies[code]
		out = append(out, aliasEntry{alias: alias, id: info.code, name: info.name})
	}
	return out
}

func locationAliases() []aliasEntry {
	out := make([]aliasEntry, 0, len(locations))
	for alias, info := range locations {
		out = append(out, aliasEntry{alias: alias, id: info.id, name: info.name})
	}
	return out
}

func indexAliases() []aliasEntry {
	out := make([]aliasEntry, 0, len(indices))
	for alias, info := range indices {
		out = append(out, aliasEntry{alias: alias, id: info.symbol, name: info.name})
	}
	return out
}

func commodityAliases() []aliasEntry {
	out := make([]aliasEntry, 0, len(commodities))
	for alias, info := range commodities {
		out = append(out, aliasEntry{alias: alias, id: info.symbol, name: info.name})
	}
	return out
}
