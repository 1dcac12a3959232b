// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate turns a research topic or structured clinical question
// into a small batch of distinct provider queries, optionally biased by an
// expansion policy.
// Implements: prd010-orchestration (R1.1-R1.6);
//
//	docs/ARCHITECTURE § Query Generator.
package generate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/litsearch/pkg/types"
)

// ErrEmptyTopic is returned when neither free text nor any decomposition
// slot is provided. Nothing is dispatched in that case.
var ErrEmptyTopic = errors.New("empty topic: provide free text or at least one PICO slot")

// ErrPolicyUnproductive is returned when an expansion policy yields no
// distinct queries for the topic. The expansion loop moves on to the next
// untried policy instead of stopping.
var ErrPolicyUnproductive = errors.New("expansion policy produced no queries for this topic")

// yearNow returns the current year. Declared as a var so tests can pin it.
var yearNow = func() int { return time.Now().Year() }

const (
	minBatch = 3
	maxBatch = 8
)

// Topic is the generator input: either a free-text research question or a
// structured decomposition with named slots, each optional.
type Topic struct {
	FreeText     string
	Population   string
	Intervention string
	Comparison   string
	Outcome      string

	// Filters seed every generated query and are relaxed or tightened by
	// expansion policies.
	Filters types.QueryFilters
}

// IsEmpty reports whether the topic contains no searchable terms.
func (t Topic) IsEmpty() bool {
	return t.FreeText == "" && t.Population == "" && t.Intervention == "" &&
		t.Comparison == "" && t.Outcome == ""
}

// slots returns the non-empty decomposition slots in PICO order.
func (t Topic) slots() []slot {
	var out []slot
	for _, s := range []slot{
		{"population", t.Population},
		{"intervention", t.Intervention},
		{"comparison", t.Comparison},
		{"outcome", t.Outcome},
	} {
		if s.text != "" {
			out = append(out, s)
		}
	}
	return out
}

type slot struct {
	name string
	text string
}

// synonyms maps domain terms to lateral substitutes. Used both to pad seed
// batches and to drive the lateral policy.
var synonyms = map[string][]string{
	"efficacy":  {"effectiveness"},
	"outcome":   {"result", "endpoint"},
	"treatment": {"therapy"},
	"therapy":   {"treatment"},
	"drug":      {"medication", "agent"},
	"trial":     {"study"},
	"cancer":    {"neoplasm", "carcinoma"},
	"children":  {"pediatric"},
	"elderly":   {"older adults"},
	"risk":      {"hazard"},
	"mortality": {"survival"},
}

// Generate produces an ordered batch of 3-8 distinct queries for the topic.
// decision is nil for the initial seed batch; the expansion controller
// passes its decision to bias query construction. Drafts that duplicate an
// earlier one in both normalized text and filters are silently dropped.
func Generate(topic Topic, decision *types.ExpansionDecision) ([]types.Query, error) {
	if topic.IsEmpty() {
		return nil, ErrEmptyTopic
	}

	policy := types.OriginSeed
	if decision != nil {
		policy = decision.Policy
	}

	var drafts []draft
	switch policy {
	case types.OriginSeed:
		drafts = seedDrafts(topic)
	case types.OriginBroaden:
		drafts = broadenDrafts(topic)
	case types.OriginNarrow:
		drafts = narrowDrafts(topic)
	case types.OriginLateral:
		drafts = lateralDrafts(topic)
	case types.OriginTemporal:
		drafts = temporalDrafts(topic)
	case types.OriginCitation:
		return nil, fmt.Errorf("citation policy is handled by the citation explorer, not the generator")
	default:
		return nil, fmt.Errorf("unknown expansion policy %q", policy)
	}

	seen := make(map[string]bool)
	var queries []types.Query
	for _, d := range drafts {
		if Normalize(d.text) == "" {
			continue
		}
		key := d.key()
		if seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, types.Query{
			ID:      uuid.NewString(),
			Text:    strings.Join(strings.Fields(d.text), " "),
			Filters: d.filters,
			Origin:  policy,
			Slots:   d.slots,
		})
		if len(queries) == maxBatch {
			break
		}
	}

	if len(queries) == 0 {
		if decision == nil {
			return nil, ErrEmptyTopic
		}
		return nil, fmt.Errorf("%s: %w", policy, ErrPolicyUnproductive)
	}
	return queries, nil
}

type draft struct {
	text    string
	filters types.QueryFilters
	slots   []string
}

// key identifies a draft for dedup: normalized text plus the filter set, so
// same-text drafts with different restrictions both survive.
func (d draft) key() string {
	return fmt.Sprintf("%s|%d|%d|%s|%s",
		Normalize(d.text), d.filters.MinYear, d.filters.MaxYear,
		strings.Join(d.filters.ArticleTypes, ","), strings.Join(d.filters.Exclusions, ","))
}

// core returns the topic's full search text and the slot names it combines.
func core(topic Topic) (string, []string) {
	if len(topic.slots()) == 0 {
		return topic.FreeText, []string{"free_text"}
	}
	var parts, names []string
	for _, s := range topic.slots() {
		parts = append(parts, s.text)
		names = append(names, s.name)
	}
	if topic.FreeText != "" {
		parts = append([]string{topic.FreeText}, parts...)
		names = append([]string{"free_text"}, names...)
	}
	return strings.Join(parts, " "), names
}

// seedDrafts builds the initial batch: the full combination, pairwise slot
// combinations, and synonym variants to reach the minimum batch size. Topics
// whose words carry no synonyms are padded with an exact-phrase variant and
// drop-one-word variants so the batch never falls below the minimum.
func seedDrafts(topic Topic) []draft {
	coreText, coreSlots := core(topic)
	drafts := []draft{{text: coreText, filters: topic.Filters, slots: coreSlots}}

	slots := topic.slots()
	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			drafts = append(drafts, draft{
				text:    slots[i].text + " " + slots[j].text,
				filters: topic.Filters,
				slots:   []string{slots[i].name, slots[j].name},
			})
		}
	}

	// Pad with synonym variants until the minimum batch size is reachable
	// after normalization dedup.
	drafts = append(drafts, substituted(coreText, topic.Filters, 2*minBatch)...)

	// A recent-years variant gives the batch temporal spread even before
	// any expansion runs. The year marker keeps its text distinct from the
	// core query under normalization.
	recent := topic.Filters
	recent.MinYear = yearNow() - 5
	drafts = append(drafts, draft{
		text:    fmt.Sprintf("%s %d-%d", coreText, recent.MinYear, yearNow()),
		filters: recent,
		slots:   append(append([]string{}, coreSlots...), "recent"),
	})

	// Deterministic padding, consumed only when the variants above cannot
	// fill the batch. The quotes keep the exact-phrase text distinct under
	// normalization.
	if words := strings.Fields(coreText); len(words) > 0 {
		drafts = append(drafts, draft{
			text:    `"` + coreText + `"`,
			filters: topic.Filters,
			slots:   append(append([]string{}, coreSlots...), "exact_phrase"),
		})
		if len(words) > 1 {
			for i, w := range words {
				variant := append(append([]string{}, words[:i]...), words[i+1:]...)
				drafts = append(drafts, draft{
					text:    strings.Join(variant, " "),
					filters: topic.Filters,
					slots:   append(append([]string{}, coreSlots...), "drop:"+w),
				})
			}
		}
	}

	return drafts
}

// broadenDrafts relaxes filters and drops exclusions, querying each slot on
// its own so fewer terms constrain the match.
func broadenDrafts(topic Topic) []draft {
	relaxed := types.QueryFilters{}
	coreText, coreSlots := core(topic)

	drafts := []draft{{text: coreText, filters: relaxed, slots: coreSlots}}
	for _, s := range topic.slots() {
		drafts = append(drafts, draft{text: s.text, filters: relaxed, slots: []string{s.name}})
	}
	if topic.FreeText != "" && len(topic.slots()) > 0 {
		drafts = append(drafts, draft{text: topic.FreeText, filters: relaxed, slots: []string{"free_text"}})
	}
	drafts = append(drafts, substituted(coreText, relaxed, minBatch)...)
	return drafts
}

// narrowDrafts adds restrictions: article-type filters and a tighter year
// window on the full combination.
func narrowDrafts(topic Topic) []draft {
	coreText, coreSlots := core(topic)

	tight := topic.Filters
	if tight.MinYear == 0 || tight.MinYear < yearNow()-5 {
		tight.MinYear = yearNow() - 5
	}

	journal := tight
	journal.ArticleTypes = appendMissing(journal.ArticleTypes, "journal-article")

	review := tight
	review.ArticleTypes = appendMissing(review.ArticleTypes, "review")

	rct := tight
	rct.Exclusions = appendMissing(rct.Exclusions, "editorial")

	return []draft{
		{text: coreText, filters: journal, slots: append(append([]string{}, coreSlots...), "journal")},
		{text: coreText, filters: review, slots: append(append([]string{}, coreSlots...), "review")},
		{text: coreText, filters: rct, slots: append(append([]string{}, coreSlots...), "no-editorial")},
	}
}

// lateralDrafts substitutes domain synonyms for core concepts rather than
// adding terms.
func lateralDrafts(topic Topic) []draft {
	coreText, _ := core(topic)
	drafts := substituted(coreText, topic.Filters, maxBatch)
	if len(drafts) == 0 {
		// No known synonyms: fall back to reordered slot text, which still
		// normalizes differently for multi-slot topics.
		slots := topic.slots()
		for i := len(slots) - 1; i >= 0; i-- {
			drafts = append(drafts, draft{
				text:    slots[i].text,
				filters: topic.Filters,
				slots:   []string{slots[i].name, "lateral"},
			})
		}
	}
	return drafts
}

// temporalDrafts partitions the year range into disjoint bins, one query
// per bin.
func temporalDrafts(topic Topic) []draft {
	coreText, coreSlots := core(topic)

	maxYear := topic.Filters.MaxYear
	if maxYear == 0 {
		maxYear = yearNow()
	}
	minYear := topic.Filters.MinYear
	if minYear == 0 {
		minYear = maxYear - 11
	}

	bins := 4
	if span := maxYear - minYear + 1; span < bins {
		bins = span
	}

	span := maxYear - minYear + 1
	var drafts []draft
	for b := 0; b < bins; b++ {
		lo := minYear + b*span/bins
		hi := minYear + (b+1)*span/bins - 1
		f := topic.Filters
		f.MinYear, f.MaxYear = lo, hi
		drafts = append(drafts, draft{
			// Bin label keeps the texts distinct after normalization while
			// the search terms stay identical.
			text:    fmt.Sprintf("%s %d-%d", coreText, lo, hi),
			filters: f,
			slots:   append(append([]string{}, coreSlots...), fmt.Sprintf("years:%d-%d", lo, hi)),
		})
	}
	return drafts
}

// substituted returns up to limit drafts with one synonym substituted per
// draft, tagged with the substitution that produced them.
func substituted(text string, filters types.QueryFilters, limit int) []draft {
	var drafts []draft
	words := strings.Fields(strings.ToLower(text))
	for i, w := range words {
		alts, ok := synonyms[w]
		if !ok {
			continue
		}
		for _, alt := range alts {
			variant := make([]string, len(words))
			copy(variant, words)
			variant[i] = alt
			drafts = append(drafts, draft{
				text:    strings.Join(variant, " "),
				filters: filters,
				slots:   []string{"synonym:" + w + "=" + alt},
			})
			if len(drafts) == limit {
				return drafts
			}
		}
	}
	return drafts
}

// Normalize lowercases and collapses whitespace so textually identical
// queries dedup within a batch.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func appendMissing(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(append([]string{}, list...), v)
}
