// Package retrieve selects the asset records and knowledge base passages
// relevant to a question. Relevance is plain keyword matching: no embeddings,
// no network, just deterministic term overlap against the in-memory stores.
package retrieve

import (
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/fabfab/asset-query/store"
)

const (
	defaultMaxAssets   = 5
	defaultMaxSections = 3

	// Default scoring weights. A whole-question substring hit is worth more
	// than any single overlapping term; both are tunable via Options.
	defaultTermWeight   = 1
	defaultPhraseWeight = 3
)

// ScoredAsset pairs a matched record with its relevance score.
type ScoredAsset struct {
	Record store.AssetRecord
	Score  int
}

type ScoredSection struct {
	Section store.KnowledgeSection
	Score   int
}

// Context is the per-query retrieval result, ordered by descending score.
// It is a fresh value per question and is discarded once the query is done.
type Context struct {
	Assets   []ScoredAsset
	Sections []ScoredSection
}

func (c Context) Empty() bool {
	return len(c.Assets) == 0 && len(c.Sections) == 0
}

// Items returns the number of retrieved items of both kinds.
func (c Context) Items() int {
	return len(c.Assets) + len(c.Sections)
}

type Options struct {
	MaxAssets    int
	MaxSections  int
	TermWeight   int
	PhraseWeight int
}

type Retriever struct {
	assets *store.AssetStore
	know   *store.KnowledgeStore
	opts   Options
	logger *log.Logger
}

func New(assets *store.AssetStore, know *store.KnowledgeStore, opts Options, logger *log.Logger) *Retriever {
	if opts.MaxAssets <= 0 {
		opts.MaxAssets = defaultMaxAssets
	}
	if opts.MaxSections <= 0 {
		opts.MaxSections = defaultMaxSections
	}
	if opts.TermWeight <= 0 {
		opts.TermWeight = defaultTermWeight
	}
	if opts.PhraseWeight <= 0 {
		opts.PhraseWeight = defaultPhraseWeight
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Retriever{assets: assets, know: know, opts: opts, logger: logger}
}

// Retrieve scores every record and passage against the question and returns
// the top matches. Zero matches yield an empty Context, never an error; the
// prompt assembler states the no-context case explicitly downstream.
func (r *Retriever) Retrieve(question string) Context {
	terms := Tokenize(question)
	phrase := normalizePhrase(question)

	var ctx Context
	if len(terms) == 0 && phrase == "" {
		return ctx
	}

	for rec := range r.assets.All() {
		if score := r.scoreText(assetText(rec), terms, phrase); score > 0 {
			ctx.Assets = append(ctx.Assets, ScoredAsset{Record: rec, Score: score})
		}
	}
	for sec := range r.know.All() {
		if score := r.scoreText(sectionText(sec), terms, phrase); score > 0 {
			ctx.Sections = append(ctx.Sections, ScoredSection{Section: sec, Score: score})
		}
	}

	// Descending score, ascending id on ties, so identical inputs always
	// produce the identical ordering.
	sort.SliceStable(ctx.Assets, func(i, j int) bool {
		if ctx.Assets[i].Score != ctx.Assets[j].Score {
			return ctx.Assets[i].Score > ctx.Assets[j].Score
		}
		return ctx.Assets[i].Record.ID < ctx.Assets[j].Record.ID
	})
	sort.SliceStable(ctx.Sections, func(i, j int) bool {
		if ctx.Sections[i].Score != ctx.Sections[j].Score {
			return ctx.Sections[i].Score > ctx.Sections[j].Score
		}
		return ctx.Sections[i].Section.ID < ctx.Sections[j].Section.ID
	})

	if len(ctx.Assets) > r.opts.MaxAssets {
		ctx.Assets = ctx.Assets[:r.opts.MaxAssets]
	}
	if len(ctx.Sections) > r.opts.MaxSections {
		ctx.Sections = ctx.Sections[:r.opts.MaxSections]
	}

	r.logger.Debug("retrieved context", "assets", len(ctx.Assets), "sections", len(ctx.Sections), "terms", len(terms))
	return ctx
}

// scoreText counts the distinct question terms present as whole words in
// text, then adds the phrase bonus when the entire normalized question
// appears as a substring.
func (r *Retriever) scoreText(text string, terms []string, phrase string) int {
	words := wordSet(text)

	score := 0
	for _, term := range terms {
		if _, ok := words[term]; ok {
			score += r.opts.TermWeight
		}
	}
	if phrase != "" && strings.Contains(text, phrase) {
		score += r.opts.PhraseWeight
	}
	return score
}

// assetText is the searchable rendering of a record: its id and field
// values. Field names are deliberately excluded; a question mentioning
// "condition" should not match every record that has a Condition column.
func assetText(rec store.AssetRecord) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(rec.ID))
	for _, name := range rec.FieldNames() {
		sb.WriteByte(' ')
		sb.WriteString(strings.ToLower(rec.Fields[name]))
	}
	return sb.String()
}

func sectionText(sec store.KnowledgeSection) string {
	return strings.ToLower(sec.ID + " " + sec.Title + " " + sec.Body)
}

func wordSet(text string) map[string]struct{} {
	words := splitWords(text)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
