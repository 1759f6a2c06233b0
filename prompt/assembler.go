// Package prompt turns a question and its retrieved context into the bounded
// message sequence sent to the completion service. Every context item is
// tagged with its identifier so the formatter can trace citations back.
package prompt

import (
	"fmt"
	"strings"

	"github.com/fabfab/asset-query/llm"
	"github.com/fabfab/asset-query/retrieve"
	"github.com/fabfab/asset-query/store"
)

// noContextNotice is rendered in place of the context block when retrieval
// found nothing, so the model states the gap instead of inventing records.
const noContextNotice = "No directly matching records were found in the asset register or knowledge base."

// Prompt is the assembled request payload: persona, serialized context and
// the raw question, plus the items that survived the budget for citation.
type Prompt struct {
	System   string
	Context  string
	Question string

	// Included lists what the context block actually contains after budget
	// enforcement; the response formatter cites against this, not against
	// everything retrieval returned.
	Included retrieve.Context
	Dropped  int
}

// Messages renders the prompt as an ordered conversation: system persona,
// prior turns, then the user message carrying context and question.
func (p Prompt) Messages(history []llm.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: p.System})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: p.userContent()})
	return messages
}

func (p Prompt) userContent() string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	sb.WriteString(p.Context)
	sb.WriteString("\n\nQuestion:\n")
	sb.WriteString(p.Question)
	sb.WriteString("\n\nAnswer the question from the context above. Cite the tags of every " +
		"asset and section you used, e.g. [Asset A-001] or [Section 4.2].")
	return sb.String()
}

type Assembler struct {
	role    string
	maxSize int
	counter Counter
}

// NewAssembler builds an assembler with the given persona text and context
// budget. maxSize is measured by counter (runes or tokens).
func NewAssembler(role string, maxSize int, counter Counter) *Assembler {
	if counter == nil {
		counter = RuneCounter{}
	}
	return &Assembler{role: role, maxSize: maxSize, counter: counter}
}

type contextItem struct {
	asset   bool
	id      string
	score   int
	text    string
	measure int
}

// Assemble serializes the retrieved context and enforces the budget by
// dropping whole items from the lowest-scored end. Items are never cut in
// the middle; a half-serialized record would produce broken citations.
func (a *Assembler) Assemble(rc retrieve.Context, question string) Prompt {
	items := make([]contextItem, 0, rc.Items())
	for _, sa := range rc.Assets {
		text := renderAsset(sa.Record)
		items = append(items, contextItem{asset: true, id: sa.Record.ID, score: sa.Score, text: text, measure: a.counter.Count(text)})
	}
	for _, ss := range rc.Sections {
		text := renderSection(ss.Section)
		items = append(items, contextItem{id: ss.Section.ID, score: ss.Score, text: text, measure: a.counter.Count(text)})
	}

	sep := a.counter.Count("\n")
	total := 0
	for _, it := range items {
		total += it.measure + sep
	}

	dropped := 0
	for total > a.maxSize && len(items) > 0 {
		i := lowestScored(items)
		total -= items[i].measure + sep
		items = append(items[:i], items[i+1:]...)
		dropped++
	}

	p := Prompt{System: a.role, Question: strings.TrimSpace(question), Dropped: dropped}
	if len(items) == 0 {
		p.Context = noContextNotice
		return p
	}

	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.text)
		if it.asset {
			p.Included.Assets = append(p.Included.Assets, scoredAsset(rc, it.id))
		} else {
			p.Included.Sections = append(p.Included.Sections, scoredSection(rc, it.id))
		}
	}
	p.Context = strings.Join(lines, "\n")
	return p
}

// lowestScored picks the index to drop next: the minimum score, and among
// equals the item serialized last, so truncation is deterministic.
func lowestScored(items []contextItem) int {
	best := 0
	for i := 1; i < len(items); i++ {
		if items[i].score <= items[best].score {
			best = i
		}
	}
	return best
}

func renderAsset(rec store.AssetRecord) string {
	parts := make([]string, 0, len(rec.Fields))
	for _, name := range rec.FieldNames() {
		parts = append(parts, fmt.Sprintf("%s: %s", name, rec.Fields[name]))
	}
	return fmt.Sprintf("[Asset %s] %s", rec.ID, strings.Join(parts, " | "))
}

func renderSection(sec store.KnowledgeSection) string {
	title := strings.TrimSpace(sec.Title)
	body := strings.TrimSpace(sec.Body)
	if title == "" {
		return fmt.Sprintf("[Section %s] %s", sec.ID, body)
	}
	return fmt.Sprintf("[Section %s] %s: %s", sec.ID, title, body)
}

func scoredAsset(rc retrieve.Context, id string) retrieve.ScoredAsset {
	for _, sa := range rc.Assets {
		if sa.Record.ID == id {
			return sa
		}
	}
	return retrieve.ScoredAsset{}
}

func scoredSection(rc retrieve.Context, id string) retrieve.ScoredSection {
	for _, ss := range rc.Sections {
		if ss.Section.ID == id {
			return ss
		}
	}
	return retrieve.ScoredSection{}
}
