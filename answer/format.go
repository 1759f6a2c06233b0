// Package answer shapes the completion output into the final QueryResult:
// answer text, source citations and a status. Formatting never fails; bad
// output degrades to a partial result, not an error.
package answer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fabfab/asset-query/retrieve"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailure Status = "failure"
)

const (
	KindAsset   = "asset"
	KindSection = "section"
)

// Citation points at one context item the answer drew from.
type Citation struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (c Citation) String() string {
	if c.Kind == KindSection {
		return "Section " + c.ID
	}
	return "Asset " + c.ID
}

// QueryResult is what a query hands back to the caller. It is not persisted
// anywhere by the engine.
type QueryResult struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Status    Status     `json:"status"`
}

var tagPattern = regexp.MustCompile(`\[(Asset|Section)\s+([^\[\]\s][^\[\]]*)\]`)

// Format extracts the citation tags the model emitted and checks them
// against the context that was actually in the prompt. When the model cited
// nothing, every supplied item is listed instead and the result is marked
// partial; an empty context or empty answer is partial too.
func Format(raw string, used retrieve.Context) QueryResult {
	text := strings.TrimSpace(raw)

	if used.Empty() {
		if text == "" {
			text = "No matching data was available for this question."
		}
		return QueryResult{Answer: text, Citations: []Citation{}, Status: StatusPartial}
	}

	if text == "" {
		return QueryResult{
			Answer:    "The completion service returned an empty answer.",
			Citations: []Citation{},
			Status:    StatusPartial,
		}
	}

	cited := extractCitations(text, used)
	if len(cited) == 0 {
		// The model ignored the citation instruction; fall back to listing
		// everything it was shown so the sources are still traceable.
		return QueryResult{Answer: text, Citations: allCitations(used), Status: StatusPartial}
	}
	return QueryResult{Answer: text, Citations: cited, Status: StatusSuccess}
}

// Failure builds the result surfaced when a pipeline stage failed.
func Failure(msg string, err error) QueryResult {
	text := msg
	if err != nil {
		text = fmt.Sprintf("%s: %v", msg, err)
	}
	return QueryResult{Answer: text, Citations: []Citation{}, Status: StatusFailure}
}

// extractCitations keeps tags in order of first appearance, deduplicated,
// and drops any tag that does not refer to an item the prompt contained.
func extractCitations(text string, used retrieve.Context) []Citation {
	assetIDs := make(map[string]struct{}, len(used.Assets))
	for _, sa := range used.Assets {
		assetIDs[sa.Record.ID] = struct{}{}
	}
	sectionIDs := make(map[string]struct{}, len(used.Sections))
	for _, ss := range used.Sections {
		sectionIDs[ss.Section.ID] = struct{}{}
	}

	seen := make(map[Citation]struct{})
	var cited []Citation
	for _, match := range tagPattern.FindAllStringSubmatch(text, -1) {
		id := strings.TrimSpace(match[2])
		var c Citation
		switch match[1] {
		case "Asset":
			if _, ok := assetIDs[id]; !ok {
				continue
			}
			c = Citation{Kind: KindAsset, ID: id}
		case "Section":
			if _, ok := sectionIDs[id]; !ok {
				continue
			}
			c = Citation{Kind: KindSection, ID: id}
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		cited = append(cited, c)
	}
	return cited
}

func allCitations(used retrieve.Context) []Citation {
	cited := make([]Citation, 0, used.Items())
	for _, sa := range used.Assets {
		cited = append(cited, Citation{Kind: KindAsset, ID: sa.Record.ID})
	}
	for _, ss := range used.Sections {
		cited = append(cited, Citation{Kind: KindSection, ID: ss.Section.ID})
	}
	return cited
}
