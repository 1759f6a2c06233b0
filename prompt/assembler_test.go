package prompt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabfab/asset-query/llm"
	"github.com/fabfab/asset-query/prompt"
	"github.com/fabfab/asset-query/retrieve"
	"github.com/fabfab/asset-query/store"
)

func asset(id string, fields map[string]string, score int) retrieve.ScoredAsset {
	return retrieve.ScoredAsset{Record: store.AssetRecord{ID: id, Fields: fields}, Score: score}
}

func section(id, title, body string, score int) retrieve.ScoredSection {
	return retrieve.ScoredSection{Section: store.KnowledgeSection{ID: id, Title: title, Body: body}, Score: score}
}

func sampleContext() retrieve.Context {
	return retrieve.Context{
		Assets: []retrieve.ScoredAsset{
			asset("A-001", map[string]string{"Name": "Pump 1", "Condition": "Poor"}, 4),
			asset("A-002", map[string]string{"Name": "Valve 3", "Condition": "Good"}, 2),
		},
		Sections: []retrieve.ScoredSection{
			section("4.2", "Condition assessment", "Assess on a five point scale.", 3),
		},
	}
}

func TestAssemble(t *testing.T) {
	t.Run("Should tag every context item with its identifier", func(t *testing.T) {
		a := prompt.NewAssembler("persona", 4000, prompt.RuneCounter{})

		p := a.Assemble(sampleContext(), "Which assets are in poor condition?")

		assert.Contains(t, p.Context, "[Asset A-001]")
		assert.Contains(t, p.Context, "[Asset A-002]")
		assert.Contains(t, p.Context, "[Section 4.2]")
		assert.Contains(t, p.Context, "Condition: Poor")
		assert.Equal(t, 3, p.Included.Items())
		assert.Zero(t, p.Dropped)
	})

	t.Run("Should keep the serialized context within the budget", func(t *testing.T) {
		budget := 120
		a := prompt.NewAssembler("persona", budget, prompt.RuneCounter{})

		p := a.Assemble(sampleContext(), "poor condition?")

		assert.LessOrEqual(t, len(p.Context), budget)
		assert.Positive(t, p.Dropped)
	})

	t.Run("Should drop whole items from the lowest-scored end", func(t *testing.T) {
		full := prompt.NewAssembler("persona", 4000, prompt.RuneCounter{}).
			Assemble(sampleContext(), "q")
		budget := len(full.Context) - 1

		p := prompt.NewAssembler("persona", budget, prompt.RuneCounter{}).
			Assemble(sampleContext(), "q")

		assert.NotContains(t, p.Context, "[Asset A-002]", "lowest score goes first")
		assert.Contains(t, p.Context, "[Asset A-001]")
		assert.Contains(t, p.Context, "[Section 4.2]")
		for _, line := range strings.Split(p.Context, "\n") {
			assert.True(t, strings.HasPrefix(line, "[Asset ") || strings.HasPrefix(line, "[Section "),
				"every surviving line is a whole tagged item: %q", line)
		}
	})

	t.Run("Should state the no-context case explicitly", func(t *testing.T) {
		a := prompt.NewAssembler("persona", 4000, prompt.RuneCounter{})

		p := a.Assemble(retrieve.Context{}, "anything?")

		assert.Contains(t, p.Context, "No directly matching records")
		assert.True(t, p.Included.Empty())
	})

	t.Run("Should degrade to the no-context notice when nothing fits", func(t *testing.T) {
		a := prompt.NewAssembler("persona", 5, prompt.RuneCounter{})

		p := a.Assemble(sampleContext(), "q")

		assert.Contains(t, p.Context, "No directly matching records")
		assert.Equal(t, 3, p.Dropped)
	})

	t.Run("Should order messages as system, history, user", func(t *testing.T) {
		a := prompt.NewAssembler("persona text", 4000, prompt.RuneCounter{})
		p := a.Assemble(sampleContext(), "follow-up?")

		history := []llm.Message{
			{Role: llm.RoleUser, Content: "earlier question"},
			{Role: llm.RoleAssistant, Content: "earlier answer"},
		}
		messages := p.Messages(history)

		require.Len(t, messages, 4)
		assert.Equal(t, llm.RoleSystem, messages[0].Role)
		assert.Equal(t, "persona text", messages[0].Content)
		assert.Equal(t, "earlier question", messages[1].Content)
		assert.Equal(t, "earlier answer", messages[2].Content)
		assert.Equal(t, llm.RoleUser, messages[3].Role)
		assert.Contains(t, messages[3].Content, "follow-up?")
		assert.Contains(t, messages[3].Content, "[Asset A-001]")
	})
}

func TestRuneCounter(t *testing.T) {
	t.Run("Should count runes, not bytes", func(t *testing.T) {
		c := prompt.RuneCounter{}
		assert.Equal(t, 4, c.Count("abcd"))
		assert.Equal(t, 2, c.Count("åß"))
	})
}
