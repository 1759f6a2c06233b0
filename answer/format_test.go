package answer_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabfab/asset-query/answer"
	"github.com/fabfab/asset-query/retrieve"
	"github.com/fabfab/asset-query/store"
)

func usedContext() retrieve.Context {
	return retrieve.Context{
		Assets: []retrieve.ScoredAsset{
			{Record: store.AssetRecord{ID: "A-001"}, Score: 3},
			{Record: store.AssetRecord{ID: "A-002"}, Score: 1},
		},
		Sections: []retrieve.ScoredSection{
			{Section: store.KnowledgeSection{ID: "4.2"}, Score: 2},
		},
	}
}

func TestFormat(t *testing.T) {
	t.Run("Should extract cited tags in order of first appearance", func(t *testing.T) {
		raw := "Pump 1 is in poor condition [Asset A-001], per the assessment scale " +
			"[Section 4.2]. See also [Asset A-001]."

		res := answer.Format(raw, usedContext())

		assert.Equal(t, answer.StatusSuccess, res.Status)
		require.Len(t, res.Citations, 2)
		assert.Equal(t, answer.Citation{Kind: answer.KindAsset, ID: "A-001"}, res.Citations[0])
		assert.Equal(t, answer.Citation{Kind: answer.KindSection, ID: "4.2"}, res.Citations[1])
	})

	t.Run("Should ignore tags that were not in the supplied context", func(t *testing.T) {
		raw := "Invented record [Asset A-999] but real one too [Asset A-002]."

		res := answer.Format(raw, usedContext())

		assert.Equal(t, answer.StatusSuccess, res.Status)
		require.Len(t, res.Citations, 1)
		assert.Equal(t, "A-002", res.Citations[0].ID)
	})

	t.Run("Should fall back to every supplied item when nothing is cited", func(t *testing.T) {
		res := answer.Format("The pump needs replacement.", usedContext())

		assert.Equal(t, answer.StatusPartial, res.Status)
		require.Len(t, res.Citations, 3)
		assert.Equal(t, "A-001", res.Citations[0].ID)
		assert.Equal(t, "A-002", res.Citations[1].ID)
		assert.Equal(t, "4.2", res.Citations[2].ID)
	})

	t.Run("Should mark empty-context answers partial with no citations", func(t *testing.T) {
		res := answer.Format("No records match that question.", retrieve.Context{})

		assert.Equal(t, answer.StatusPartial, res.Status)
		assert.Empty(t, res.Citations)
		assert.Equal(t, "No records match that question.", res.Answer)
	})

	t.Run("Should produce a no-data answer for empty output over empty context", func(t *testing.T) {
		res := answer.Format("", retrieve.Context{})

		assert.Equal(t, answer.StatusPartial, res.Status)
		assert.Empty(t, res.Citations)
		assert.Contains(t, res.Answer, "No matching data")
	})

	t.Run("Should degrade gracefully on empty output with context", func(t *testing.T) {
		res := answer.Format("   ", usedContext())

		assert.Equal(t, answer.StatusPartial, res.Status)
		assert.Empty(t, res.Citations)
		assert.NotEmpty(t, res.Answer)
	})
}

func TestFailure(t *testing.T) {
	t.Run("Should carry the explanation and failure status", func(t *testing.T) {
		res := answer.Failure("completion service timed out", errors.New("deadline exceeded"))

		assert.Equal(t, answer.StatusFailure, res.Status)
		assert.Empty(t, res.Citations)
		assert.Contains(t, res.Answer, "completion service timed out")
		assert.Contains(t, res.Answer, "deadline exceeded")
	})

	t.Run("Should work without an underlying error", func(t *testing.T) {
		res := answer.Failure("question cannot be empty", nil)
		assert.Equal(t, "question cannot be empty", res.Answer)
		assert.Equal(t, answer.StatusFailure, res.Status)
	})
}

func TestCitationString(t *testing.T) {
	assert.Equal(t, "Asset A-001", answer.Citation{Kind: answer.KindAsset, ID: "A-001"}.String())
	assert.Equal(t, "Section 4.2", answer.Citation{Kind: answer.KindSection, ID: "4.2"}.String())
}
