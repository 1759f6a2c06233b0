// Package engine orchestrates one query through the pipeline: retrieve,
// assemble, complete, format. Failures in any stage become a QueryResult
// with status "failure"; the engine itself never crashes a session.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/fabfab/asset-query/answer"
	"github.com/fabfab/asset-query/llm"
	"github.com/fabfab/asset-query/prompt"
	"github.com/fabfab/asset-query/retrieve"
)

// State tracks where the engine is in the query cycle. It always returns to
// Idle, including after failures and cancellation.
type State int32

const (
	Idle State = iota
	Retrieving
	Assembling
	Completing
	Formatting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Retrieving:
		return "retrieving"
	case Assembling:
		return "assembling"
	case Completing:
		return "completing"
	case Formatting:
		return "formatting"
	default:
		return "unknown"
	}
}

// Turn is one prior question/answer pair carried into follow-up queries.
// History is an explicit value passed in and returned, never hidden session
// state, so every Ask is a pure function of its inputs.
type Turn struct {
	Question string
	Answer   string
}

type Options struct {
	// Timeout bounds the completion call, retries included.
	Timeout time.Duration

	// HistoryLimit caps how many prior turns are carried forward; the
	// oldest turns fall off first. Zero disables history.
	HistoryLimit int
}

type Engine struct {
	retriever *retrieve.Retriever
	assembler *prompt.Assembler
	client    llm.Client
	opts      Options
	logger    *log.Logger
	state     atomic.Int32
}

func New(retriever *retrieve.Retriever, assembler *prompt.Assembler, client llm.Client, opts Options, logger *log.Logger) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Engine{
		retriever: retriever,
		assembler: assembler,
		client:    client,
		opts:      opts,
		logger:    logger,
	}
}

// State reports the current pipeline stage.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Ask runs one full query cycle and returns the result plus the updated,
// bounded history. It never returns a Go error: every failure is converted
// into a QueryResult with status "failure" so interactive sessions survive.
// Failed queries are not recorded in the history.
func (e *Engine) Ask(ctx context.Context, question string, history []Turn) (answer.QueryResult, []Turn) {
	defer e.state.Store(int32(Idle))

	question = strings.TrimSpace(question)
	if question == "" {
		return answer.Failure("question cannot be empty", nil), history
	}

	logger := e.logger.With("query_id", uuid.NewString())
	logger.Debug("query started", "question", question)

	e.state.Store(int32(Retrieving))
	rc := e.retriever.Retrieve(question)

	e.state.Store(int32(Assembling))
	p := e.assembler.Assemble(rc, question)
	if p.Dropped > 0 {
		logger.Info("context truncated to fit budget", "dropped", p.Dropped, "kept", p.Included.Items())
	}

	e.state.Store(int32(Completing))
	cctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	raw, err := e.client.Generate(cctx, p.Messages(historyMessages(history)))
	if err != nil {
		logger.Error("completion failed", "error", err)
		return answer.Failure(failureMessage(ctx, err), err), history
	}

	e.state.Store(int32(Formatting))
	res := answer.Format(raw, p.Included)
	logger.Debug("query finished", "status", res.Status, "citations", len(res.Citations))

	return res, appendTurn(history, Turn{Question: question, Answer: res.Answer}, e.opts.HistoryLimit)
}

func failureMessage(ctx context.Context, err error) string {
	switch {
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		return "query canceled"
	case errors.Is(err, llm.ErrTimeout):
		return "completion service timed out"
	case errors.Is(err, llm.ErrFatal):
		return "completion service rejected the request"
	case errors.Is(err, llm.ErrTransient):
		return "completion service unavailable after retries"
	default:
		return "query failed"
	}
}

// historyMessages renders prior turns as alternating user/assistant
// messages placed between the system persona and the new question.
func historyMessages(history []Turn) []llm.Message {
	if len(history) == 0 {
		return nil
	}
	messages := make([]llm.Message, 0, len(history)*2)
	for _, turn := range history {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: turn.Question},
			llm.Message{Role: llm.RoleAssistant, Content: turn.Answer},
		)
	}
	return messages
}

func appendTurn(history []Turn, turn Turn, limit int) []Turn {
	if limit <= 0 {
		return history
	}
	updated := make([]Turn, 0, len(history)+1)
	updated = append(updated, history...)
	updated = append(updated, turn)
	if len(updated) > limit {
		updated = updated[len(updated)-limit:]
	}
	return updated
}
