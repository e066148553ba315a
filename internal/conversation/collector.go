// Package conversation drives the collect-experiences dialogue one user turn at a time.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/compass/internal/ai"
	"github.com/spigell/compass/internal/experience"
	"github.com/spigell/compass/internal/logger"
	"github.com/spigell/compass/internal/session"
	"go.uber.org/zap"
)

var (
	ErrEmptyMessage = errors.New("user message is empty")
	ErrNoExtractor  = errors.New("operation extractor is not configured")
)

// Store loads and saves the conversation state.
type Store interface {
	Load(ctx context.Context) (*session.State, error)
	Save(ctx context.Context, state *session.State) error
}

type Deps struct {
	Extractor ai.OperationExtractor
	Processor *experience.Processor
	Store     Store
	Logger    *zap.Logger
}

// TurnResult describes the state after a turn has been committed.
type TurnResult struct {
	Turn               int
	Operations         int
	LastProcessedIndex int
	Experiences        []experience.Record
	// Referenced is the experience at LastProcessedIndex, nil when the turn updated nothing.
	Referenced *experience.Record
}

// Collector owns the turn counter and keeps the collected experiences in the store.
// Calls must be serialized per session.
type Collector struct {
	extractor ai.OperationExtractor
	processor *experience.Processor
	store     Store
	logger    *zap.Logger
}

func New(deps *Deps) (*Collector, error) {
	if deps == nil || deps.Store == nil {
		return nil, errors.New("session store is required")
	}

	log := logger.WithFields(deps.Logger)

	processor := deps.Processor
	if processor == nil {
		processor = experience.NewProcessor(log)
	}

	return &Collector{
		extractor: deps.Extractor,
		processor: processor,
		store:     deps.Store,
		logger:    log,
	}, nil
}

// Turn asks the extractor what the message changes and commits the result as the next turn.
// Nothing is saved when the extractor fails.
func (c *Collector) Turn(ctx context.Context, message string) (*TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if c.extractor == nil {
		return nil, ErrNoExtractor
	}

	state, err := c.state(ctx)
	if err != nil {
		return nil, err
	}

	turn := state.Turn + 1
	ops, err := c.extractor.Extract(ctx, &ai.ExtractionRequest{
		Turn:        turn,
		Message:     message,
		Experiences: state.Experiences,
	})
	if err != nil {
		return nil, fmt.Errorf("extracting operations for turn %d: %w", turn, err)
	}

	return c.commit(ctx, state, turn, ops)
}

// Apply commits an already known batch of operations as the next turn.
func (c *Collector) Apply(ctx context.Context, ops []experience.ProposedOperation) (*TurnResult, error) {
	state, err := c.state(ctx)
	if err != nil {
		return nil, err
	}

	return c.commit(ctx, state, state.Turn+1, ops)
}

// Current returns the stored state without starting a turn.
func (c *Collector) Current(ctx context.Context) (*session.State, error) {
	return c.state(ctx)
}

func (c *Collector) state(ctx context.Context) (*session.State, error) {
	state, err := c.store.Load(ctx)
	if errors.Is(err, session.ErrNotFound) {
		c.logger.Debug("starting a new session")
		return session.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return state, nil
}

func (c *Collector) commit(ctx context.Context, state *session.State, turn int, ops []experience.ProposedOperation) (*TurnResult, error) {
	log := logger.WithTurn(c.logger, turn)

	last, records := c.processor.Process(ops, state.Experiences, turn)

	state.Turn = turn
	state.Experiences = records
	state.LastReferenced = ""

	result := &TurnResult{
		Turn:               turn,
		Operations:         len(ops),
		LastProcessedIndex: last,
		Experiences:        records,
	}

	if last >= 0 {
		referenced := records[last]
		state.LastReferenced = referenced.UUID
		result.Referenced = &referenced
	}

	if err := c.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	log.Info("turn committed",
		zap.Int("operations", len(ops)),
		zap.Int("experiences", len(records)),
		zap.Int("last_processed_index", last),
	)

	return result, nil
}
