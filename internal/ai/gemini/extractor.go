package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/compass/internal/ai"
	"github.com/spigell/compass/internal/experience"
	"github.com/spigell/compass/internal/utils"
	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

// Extractor asks Gemini which changes a user message implies for the collected experiences.
type Extractor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed extract_prompt.md
var systemPrompt string

const defaultMaxLogLength = 200

func NewExtractor(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

var _ ai.OperationExtractor = (*Extractor)(nil)

func (e *Extractor) Extract(ctx context.Context, req *ai.ExtractionRequest) ([]experience.ProposedOperation, error) {
	if req == nil {
		return nil, errors.New("extraction request is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("user message is required")
	}

	message, err := buildMessage(req)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini extraction request",
		zap.Int("turn", req.Turn),
		zap.Int("experiences", len(req.Experiences)),
		zap.Int("message_length", utf8.RuneCountInString(message)),
		zap.String("message_preview", utils.TruncateForLog(req.Message, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, systemPrompt, message)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini extraction response",
		zap.Int("turn", req.Turn),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	items, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	ops, err := experience.DecodeOperations(e.logger, items)
	if err != nil {
		e.logger.Warn("some proposed operations were dropped", zap.Error(err))
	}

	return ops, nil
}

func buildMessage(req *ai.ExtractionRequest) (string, error) {
	experiences := req.Experiences
	if experiences == nil {
		experiences = []experience.Record{}
	}

	payload, err := json.MarshalIndent(experiences, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal experiences payload: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Turn: %d\n\n", req.Turn)
	b.WriteString("Collected experiences:\n")
	b.Write(payload)
	b.WriteString("\n\nUser message:\n")
	b.WriteString(strings.TrimSpace(req.Message))
	return b.String(), nil
}

// parseResponse accepts either {"operations": [...]} or a bare array of operation objects.
func parseResponse(raw string) ([]map[string]any, error) {
	cleaned := extractJSON(raw)

	var data any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	if obj, ok := data.(map[string]any); ok {
		data = obj["operations"]
	}

	if data == nil {
		return nil, nil
	}

	list, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("parse gemini response: expected a list of operations, got %T", data)
	}

	items := make([]map[string]any, 0, len(list))
	for i, entry := range list {
		item, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parse gemini response: operation %d is %T, not an object", i, entry)
		}
		items = append(items, item)
	}

	return items, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
