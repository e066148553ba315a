package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/compass/internal/ai"
	"github.com/spigell/compass/internal/conversation"
	"github.com/spigell/compass/internal/experience"
	"github.com/spigell/compass/internal/session"
)

func newCollector(l *zap.Logger, config *Config, extractor ai.OperationExtractor) *conversation.Collector {
	store := session.NewFileStore(config.SessionFile)

	collector, err := conversation.New(&conversation.Deps{
		Extractor: extractor,
		Processor: experience.NewProcessor(l),
		Store:     store,
		Logger:    l.With(zap.String("session_file", store.Path())),
	})
	if err != nil {
		l.Fatal("creating a collector", zap.Error(err))
	}

	return collector
}

func printTurn(w io.Writer, result *conversation.TurnResult) {
	if result.Referenced != nil {
		fmt.Fprintf(w, "Turn %d: updated %q (#%d)\n", result.Turn, result.Referenced.Label(), result.LastProcessedIndex)
	} else {
		fmt.Fprintf(w, "Turn %d: %d operation(s) applied\n", result.Turn, result.Operations)
	}
	printExperiences(w, result.Experiences)
}

func printExperiences(w io.Writer, records []experience.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No experiences collected yet.")
		return
	}

	for _, r := range records {
		details := make([]string, 0, 4)
		for _, v := range []*string{r.Location, r.StartDate, r.EndDate} {
			if v != nil && *v != "" {
				details = append(details, *v)
			}
		}
		if r.WorkType != nil && *r.WorkType != "" {
			details = append(details, string(*r.WorkType))
		}

		line := fmt.Sprintf("  %d. %s", r.Index, r.Label())
		if len(details) > 0 {
			line += " (" + strings.Join(details, ", ") + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func dumpJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func currentState(ctx context.Context, c *conversation.Collector) (*session.State, error) {
	state, err := c.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	return state, nil
}
