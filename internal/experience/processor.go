package experience

import (
	"slices"

	"github.com/google/uuid"
	"github.com/spigell/compass/internal/logger"
	"go.uber.org/zap"
)

// Processor folds proposed operations into the collected experiences of one turn.
type Processor struct {
	logger  *zap.Logger
	newUUID func() string
}

func NewProcessor(log *zap.Logger) *Processor {
	return &Processor{
		logger:  logger.WithFields(log),
		newUUID: uuid.NewString,
	}
}

// Process applies ops in order, each one against the list produced by the previous one.
// It returns the index of the record touched by the last surviving UPDATE in the returned
// list, or -1, together with the new list. The existing slice is never modified.
// Malformed operations are logged and skipped.
func (p *Processor) Process(ops []ProposedOperation, existing []Record, currentTurn int) (int, []Record) {
	records := renumber(slices.Clone(existing))
	last := -1

	for _, op := range ops {
		kind, ok := ParseOperation(op.Operation)
		if !ok {
			p.logger.Error("unknown operation, skipping",
				zap.String("operation", op.Operation),
				zap.Int("index", op.Index),
			)
			continue
		}

		switch kind {
		case OperationAdd:
			records = p.add(records, op, currentTurn)
		case OperationUpdate:
			var touched bool
			var ref int
			records, ref, touched = p.update(records, op, currentTurn)
			if touched {
				last = ref
			}
		case OperationDelete:
			var removed bool
			records, removed = p.delete(records, op)
			if removed {
				last = shiftAfterRemoval(last, op.Index)
			}
		case OperationNoop:
			p.noop(records, op)
		}
	}

	p.logger.Debug("operations processed",
		zap.Int("operations", len(ops)),
		zap.Int("initial", len(existing)),
		zap.Int("left", len(records)),
		zap.Int("last_processed_index", last),
	)

	return last, records
}

func (p *Processor) add(records []Record, op ProposedOperation, turn int) []Record {
	record := op.applyTo(Record{
		Index:               len(records),
		UUID:                p.newUUID(),
		DefinedAtTurnNumber: turn,
	})

	p.logger.Info("adding experience", append(
		logger.ExperienceFields(record.Index, record.UUID, record.Label()),
		zap.Int("proposed_index", op.Index),
	)...)

	return append(slices.Clone(records), record)
}

// update returns the new list, the position that should be referenced afterwards (-1 for none)
// and whether the operation reached a record at all.
func (p *Processor) update(records []Record, op ProposedOperation, turn int) ([]Record, int, bool) {
	if !inRange(records, op.Index) {
		p.logger.Warn("invalid index for update, skipping",
			zap.Int("index", op.Index),
			zap.Int("experiences", len(records)),
		)
		return records, -1, false
	}

	next := slices.Clone(records)
	updated := op.applyTo(next[op.Index])
	updated.DefinedAtTurnNumber = turn
	next[op.Index] = updated

	if dup := findEquivalent(next, op.Index); dup >= 0 {
		retained := next[dup]
		p.logger.Warn("update made the experience a duplicate, removing the updated one",
			zap.Int("removed_index", op.Index),
			zap.String("removed_uuid", updated.UUID),
			zap.Int("retained_index", retained.Index),
			zap.String("retained_uuid", retained.UUID),
			zap.String("experience", retained.Label()),
		)
		// The reference moves to the retained record rather than resetting to -1.
		return removeAt(next, op.Index), shiftAfterRemoval(dup, op.Index), true
	}

	if updated.IsEmpty() {
		p.logger.Warn("update left the experience empty, removing it",
			zap.Int("removed_index", op.Index),
			zap.String("removed_uuid", updated.UUID),
		)
		return removeAt(next, op.Index), -1, true
	}

	p.logger.Info("updating experience", logger.ExperienceFields(op.Index, updated.UUID, updated.Label())...)

	return next, op.Index, true
}

func (p *Processor) delete(records []Record, op ProposedOperation) ([]Record, bool) {
	if !inRange(records, op.Index) {
		p.logger.Warn("invalid index for delete, skipping",
			zap.Int("index", op.Index),
			zap.Int("experiences", len(records)),
		)
		return records, false
	}

	p.logger.Info("deleting experience", logger.ExperienceFields(op.Index, records[op.Index].UUID, records[op.Index].Label())...)

	return removeAt(records, op.Index), true
}

func (p *Processor) noop(records []Record, op ProposedOperation) {
	var title string
	if inRange(records, op.Index) {
		title = records[op.Index].Label()
	} else {
		title, _ = op.Title.Value()
	}

	p.logger.Info("no changes for experience", logger.ExperienceFields(op.Index, "", title)...)
}

func inRange(records []Record, idx int) bool {
	return idx >= 0 && idx < len(records)
}

// findEquivalent returns the position of another record equivalent to records[idx], or -1.
func findEquivalent(records []Record, idx int) int {
	for i := range records {
		if i != idx && records[i].Equivalent(records[idx]) {
			return i
		}
	}
	return -1
}

// removeAt returns a renumbered copy of records without the element at idx.
func removeAt(records []Record, idx int) []Record {
	next := make([]Record, 0, len(records)-1)
	next = append(next, records[:idx]...)
	next = append(next, records[idx+1:]...)
	return renumber(next)
}

func renumber(records []Record) []Record {
	for i := range records {
		records[i].Index = i
	}
	return records
}

// shiftAfterRemoval maps a position to the list left after removing removed from it.
func shiftAfterRemoval(pos, removed int) int {
	switch {
	case pos < 0 || pos == removed:
		return -1
	case pos > removed:
		return pos - 1
	default:
		return pos
	}
}
