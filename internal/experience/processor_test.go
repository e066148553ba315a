package experience

import (
	"fmt"
	"testing"

	"github.com/spigell/compass/internal/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestProcessor(t *testing.T) (*Processor, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	p := NewProcessor(zap.New(core))

	counter := 0
	p.newUUID = func() string {
		counter++
		return fmt.Sprintf("uuid-%d", counter)
	}

	return p, logs
}

func record(idx int, id, title, employer string) Record {
	return Record{
		Index:               idx,
		UUID:                id,
		DefinedAtTurnNumber: 1,
		Title:               Ptr(title),
		Employer:            Ptr(employer),
	}
}

func threeRecords() []Record {
	return []Record{
		record(0, "a", "Baker", "Bread Co"),
		record(1, "b", "Driver", "Taxi Ltd"),
		record(2, "c", "Nurse", "City Clinic"),
	}
}

func assertContiguous(t *testing.T, records []Record) {
	t.Helper()
	for i, r := range records {
		if r.Index != i {
			t.Fatalf("expected record %d to have index %d, got %d", i, i, r.Index)
		}
	}
}

func uuids(records []Record) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.UUID)
	}
	return ids
}

func countLevel(logs *observer.ObservedLogs, level zapcore.Level) int {
	n := 0
	for _, entry := range logs.All() {
		if entry.Level == level {
			n++
		}
	}
	return n
}

func TestProcessAdd(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		p, logs := newTestProcessor(t)

		last, records := p.Process([]ProposedOperation{{
			Operation: "ADD",
			Index:     7,
			Title:     SetTo("Baker"),
			PaidWork:  SetTo(true),
		}}, nil, 3)

		if last != -1 {
			t.Fatalf("expected last index -1 after add, got %d", last)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}

		got := records[0]
		if got.Index != 0 || got.UUID != "uuid-1" || got.DefinedAtTurnNumber != 3 {
			t.Fatalf("unexpected identity fields: %+v", got)
		}
		if *got.Title != "Baker" || !*got.PaidWork {
			t.Fatalf("unexpected fields: %+v", got)
		}
		if got.Employer != nil {
			t.Fatalf("expected employer to stay nil")
		}

		added := logs.FilterMessage("adding experience").All()
		if len(added) != 1 || added[0].Level != zapcore.InfoLevel {
			t.Fatalf("expected one info log for add, got %d", len(added))
		}
		if added[0].ContextMap()[logger.FieldExperienceIndex] != int64(0) {
			t.Fatalf("expected logged index 0, got %v", added[0].ContextMap()[logger.FieldExperienceIndex])
		}
	})

	t.Run("appends regardless of proposed index", func(t *testing.T) {
		p, _ := newTestProcessor(t)

		_, records := p.Process([]ProposedOperation{{Operation: "add", Index: 0, Title: SetTo("Nurse")}}, threeRecords(), 2)

		if len(records) != 4 {
			t.Fatalf("expected 4 records, got %d", len(records))
		}
		if records[3].UUID != "uuid-1" || *records[3].Title != "Nurse" {
			t.Fatalf("expected new record at the end, got %+v", records[3])
		}
		if records[0].UUID != "a" {
			t.Fatalf("expected existing records to keep their position")
		}
		assertContiguous(t, records)
	})
}

func TestProcessUpdate(t *testing.T) {
	p, logs := newTestProcessor(t)
	existing := []Record{{
		Index:               0,
		UUID:                "a",
		DefinedAtTurnNumber: 1,
		Title:               Ptr("Baker"),
		Employer:            Ptr("Bread Co"),
		Location:            Ptr("Cape Town"),
	}}

	last, records := p.Process([]ProposedOperation{{
		Operation: "UPDATE",
		Index:     0,
		Title:     SetTo("Head Baker"),
		Location:  Clear[string](),
		StartDate: SetTo("2020"),
	}}, existing, 4)

	if last != 0 {
		t.Fatalf("expected last index 0, got %d", last)
	}

	got := records[0]
	if *got.Title != "Head Baker" {
		t.Fatalf("expected title to be overwritten, got %q", *got.Title)
	}
	if *got.Employer != "Bread Co" {
		t.Fatalf("expected unmentioned employer to stay, got %q", *got.Employer)
	}
	if got.Location == nil || *got.Location != "" {
		t.Fatalf("expected location to be cleared to empty string, got %v", got.Location)
	}
	if *got.StartDate != "2020" {
		t.Fatalf("expected start date to be set")
	}
	if got.DefinedAtTurnNumber != 4 {
		t.Fatalf("expected turn to be refreshed, got %d", got.DefinedAtTurnNumber)
	}
	if got.UUID != "a" {
		t.Fatalf("expected uuid to be stable, got %q", got.UUID)
	}

	if *existing[0].Title != "Baker" || existing[0].DefinedAtTurnNumber != 1 {
		t.Fatalf("expected input records to stay untouched")
	}

	if logs.FilterMessage("updating experience").Len() != 1 {
		t.Fatalf("expected update to be logged")
	}
}

func TestProcessInvalidTargets(t *testing.T) {
	tests := []struct {
		name    string
		op      ProposedOperation
		message string
	}{
		{name: "update past the end", op: ProposedOperation{Operation: "UPDATE", Index: 3, Title: SetTo("x")}, message: "invalid index for update, skipping"},
		{name: "update negative", op: ProposedOperation{Operation: "UPDATE", Index: -1, Title: SetTo("x")}, message: "invalid index for update, skipping"},
		{name: "delete past the end", op: ProposedOperation{Operation: "DELETE", Index: 5}, message: "invalid index for delete, skipping"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, logs := newTestProcessor(t)

			last, records := p.Process([]ProposedOperation{tt.op}, threeRecords(), 2)

			if last != -1 {
				t.Fatalf("expected last index -1, got %d", last)
			}
			if fmt.Sprint(uuids(records)) != "[a b c]" {
				t.Fatalf("expected records unchanged, got %v", uuids(records))
			}
			if *records[0].Title != "Baker" {
				t.Fatalf("expected fields unchanged")
			}

			warnings := logs.FilterMessage(tt.message).All()
			if len(warnings) != 1 || warnings[0].Level != zapcore.WarnLevel {
				t.Fatalf("expected exactly one warning %q", tt.message)
			}
			if warnings[0].ContextMap()["index"] != int64(tt.op.Index) {
				t.Fatalf("expected offending index in log, got %v", warnings[0].ContextMap()["index"])
			}
		})
	}
}

func TestProcessDelete(t *testing.T) {
	p, _ := newTestProcessor(t)

	last, records := p.Process([]ProposedOperation{{Operation: "Delete", Index: 1}}, threeRecords(), 2)

	if last != -1 {
		t.Fatalf("expected last index -1 for delete-only batch, got %d", last)
	}
	if fmt.Sprint(uuids(records)) != "[a c]" {
		t.Fatalf("unexpected records after delete: %v", uuids(records))
	}
	assertContiguous(t, records)
}

func TestProcessNoopAndUnknownTags(t *testing.T) {
	p, logs := newTestProcessor(t)
	existing := threeRecords()

	last, records := p.Process([]ProposedOperation{
		{Operation: "NOOP", Index: 1},
		{Operation: "noop", Index: 9},
		{Operation: "MERGE", Index: 0, Title: SetTo("x")},
		{Operation: "", Index: 0},
	}, existing, 5)

	if last != -1 {
		t.Fatalf("expected last index -1, got %d", last)
	}
	if len(records) != len(existing) {
		t.Fatalf("expected records unchanged, got %d", len(records))
	}
	for i := range records {
		if !records[i].Equivalent(existing[i]) || records[i].DefinedAtTurnNumber != 1 {
			t.Fatalf("record %d changed: %+v", i, records[i])
		}
	}

	noops := logs.FilterMessage("no changes for experience").All()
	if len(noops) != 2 {
		t.Fatalf("expected 2 noop logs, got %d", len(noops))
	}
	if noops[0].ContextMap()[logger.FieldExperience] != "Driver at Taxi Ltd" {
		t.Fatalf("expected noop log to name the experience, got %v", noops[0].ContextMap()[logger.FieldExperience])
	}

	unknown := logs.FilterMessage("unknown operation, skipping").All()
	if len(unknown) != 2 {
		t.Fatalf("expected 2 unknown operation logs, got %d", len(unknown))
	}
	if unknown[0].Level != zapcore.ErrorLevel || unknown[0].ContextMap()["operation"] != "MERGE" {
		t.Fatalf("expected error log with raw tag, got %+v", unknown[0])
	}
	if countLevel(logs, zapcore.WarnLevel) != 0 {
		t.Fatalf("expected no warnings")
	}
}

func TestProcessDuplicateCollapse(t *testing.T) {
	p, logs := newTestProcessor(t)

	last, records := p.Process([]ProposedOperation{{
		Operation: "UPDATE",
		Index:     2,
		Title:     SetTo("Driver"),
		Employer:  SetTo("Taxi Ltd"),
	}}, threeRecords(), 3)

	if fmt.Sprint(uuids(records)) != "[a b]" {
		t.Fatalf("expected the updated record to be removed, got %v", uuids(records))
	}
	if last != 1 {
		t.Fatalf("expected last index to point at the retained record, got %d", last)
	}
	if records[1].DefinedAtTurnNumber != 1 {
		t.Fatalf("expected the retained record to keep its turn")
	}

	warnings := logs.FilterMessage("update made the experience a duplicate, removing the updated one").All()
	if len(warnings) != 1 {
		t.Fatalf("expected one duplicate warning, got %d", len(warnings))
	}
	ctx := warnings[0].ContextMap()
	if ctx["removed_uuid"] != "c" || ctx["retained_uuid"] != "b" {
		t.Fatalf("unexpected duplicate log context: %v", ctx)
	}
}

func TestProcessDuplicateRetainedRecordShifts(t *testing.T) {
	p, _ := newTestProcessor(t)

	last, records := p.Process([]ProposedOperation{{
		Operation: "UPDATE",
		Index:     0,
		Title:     SetTo("Nurse"),
		Employer:  SetTo("City Clinic"),
	}}, threeRecords(), 3)

	if fmt.Sprint(uuids(records)) != "[b c]" {
		t.Fatalf("unexpected records: %v", uuids(records))
	}
	if last != 1 {
		t.Fatalf("expected shifted index 1 of retained record, got %d", last)
	}
	assertContiguous(t, records)
}

func TestProcessEmptyRecordPruning(t *testing.T) {
	p, logs := newTestProcessor(t)

	last, records := p.Process([]ProposedOperation{{
		Operation: "UPDATE",
		Index:     1,
		Title:     Clear[string](),
		Employer:  Clear[string](),
	}}, threeRecords(), 3)

	if last != -1 {
		t.Fatalf("expected last index -1 after pruning, got %d", last)
	}
	if fmt.Sprint(uuids(records)) != "[a c]" {
		t.Fatalf("expected emptied record to be removed, got %v", uuids(records))
	}
	assertContiguous(t, records)

	if logs.FilterMessage("update left the experience empty, removing it").Len() != 1 {
		t.Fatalf("expected empty removal warning")
	}
}

func TestProcessUpdateRemovalResetsLastIndex(t *testing.T) {
	p, _ := newTestProcessor(t)

	last, _ := p.Process([]ProposedOperation{
		{Operation: "UPDATE", Index: 0, Location: SetTo("Durban")},
		{Operation: "UPDATE", Index: 2, Title: Clear[string](), Employer: Clear[string]()},
	}, threeRecords(), 3)

	if last != -1 {
		t.Fatalf("expected the removing update to reset last index, got %d", last)
	}
}

func TestProcessMixedBatch(t *testing.T) {
	p, _ := newTestProcessor(t)

	last, records := p.Process([]ProposedOperation{
		{Operation: "UPDATE", Index: 0, Location: SetTo("Johannesburg")},
		{Operation: "DELETE", Index: 1},
		{Operation: "ADD", Index: 1, Title: SetTo("Farmer")},
	}, threeRecords(), 6)

	if last != 0 {
		t.Fatalf("expected last index 0, got %d", last)
	}
	if fmt.Sprint(uuids(records)) != "[a c uuid-1]" {
		t.Fatalf("unexpected records: %v", uuids(records))
	}
	if *records[0].Location != "Johannesburg" || records[0].DefinedAtTurnNumber != 6 {
		t.Fatalf("expected first record updated, got %+v", records[0])
	}
	if records[1].DefinedAtTurnNumber != 1 {
		t.Fatalf("expected shifted record untouched")
	}
	assertContiguous(t, records)
}

func TestProcessSequentialIndexResolution(t *testing.T) {
	p, _ := newTestProcessor(t)

	// The update targets index 1 of the list left by the delete, which is "c".
	last, records := p.Process([]ProposedOperation{
		{Operation: "DELETE", Index: 0},
		{Operation: "UPDATE", Index: 1, EndDate: SetTo("2024")},
	}, threeRecords(), 2)

	if last != 1 {
		t.Fatalf("expected last index 1, got %d", last)
	}
	if records[1].UUID != "c" || *records[1].EndDate != "2024" {
		t.Fatalf("expected update to land on c, got %+v", records[1])
	}
}

func TestProcessLastIndexFollowsLaterDeletes(t *testing.T) {
	p, _ := newTestProcessor(t)

	last, records := p.Process([]ProposedOperation{
		{Operation: "UPDATE", Index: 2, EndDate: SetTo("2024")},
		{Operation: "DELETE", Index: 0},
	}, threeRecords(), 2)

	if last != 1 || records[last].UUID != "c" {
		t.Fatalf("expected last index to follow the updated record to 1, got %d", last)
	}

	last, _ = p.Process([]ProposedOperation{
		{Operation: "UPDATE", Index: 2, EndDate: SetTo("2024")},
		{Operation: "DELETE", Index: 2},
	}, threeRecords(), 2)

	if last != -1 {
		t.Fatalf("expected -1 once the updated record is deleted, got %d", last)
	}
}

func TestProcessRenumbersInput(t *testing.T) {
	p, _ := newTestProcessor(t)
	existing := []Record{record(4, "a", "x", "y"), record(9, "b", "z", "w")}

	_, records := p.Process(nil, existing, 1)

	assertContiguous(t, records)
	if existing[0].Index != 4 {
		t.Fatalf("expected caller slice to stay untouched")
	}
}

func TestProcessCaseInsensitiveTags(t *testing.T) {
	for _, tag := range []string{"add", "Add", "ADD", " aDd "} {
		t.Run(tag, func(t *testing.T) {
			p, _ := newTestProcessor(t)
			_, records := p.Process([]ProposedOperation{{Operation: tag, Title: SetTo("Baker")}}, nil, 1)
			if len(records) != 1 {
				t.Fatalf("expected %q to add a record", tag)
			}
		})
	}
}

func TestProcessLastIndexWithoutUniqueUUIDs(t *testing.T) {
	tests := []struct {
		name     string
		existing []Record
	}{
		{
			name: "blank uuids",
			existing: []Record{
				{Title: Ptr("Baker")},
				{Title: Ptr("Driver")},
			},
		},
		{
			name: "shared uuid",
			existing: []Record{
				{UUID: "x", Title: Ptr("Baker")},
				{UUID: "x", Title: Ptr("Driver")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProcessor(t)

			last, records := p.Process([]ProposedOperation{
				{Operation: "UPDATE", Index: 1, Location: SetTo("Durban")},
			}, tt.existing, 2)

			if last != 1 {
				t.Fatalf("expected last index 1, got %d", last)
			}
			if records[last].Location == nil || *records[last].Location != "Durban" {
				t.Fatalf("expected last index to point at the updated record, got %+v", records[last])
			}

			last, records = p.Process([]ProposedOperation{
				{Operation: "UPDATE", Index: 1, Location: SetTo("Durban")},
				{Operation: "DELETE", Index: 0},
			}, tt.existing, 2)

			if last != 0 || *records[0].Title != "Driver" {
				t.Fatalf("expected last index to follow the updated record to 0, got %d", last)
			}
		})
	}
}

func TestProcessNoopLogsStoredTitle(t *testing.T) {
	p, logs := newTestProcessor(t)

	p.Process([]ProposedOperation{
		{Operation: "NOOP", Index: 0, Title: SetTo("Pastry chef")},
		{Operation: "NOOP", Index: 7, Title: SetTo("Pastry chef")},
	}, threeRecords(), 2)

	noops := logs.FilterMessage("no changes for experience").All()
	if len(noops) != 2 {
		t.Fatalf("expected 2 noop logs, got %d", len(noops))
	}
	if got := noops[0].ContextMap()[logger.FieldExperience]; got != "Baker at Bread Co" {
		t.Fatalf("expected the stored label for an existing record, got %v", got)
	}
	if got := noops[1].ContextMap()[logger.FieldExperience]; got != "Pastry chef" {
		t.Fatalf("expected the proposed title for an unknown record, got %v", got)
	}
}
