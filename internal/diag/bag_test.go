package diag

import (
	"testing"

	"paramgen/internal/source"
)

func TestBagLimitKeepsErrors(t *testing.T) {
	b := NewBag(2)
	sp := source.Span{}

	if !b.Add(NewWarning(TplUnresolvedVar, sp, "a")) || !b.Add(NewWarning(TplUnresolvedVar, sp, "b")) {
		t.Fatal("expected first two diagnostics to be accepted")
	}
	if b.Add(NewWarning(TplUnresolvedVar, sp, "c")) {
		t.Error("expected third warning to be dropped")
	}
	if !b.Add(NewError(TplUnterminated, sp, "boom")) {
		t.Error("errors must bypass the limit")
	}
	if b.Len() != 3 || b.Dropped() != 1 {
		t.Errorf("len=%d dropped=%d, want 3 and 1", b.Len(), b.Dropped())
	}
	if !b.HasErrors() || !b.HasWarnings() {
		t.Error("expected both errors and warnings")
	}
}

func TestBagSortAndDedup(t *testing.T) {
	b := NewBag(16)
	b.Add(NewWarning(ParDuplicate, source.Span{File: 0, Start: 10, End: 12}, "dup"))
	b.Add(NewWarning(ParMissingDefault, source.Span{File: 0, Start: 2, End: 4}, "missing"))
	b.Add(NewError(TplUnterminated, source.Span{File: 0, Start: 2, End: 4}, "unterminated"))
	b.Add(NewWarning(ParDuplicate, source.Span{File: 0, Start: 10, End: 12}, "dup"))

	b.Dedup()
	if b.Len() != 3 {
		t.Fatalf("expected 3 diagnostics after dedup, got %d", b.Len())
	}

	b.Sort()
	got := []Code{b.Items()[0].Code, b.Items()[1].Code, b.Items()[2].Code}
	want := []Code{TplUnterminated, ParMissingDefault, ParDuplicate}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID(), want[i].ID())
		}
	}
}

func TestBagMergeGrowsLimit(t *testing.T) {
	a := NewBag(1)
	a.Add(NewWarning(TplShadowedVar, source.Span{}, "x"))
	b := NewBag(4)
	b.Add(NewWarning(TplShadowedVar, source.Span{}, "y"))
	b.Add(NewWarning(TplShadowedVar, source.Span{}, "z"))

	a.Merge(b)
	if a.Len() != 3 || a.Cap() != 3 {
		t.Errorf("len=%d cap=%d, want 3/3", a.Len(), a.Cap())
	}
	if a.CountCode(TplShadowedVar) != 3 || a.Count(SevWarning) != 3 {
		t.Error("unexpected counts after merge")
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(8)
	r := NewDedupReporter(BagReporter{Bag: bag})
	sp := source.Span{File: 0, Start: 1, End: 5}

	for range 3 {
		ReportWarning(r, TplUnresolvedVar, sp, "unresolved variable \"x\"").Emit()
	}
	ReportWarning(r, TplUnresolvedVar, sp, "unresolved variable \"y\"").Emit()

	if bag.Len() != 2 {
		t.Errorf("expected 2 unique diagnostics, got %d", bag.Len())
	}
	if r.Suppressed() != 2 {
		t.Errorf("expected 2 suppressed, got %d", r.Suppressed())
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(8)
	b := ReportWarning(BagReporter{Bag: bag}, ParDuplicate, source.Span{}, "dup").
		WithNote(source.Span{Start: 3}, "first declared here")
	b.Emit()
	b.Emit()
	if bag.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %d", bag.Len())
	}
	if n := len(bag.Items()[0].Notes); n != 1 {
		t.Errorf("expected one note, got %d", n)
	}
}

func TestReportShortcutsSetSeverity(t *testing.T) {
	bag := NewBag(8)
	r := BagReporter{Bag: bag}
	ReportError(r, TplUnterminated, source.Span{}, "e").Emit()
	ReportWarning(r, TplUnresolvedVar, source.Span{}, "w").Emit()
	ReportInfo(r, ObsTimings, source.Span{}, "i").Emit()
	want := []Severity{SevError, SevWarning, SevInfo}
	for i, d := range bag.Items() {
		if d.Severity != want[i] {
			t.Errorf("item %d: severity %v, want %v", i, d.Severity, want[i])
		}
	}
	if bag.Len() != 3 {
		t.Fatalf("expected three diagnostics, got %d", bag.Len())
	}
}

func TestCodeIDs(t *testing.T) {
	tests := map[Code]string{
		TplCyclicInclude:  "TPL1004",
		ParMissingDefault: "PAR2001",
		IOLoadFileError:   "IO4001",
		ProjInvalidEntry:  "PRJ5001",
		UnknownCode:       "E0000",
	}
	for code, want := range tests {
		if got := code.ID(); got != want {
			t.Errorf("%d: got %s, want %s", code, got, want)
		}
	}
	if got := ParDuplicate.String(); got != "[PAR2004]: Duplicate parameter identifier" {
		t.Errorf("unexpected String(): %q", got)
	}
}
