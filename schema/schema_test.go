package schema

import (
	"testing"

	"github.com/blang/semver/v4"
)

func TestRequiredEventCodesCoverParserBasics(t *testing.T) {
	want := map[EventCode]bool{
		EvPayloads: true, GameStart: true, PreFrame: true, PostFrame: true, GameEnd: true,
	}
	if len(RequiredEventCodes) != len(want) {
		t.Fatalf("RequiredEventCodes has %d entries, want %d", len(RequiredEventCodes), len(want))
	}
	for _, code := range RequiredEventCodes {
		if !want[code] {
			t.Errorf("unexpected required event code %#x", code)
		}
	}
}

func TestTruncateColumnWidthsToVersion(t *testing.T) {
	cols := PreFrameColumns()
	old := semver.MustParse("2.0.0")
	out := TruncateColumnWidthsToVersion(cols, old, PreFrameVersionGates)

	if out[14] != 0 {
		t.Errorf("UCF analog column should be zeroed below %s, got %d", VUCFAnalog, out[14])
	}
	for i := range cols {
		if i == 14 {
			continue
		}
		if out[i] != cols[i] {
			t.Errorf("column %d should be unchanged, got %d want %d", i, out[i], cols[i])
		}
	}

	new := semver.MustParse("3.0.0")
	out2 := TruncateColumnWidthsToVersion(cols, new, PreFrameVersionGates)
	if out2[14] != cols[14] {
		t.Errorf("UCF analog column should survive at/above %s, got %d want %d", VUCFAnalog, out2[14], cols[14])
	}
}

func TestTruncateDoesNotMutateInput(t *testing.T) {
	cols := PreFrameColumns()
	original := append(ColumnWidths(nil), cols...)
	_ = TruncateColumnWidthsToVersion(cols, semver.MustParse("1.0.0"), PreFrameVersionGates)
	for i := range cols {
		if cols[i] != original[i] {
			t.Errorf("TruncateColumnWidthsToVersion mutated its input at %d", i)
		}
	}
}

func TestPostFrameColumnsLength(t *testing.T) {
	cols := PostFrameColumns()
	if len(cols) != 30 {
		t.Errorf("PostFrameColumns has %d entries, want 30", len(cols))
	}
}

func TestItemColumnsLength(t *testing.T) {
	cols := ItemColumns()
	if len(cols) != 12 {
		t.Errorf("ItemColumns has %d entries, want 12", len(cols))
	}
}
