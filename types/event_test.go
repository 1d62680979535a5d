package types //nolint:revive // types is a valid package name

import "testing"

func testChip(id ChipID, words ...StreamWord) Chip {
	return Chip{ID: id, Words: words}
}

func TestChipID_String(t *testing.T) {
	id := ChipID{Layer: 1, Ladder: 12, Module: 3, Chip: 2}
	if got := id.String(); got != "1_12_3_2" {
		t.Errorf("String() = %q, want %q", got, "1_12_3_2")
	}
}

func TestPixelAddress_RoundTrip(t *testing.T) {
	p := NewPixelAddress(671, 215)
	if p.Row() != 671 || p.Col() != 215 {
		t.Errorf("got row=%d col=%d, want row=671 col=215", p.Row(), p.Col())
	}
}

func TestEvent_NextChipPreservesOrder(t *testing.T) {
	a := ChipID{Chip: 3}
	b := ChipID{Chip: 1}
	c := ChipID{Chip: 2}
	ev := NewEvent(7, []Chip{testChip(a, 1), testChip(b, 2), testChip(c, 3)})

	var got []ChipID
	for {
		cs, ok := ev.NextChip()
		if !ok {
			break
		}
		got = append(got, cs.ID)
	}

	want := []ChipID{a, b, c}
	if len(got) != len(want) {
		t.Fatalf("visited %d chips, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chip[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if _, ok := ev.NextChip(); ok {
		t.Error("NextChip after exhaustion should report ok=false")
	}
}

func TestEvent_ChipWithNoWordsIsStillIterated(t *testing.T) {
	id := ChipID{Module: 4}
	ev := NewEvent(1, []Chip{{ID: id}})
	cs, ok := ev.NextChip()
	if !ok {
		t.Fatal("expected chip with empty words to be returned")
	}
	if len(cs.Words) != 0 {
		t.Errorf("expected no words, got %v", cs.Words)
	}
}

func TestEvent_EmptyChipDoesNotEndIteration(t *testing.T) {
	a, b, c := ChipID{Chip: 1}, ChipID{Chip: 2}, ChipID{Chip: 3}
	ev := NewEvent(5, []Chip{testChip(a, 1, 2, 3), {ID: b}, testChip(c, 4, 5, 6, 7)})

	var got []ChipID
	for cs, ok := ev.NextChip(); ok; cs, ok = ev.NextChip() {
		got = append(got, cs.ID)
	}
	if len(got) != 3 || got[2] != c {
		t.Errorf("visited %v, want all three chips ending with %v", got, c)
	}
}

func TestEvent_Accessors(t *testing.T) {
	id := ChipID{Layer: 2, Chip: 1}
	ev := NewEvent(42, []Chip{{
		ID:       id,
		Words:    []StreamWord{7, 9},
		Hits:     []RawHit{{Row: 1, Col: 1, ADC: 5}, {Row: 1, Col: 2, ADC: 3}},
		Clusters: []Cluster{{Hits: []PixelAddress{NewPixelAddress(1, 1), NewPixelAddress(1, 2)}}},
		WasSplit: true,
	}})

	if ev.EventIDRaw() != 42 {
		t.Errorf("EventIDRaw() = %d, want 42", ev.EventIDRaw())
	}
	if len(ev.ChipHits(id)) != 2 {
		t.Errorf("ChipHits len = %d, want 2", len(ev.ChipHits(id)))
	}
	if ev.ChipNClusters(id) != 1 {
		t.Errorf("ChipNClusters = %d, want 1", ev.ChipNClusters(id))
	}
	if !ev.ChipWasSplit(id) {
		t.Error("ChipWasSplit = false, want true")
	}

	missing := ChipID{Layer: 9}
	if ev.ChipHits(missing) != nil || ev.ChipNClusters(missing) != 0 || ev.ChipWasSplit(missing) {
		t.Error("accessors for absent chip should return zero values")
	}
}

func TestEvent_LiteralWithoutIndex(t *testing.T) {
	id := ChipID{Ladder: 5}
	ev := &Event{EventID: 3, Chips: []Chip{{ID: id, WasSplit: true}}}
	if !ev.ChipWasSplit(id) {
		t.Error("lookup on literal event should fall back to a scan")
	}
}

func TestEndOfStream(t *testing.T) {
	ev := EndOfStream()
	if !ev.IsEmpty() {
		t.Error("EndOfStream().IsEmpty() = false")
	}
	if _, ok := ev.NextChip(); ok {
		t.Error("sentinel event should yield no chips")
	}
	var nilEv *Event
	if !nilEv.IsEmpty() {
		t.Error("nil event should be empty")
	}
}

func TestRunMeta_Validate(t *testing.T) {
	tests := []struct {
		name    string
		meta    RunMeta
		wantErr bool
	}{
		{"valid", RunMeta{RunID: "run-1", Input: "data/run_0042.bin"}, false},
		{"missing run id", RunMeta{Input: "x.bin"}, true},
		{"missing input", RunMeta{RunID: "run-1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.meta.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
