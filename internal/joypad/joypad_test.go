package joypad

import "testing"

func TestJoypad_DefaultReadsAllHigh(t *testing.T) {
	j := New(nil)
	if got := j.Read() & 0x0F; got != 0x0F {
		t.Fatalf("default lower nibble got %02X want 0F", got)
	}
}

func TestJoypad_DPadSelection(t *testing.T) {
	j := New(nil)
	j.WriteSelect(0x20) // P14=0 selects D-Pad
	j.SetState(Right | Up)
	if got := j.Read() & 0x0F; got != 0x0A {
		t.Fatalf("D-Pad got %02X want 0A", got)
	}
}

func TestJoypad_ButtonSelection(t *testing.T) {
	j := New(nil)
	j.WriteSelect(0x10) // P15=0 selects buttons
	j.SetState(A | Start)
	if got := j.Read() & 0x0F; got != 0x06 {
		t.Fatalf("buttons got %02X want 06", got)
	}
}

func TestJoypad_EdgeTriggeredInterrupt(t *testing.T) {
	var fired int
	j := New(func() { fired++ })
	j.WriteSelect(0x20) // D-Pad selected, nothing pressed yet
	if fired != 0 {
		t.Fatalf("unexpected interrupt with no buttons pressed")
	}
	j.SetState(Down) // 1->0 transition on bit3
	if fired != 1 {
		t.Fatalf("expected exactly one interrupt on press, got %d", fired)
	}
	j.SetState(Down) // already low, no new edge
	if fired != 1 {
		t.Fatalf("unexpected extra interrupt with no new edge, got %d", fired)
	}
	j.SetState(0) // release: 0->1, not a falling edge
	if fired != 1 {
		t.Fatalf("release should not raise an interrupt, got %d", fired)
	}
}

func TestJoypad_SnapshotRoundTrip(t *testing.T) {
	j := New(nil)
	j.WriteSelect(0x10)
	j.SetState(A | B)
	s := j.Snapshot()

	j2 := New(nil)
	j2.Restore(s)
	if j2.Read() != j.Read() {
		t.Fatalf("snapshot round-trip mismatch")
	}
}
