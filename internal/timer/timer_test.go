package timer

import "testing"

func TestTIMA_FallingEdge_OnDIVWrite(t *testing.T) {
	var fired int
	tm := New(func() { fired++ })
	tm.TAC = 0x05 // enable + select bit3
	tm.TIMA = 0x10
	tm.Sys = 0x0008 // bit3=1
	if !tm.Input() {
		t.Fatalf("expected input true")
	}
	tm.WriteDIV() // resets Sys -> input false -> falling edge
	if tm.TIMA != 0x11 {
		t.Fatalf("TIMA not incremented on DIV falling edge: got %02X want 11", tm.TIMA)
	}
	if fired != 0 {
		t.Fatalf("overflow callback should not fire on a non-overflowing increment")
	}
}

func TestTIMA_FallingEdge_OnTACChange(t *testing.T) {
	tm := New(nil)
	tm.TIMA = 0x20
	tm.Sys = 0x0008 // bit3=1
	tm.TAC = 0x05   // enable + bit3 select
	if !tm.Input() {
		t.Fatalf("expected input true before TAC change")
	}
	tm.WriteTAC(0x06) // enable + bit5 select, which reads 0 now -> falling edge
	if tm.TIMA != 0x21 {
		t.Fatalf("TIMA not incremented on TAC falling edge: got %02X want 21", tm.TIMA)
	}
}

func TestTIMA_OverflowDelayedReload(t *testing.T) {
	var fired int
	tm := New(func() { fired++ })
	tm.TAC = 0x05
	tm.TMA = 0xAB
	tm.TIMA = 0xFF
	tm.Sys = 0x000F // next tick flips bit3 1->0: falling edge
	tm.Tick(1)
	if tm.TIMA != 0x00 {
		t.Fatalf("after overflow, TIMA got %02X want 00", tm.TIMA)
	}
	for i := 0; i < 3; i++ {
		tm.Tick(1)
		if tm.TIMA != 0x00 {
			t.Fatalf("during delay cycle %d, TIMA got %02X want 00", i, tm.TIMA)
		}
	}
	if fired != 0 {
		t.Fatalf("reload callback fired before the 4-cycle delay elapsed")
	}
	tm.Tick(1)
	if tm.TIMA != 0xAB {
		t.Fatalf("after delay, TIMA got %02X want AB", tm.TIMA)
	}
	if fired != 1 {
		t.Fatalf("expected exactly one reload callback, got %d", fired)
	}
}

func TestTIMA_ReloadCancelledByTIMAWrite(t *testing.T) {
	var fired int
	tm := New(func() { fired++ })
	tm.TAC = 0x05
	tm.TMA = 0x55
	tm.TIMA = 0xFF
	tm.Sys = 0x000F
	tm.Tick(1) // overflow -> pending reload
	tm.WriteTIMA(0x77)
	for i := 0; i < 8; i++ {
		tm.Tick(1)
	}
	if tm.TIMA != 0x77 {
		t.Fatalf("TIMA write during delay not retained: got %02X want 77", tm.TIMA)
	}
	if fired != 0 {
		t.Fatalf("reload callback fired despite cancellation")
	}
}

func TestTIMA_ReloadReflectsLateTMAWrite(t *testing.T) {
	tm := New(nil)
	tm.TAC = 0x05
	tm.TIMA = 0xFF
	tm.TMA = 0x11
	tm.Sys = 0x000F
	tm.Tick(1)             // overflow
	tm.WriteTMA(0x22) // change TMA during the pending delay
	for i := 0; i < 4; i++ {
		tm.Tick(1)
	}
	if tm.TIMA != 0x22 {
		t.Fatalf("TMA write during delay not reflected in reload: got %02X want 22", tm.TIMA)
	}
}

func TestTIMA_EdgeIgnoredDuringPendingReload(t *testing.T) {
	tm := New(nil)
	tm.TAC = 0x05
	tm.TMA = 0x33
	tm.TIMA = 0xFF
	tm.Sys = 0x000F
	tm.Tick(1) // overflow, pending reload
	tm.Sys = 0x0008
	if !tm.Input() {
		t.Fatalf("expected input true before falling edge")
	}
	tm.WriteDIV() // would normally increment, but reload is pending
	if tm.TIMA != 0x00 {
		t.Fatalf("TIMA incremented during pending reload: got %02X want 00", tm.TIMA)
	}
	for i := 0; i < 4; i++ {
		tm.Tick(1)
	}
	if tm.TIMA != 0x33 {
		t.Fatalf("reload did not occur: got %02X want 33", tm.TIMA)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	tm := New(nil)
	tm.TAC, tm.TMA, tm.TIMA, tm.Sys = 0x05, 0x42, 0x10, 0x1234
	s := tm.Snapshot()

	tm2 := New(nil)
	tm2.Restore(s)
	if tm2.TAC != tm.TAC || tm2.TMA != tm.TMA || tm2.TIMA != tm.TIMA || tm2.Sys != tm.Sys {
		t.Fatalf("snapshot round-trip mismatch")
	}
}
