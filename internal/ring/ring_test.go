package ring

import "testing"

func TestBufferAdd(t *testing.T) {
	rb := New[int](5)
	for i := 0; i < 3; i++ {
		rb.Add(i)
	}
	if rb.Len() != 3 {
		t.Errorf("expected len 3, got %d", rb.Len())
	}
}

func TestBufferWrap(t *testing.T) {
	rb := New[int](3)
	overwrites := 0
	for i := 0; i < 5; i++ {
		if rb.Add(i) {
			overwrites++
		}
	}
	if rb.Len() != 3 {
		t.Errorf("expected len 3, got %d", rb.Len())
	}
	if overwrites != 2 {
		t.Errorf("expected 2 overwrites, got %d", overwrites)
	}
	items := rb.All()
	if items[0] != 2 {
		t.Errorf("expected oldest item 2, got %d", items[0])
	}
	if items[2] != 4 {
		t.Errorf("expected newest item 4, got %d", items[2])
	}
}

func TestBufferEmpty(t *testing.T) {
	rb := New[int](10)
	if rb.Len() != 0 {
		t.Error("new ring buffer should be empty")
	}
	if len(rb.All()) != 0 {
		t.Error("All() on empty buffer should return empty slice")
	}
	if _, ok := rb.Last(); ok {
		t.Error("Last() on empty buffer should return false")
	}
}

func TestBufferLast(t *testing.T) {
	rb := New[int](5)
	rb.Add(1)
	rb.Add(2)
	rb.Add(3)
	last, ok := rb.Last()
	if !ok {
		t.Fatal("Last() should return true for non-empty buffer")
	}
	if last != 3 {
		t.Errorf("expected 3, got %d", last)
	}
}

func TestBufferNewestAndDrain(t *testing.T) {
	rb := New[int](4)
	for i := 1; i <= 6; i++ {
		rb.Add(i)
	}
	got := rb.Newest(2)
	if len(got) != 2 || got[0] != 6 || got[1] != 5 {
		t.Errorf("Newest(2) = %v, want [6 5]", got)
	}
	if n := len(rb.Newest(99)); n != 4 {
		t.Errorf("Newest(99) returned %d items, want 4", n)
	}

	drained := rb.Drain()
	want := []int{6, 5, 4, 3}
	for i := range want {
		if drained[i] != want[i] {
			t.Fatalf("Drain() = %v, want %v", drained, want)
		}
	}
	if rb.Len() != 0 {
		t.Errorf("expected empty buffer after Drain, got %d", rb.Len())
	}
	rb.Add(7)
	if last, _ := rb.Last(); last != 7 {
		t.Errorf("expected 7 after reuse, got %d", last)
	}
}

func TestBufferResize(t *testing.T) {
	rb := New[int](5)
	for i := 0; i < 5; i++ {
		rb.Add(i)
	}
	small := rb.Resize(2)
	items := small.All()
	if len(items) != 2 || items[0] != 3 || items[1] != 4 {
		t.Errorf("Resize(2) kept %v, want [3 4]", items)
	}
	big := rb.Resize(10)
	if big.Len() != 5 || big.Cap() != 10 {
		t.Errorf("Resize(10) len=%d cap=%d", big.Len(), big.Cap())
	}
}

func TestBufferZeroCapacity(t *testing.T) {
	rb := New[string](0)
	rb.Add("a")
	rb.Add("b")
	if rb.Len() != 1 || rb.Cap() != 1 {
		t.Errorf("expected clamp to capacity 1, got len=%d cap=%d", rb.Len(), rb.Cap())
	}
}
