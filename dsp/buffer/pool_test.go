package buffer

import "testing"

func TestPoolGetReturnsZeroed(t *testing.T) {
	p := NewPool()

	b := p.Get(2, 8)
	if b.NumChannels() != 2 || b.Frames() != 8 {
		t.Fatalf("shape = %dx%d, want 2x8", b.NumChannels(), b.Frames())
	}

	for ch := range b.NumChannels() {
		for i, v := range b.Channel(ch) {
			if v != 0 {
				t.Fatalf("Channel(%d)[%d] = %v, want 0", ch, i, v)
			}
		}
	}

	p.Put(b)
}

func TestPoolReuseIsZeroed(t *testing.T) {
	p := NewPool()

	b := p.Get(2, 4)
	b.Channel(0)[0] = 42
	b.Channel(1)[3] = 43
	p.Put(b)

	b2 := p.Get(2, 4)
	for ch := range b2.NumChannels() {
		for i, v := range b2.Channel(ch) {
			if v != 0 {
				t.Fatalf("reused Channel(%d)[%d] = %v, want 0", ch, i, v)
			}
		}
	}

	p.Put(b2)
}

func TestPoolPutNilSafe(_ *testing.T) {
	p := NewPool()
	p.Put(nil) // must not panic
}
