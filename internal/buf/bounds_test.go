package buf

import (
	"errors"
	"math"
	"testing"
)

func TestSpanBytes(t *testing.T) {
	if n, ok := spanBytes(1024, 64); !ok || n != 65536 {
		t.Fatalf("spanBytes(1024,64)=%d,%v", n, ok)
	}
	if _, ok := spanBytes(math.MaxInt, 2); ok {
		t.Fatalf("expected overflow")
	}
	if n, ok := spanBytes(0, 64); !ok || n != 0 {
		t.Fatalf("spanBytes(0,64)=%d,%v", n, ok)
	}
}

func TestWord(t *testing.T) {
	data := make([]byte, 8)
	if w := word(data, 4); len(w) != 4 {
		t.Fatalf("word(4) len = %d", len(w))
	}
	for _, off := range []int{-1, 5, 8, math.MaxInt} {
		if w := word(data, off); w != nil {
			t.Fatalf("word(%d) should not fit", off)
		}
	}
}

func TestCheckSpanBounds(t *testing.T) {
	tests := []struct {
		name      string
		arenaLen  int
		offset    int
		count     int
		blockSize int
		wantEnd   int
		wantErr   bool
	}{
		{"fits exactly", 256, 128, 2, 64, 256, false},
		{"zero count", 256, 64, 0, 64, 64, false},
		{"past end", 256, 192, 2, 64, 0, true},
		{"offset past end", 256, 320, 0, 64, 0, true},
		{"negative offset", 256, -64, 1, 64, 0, true},
		{"negative count", 256, 0, -1, 64, 0, true},
		{"zero block size", 256, 0, 1, 0, 0, true},
		{"overflow", 256, 0, math.MaxInt, 64, 0, true},
		{"offset near max", 256, math.MaxInt - 10, 1, 64, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end, err := CheckSpanBounds(tt.arenaLen, tt.offset, tt.count, tt.blockSize)
			if tt.wantErr {
				if !errors.Is(err, ErrSpanBounds) {
					t.Fatalf("err = %v, want ErrSpanBounds (end=%d)", err, end)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if end != tt.wantEnd {
				t.Fatalf("end = %d, want %d", end, tt.wantEnd)
			}
		})
	}
}
