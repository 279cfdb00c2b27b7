package huffman

import (
	"bytes"
	"testing"

	"github.com/coreos/rgzip/bitio"
)

// TestFromLengthsCanonical checks the canonical code construction against
// the worked example of lengths [2,3,4,3,3,4,2] over symbols 'A'..'G':
// code assignment by RFC 1951 §3.2.2 gives
//
//	A(2): 00   B(3): 100  C(4): 1110  D(3): 101  E(3): 110  F(4): 1111  G(2): 01
func TestFromLengthsCanonical(t *testing.T) {
	symbols := []byte{'A', 'B', 'C', 'D', 'E', 'F', 'G'}
	lengths := []uint8{2, 3, 4, 3, 3, 4, 2}

	code, err := FromLengths(lengths, symbols)
	if err != nil {
		t.Fatalf("FromLengths: %v", err)
	}

	want := map[bitio.Sequence]byte{
		bitio.New(0b00, 2):   'A',
		bitio.New(0b100, 3):  'B',
		bitio.New(0b1110, 4): 'C',
		bitio.New(0b101, 3):  'D',
		bitio.New(0b110, 3):  'E',
		bitio.New(0b1111, 4): 'F',
		bitio.New(0b01, 2):   'G',
	}
	for seq, sym := range want {
		got, ok := code.table[seq]
		if !ok {
			t.Errorf("code missing entry for %+v (want %q)", seq, sym)
			continue
		}
		if got != sym {
			t.Errorf("code[%+v] = %q, want %q", seq, got, sym)
		}
	}
	if len(code.table) != len(want) {
		t.Errorf("code has %d entries, want %d", len(code.table), len(want))
	}
}

// packMSBFirst packs a sequence of (value, width) fields most-significant-
// bit first into a byte slice, matching how Huffman codes are written to a
// DEFLATE stream, so ReadSymbol (which reads via the ordinary LSB-first
// bitio.Reader) can be exercised against realistic encoded input.
func packMSBFirst(fields ...[2]int) []byte {
	var bitBuf []int
	for _, f := range fields {
		val, width := f[0], f[1]
		for i := width - 1; i >= 0; i-- {
			bitBuf = append(bitBuf, (val>>uint(i))&1)
		}
	}
	for len(bitBuf)%8 != 0 {
		bitBuf = append(bitBuf, 0)
	}
	out := make([]byte, len(bitBuf)/8)
	for i, bit := range bitBuf {
		out[i/8] |= byte(bit) << uint(i%8)
	}
	return out
}

func TestReadSymbol(t *testing.T) {
	symbols := []byte{'A', 'B', 'C', 'D', 'E', 'F', 'G'}
	lengths := []uint8{2, 3, 4, 3, 3, 4, 2}
	code, err := FromLengths(lengths, symbols)
	if err != nil {
		t.Fatalf("FromLengths: %v", err)
	}

	// Encode "ADG": A=00 (2 bits), D=101 (3 bits), G=01 (2 bits).
	data := packMSBFirst([2]int{0b00, 2}, [2]int{0b101, 3}, [2]int{0b01, 2})
	r := bitio.NewReader(bytes.NewReader(data))

	want := []byte{'A', 'D', 'G'}
	for _, w := range want {
		got, err := code.ReadSymbol(r)
		if err != nil {
			t.Fatalf("ReadSymbol: %v", err)
		}
		if got != w {
			t.Errorf("ReadSymbol = %q, want %q", got, w)
		}
	}
}

func TestFromLengthsTooLong(t *testing.T) {
	_, err := FromLengths([]uint8{16}, []byte{'A'})
	if err != ErrTooLong {
		t.Errorf("FromLengths with length 16: got %v, want ErrTooLong", err)
	}
}

// TestFromLengthsOversubscribed checks that three symbols of length 1 (only
// two 1-bit codes exist) is rejected: the code lengths describe more
// symbols than the available code space at that length can hold.
func TestFromLengthsOversubscribed(t *testing.T) {
	_, err := FromLengths([]uint8{1, 1, 1}, []byte{'A', 'B', 'C'})
	if err != ErrOversubscribed {
		t.Errorf("FromLengths with 3 length-1 codes: got %v, want ErrOversubscribed", err)
	}
}

func TestFixedTables(t *testing.T) {
	if len(FixedLitLenLengths) != 288 {
		t.Errorf("len(FixedLitLenLengths) = %d, want 288", len(FixedLitLenLengths))
	}
	if len(FixedDistanceLengths) != 32 {
		t.Errorf("len(FixedDistanceLengths) = %d, want 32", len(FixedDistanceLengths))
	}
	for i, l := range FixedDistanceLengths {
		if l != 5 {
			t.Errorf("FixedDistanceLengths[%d] = %d, want 5", i, l)
		}
	}
}

func TestLitLenTokenFromSymbol(t *testing.T) {
	cases := []struct {
		sym  int
		want LitLenToken
	}{
		{0, LitLenToken{Kind: LitLenLiteral, Literal: 0}},
		{255, LitLenToken{Kind: LitLenLiteral, Literal: 255}},
		{256, LitLenToken{Kind: LitLenEndOfBlock}},
		{257, LitLenToken{Kind: LitLenLength, Base: 3, Extra: 0}},
		{264, LitLenToken{Kind: LitLenLength, Base: 10, Extra: 0}},
		{265, LitLenToken{Kind: LitLenLength, Base: 11, Extra: 1}},
		{285, LitLenToken{Kind: LitLenLength, Base: 258, Extra: 0}},
	}
	for _, c := range cases {
		got, err := LitLenTokenFromSymbol(c.sym)
		if err != nil {
			t.Fatalf("LitLenTokenFromSymbol(%d): %v", c.sym, err)
		}
		if got != c.want {
			t.Errorf("LitLenTokenFromSymbol(%d) = %+v, want %+v", c.sym, got, c.want)
		}
	}
}

func TestDistanceTokenFromSymbol(t *testing.T) {
	cases := []struct {
		sym  int
		want DistanceToken
	}{
		{0, DistanceToken{Base: 1, Extra: 0}},
		{3, DistanceToken{Base: 4, Extra: 0}},
		{4, DistanceToken{Base: 5, Extra: 1}},
		{29, DistanceToken{Base: 24577, Extra: 13}},
	}
	for _, c := range cases {
		got, err := DistanceTokenFromSymbol(c.sym)
		if err != nil {
			t.Fatalf("DistanceTokenFromSymbol(%d): %v", c.sym, err)
		}
		if got != c.want {
			t.Errorf("DistanceTokenFromSymbol(%d) = %+v, want %+v", c.sym, got, c.want)
		}
	}
}

func TestTreeCodeTokenFromSymbol(t *testing.T) {
	cases := []struct {
		sym  int
		want TreeCodeToken
	}{
		{0, TreeCodeToken{Kind: TreeCodeLength, Value: 0}},
		{15, TreeCodeToken{Kind: TreeCodeLength, Value: 15}},
		{16, TreeCodeToken{Kind: TreeCodeCopyPrev, Base: 3, Extra: 2}},
		{17, TreeCodeToken{Kind: TreeCodeRepeatZero, Base: 3, Extra: 3}},
		{18, TreeCodeToken{Kind: TreeCodeRepeatZero, Base: 11, Extra: 7}},
	}
	for _, c := range cases {
		got, err := TreeCodeTokenFromSymbol(c.sym)
		if err != nil {
			t.Fatalf("TreeCodeTokenFromSymbol(%d): %v", c.sym, err)
		}
		if got != c.want {
			t.Errorf("TreeCodeTokenFromSymbol(%d) = %+v, want %+v", c.sym, got, c.want)
		}
	}
}
