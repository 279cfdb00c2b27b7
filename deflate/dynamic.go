package deflate

import (
	"fmt"

	"github.com/coreos/rgzip/huffman"
)

// dynamicTables decodes a dynamic block's header (RFC 1951 §3.2.7): the
// HLIT/HDIST/HCLEN counts, the 19-symbol code-length alphabet table, and
// the litlen/distance code length vectors it encodes, then builds the
// corresponding Huffman tables.
func (d *Decoder) dynamicTables() (litlen *huffman.Code[huffman.LitLenToken], dist *huffman.Code[huffman.DistanceToken], err error) {
	hlitSeq, err := d.br.ReadBits(5)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: reading HLIT: %w", err)
	}
	hdistSeq, err := d.br.ReadBits(5)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: reading HDIST: %w", err)
	}
	hclenSeq, err := d.br.ReadBits(4)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: reading HCLEN: %w", err)
	}
	hlit := int(hlitSeq.Bits) + 257
	hdist := int(hdistSeq.Bits) + 1
	hclen := int(hclenSeq.Bits) + 4

	var treeLengths [19]uint8
	for i := 0; i < hclen; i++ {
		l, err := d.br.ReadBits(3)
		if err != nil {
			return nil, nil, fmt.Errorf("deflate: reading code-length code %d: %w", i, err)
		}
		treeLengths[huffman.TreeCodeOrder[i]] = uint8(l.Bits)
	}

	treeSymbols := make([]huffman.TreeCodeToken, 19)
	for i := 0; i < 19; i++ {
		tok, err := huffman.TreeCodeTokenFromSymbol(i)
		if err != nil {
			return nil, nil, err
		}
		treeSymbols[i] = tok
	}
	treeCode, err := huffman.FromLengths(treeLengths[:], treeSymbols)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: code-length table: %v", ErrMalformedHuffmanTable, err)
	}

	lengths, err := d.decodeLengthVector(treeCode, hlit+hdist)
	if err != nil {
		return nil, nil, err
	}

	litlen, err = buildLitLenCode(padLengths(lengths[:hlit], 288))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: litlen table: %v", ErrMalformedHuffmanTable, err)
	}
	dist, err = buildDistanceCode(padLengths(lengths[hlit:hlit+hdist], 32))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: distance table: %v", ErrMalformedHuffmanTable, err)
	}
	return litlen, dist, nil
}

// decodeLengthVector decodes total code lengths (for the concatenated
// litlen+distance vectors) using the code-length alphabet's Length,
// CopyPrev, and RepeatZero tokens.
func (d *Decoder) decodeLengthVector(treeCode *huffman.Code[huffman.TreeCodeToken], total int) ([]uint8, error) {
	lengths := make([]uint8, 0, total)
	for len(lengths) < total {
		tok, err := treeCode.ReadSymbol(d.br)
		if err != nil {
			return nil, fmt.Errorf("deflate: reading code-length symbol: %w", err)
		}
		switch tok.Kind {
		case huffman.TreeCodeLength:
			lengths = append(lengths, tok.Value)
		case huffman.TreeCodeCopyPrev:
			if len(lengths) == 0 {
				return nil, fmt.Errorf("%w: copy-previous at position 0", ErrMalformedHuffmanTable)
			}
			count, err := d.readExtra(int(tok.Base), tok.Extra)
			if err != nil {
				return nil, fmt.Errorf("deflate: reading copy-previous count: %w", err)
			}
			prev := lengths[len(lengths)-1]
			for i := 0; i < count && len(lengths) < total; i++ {
				lengths = append(lengths, prev)
			}
		case huffman.TreeCodeRepeatZero:
			count, err := d.readExtra(int(tok.Base), tok.Extra)
			if err != nil {
				return nil, fmt.Errorf("deflate: reading repeat-zero count: %w", err)
			}
			for i := 0; i < count && len(lengths) < total; i++ {
				lengths = append(lengths, 0)
			}
		}
	}
	return lengths, nil
}

// padLengths extends lengths to size n with zero (unused) lengths, as the
// fixed-size canonical construction expects one entry per symbol in the
// full alphabet even when the dynamic header only transmits a prefix.
func padLengths(lengths []uint8, n int) []uint8 {
	if len(lengths) >= n {
		return lengths
	}
	out := make([]uint8, n)
	copy(out, lengths)
	return out
}
