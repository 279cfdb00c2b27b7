// Package deflate implements a DEFLATE (RFC 1951) block decoder: stored,
// fixed-Huffman, and dynamic-Huffman blocks, driving a tracking.Writer with
// literals and LZ77 back-references.
package deflate

import (
	"fmt"
	"io"

	"github.com/coreos/rgzip/bitio"
	"github.com/coreos/rgzip/huffman"
	"github.com/coreos/rgzip/tracking"
)

// CompressionType is a DEFLATE block's BTYPE field (RFC 1951 §3.2.3).
type CompressionType int

const (
	Uncompressed CompressionType = 0
	FixedTree    CompressionType = 1
	DynamicTree  CompressionType = 2
	reserved     CompressionType = 3
)

// BlockHeader is the 3-bit header present at the start of every DEFLATE block.
type BlockHeader struct {
	Final bool
	Type  CompressionType
}

// ErrReservedBlockType means a block's BTYPE field was 3, which RFC 1951
// reserves and never assigns a meaning to.
var ErrReservedBlockType = fmt.Errorf("deflate: reserved block type")

// ErrMalformedStoredBlock means a stored block's LEN/NLEN fields were
// inconsistent (NLEN must be the one's complement of LEN).
var ErrMalformedStoredBlock = fmt.Errorf("deflate: stored block LEN/NLEN mismatch")

// ErrMalformedHuffmanTable means a dynamic block's code length vectors
// could not be decoded into valid Huffman tables.
var ErrMalformedHuffmanTable = fmt.Errorf("deflate: malformed Huffman table")

// ErrBadBackReference means a length/distance token's distance exceeded
// the amount of output history available.
var ErrBadBackReference = fmt.Errorf("deflate: back-reference distance exceeds history")

// Decoder decodes a sequence of DEFLATE blocks from a bit reader, writing
// decompressed output (literals and resolved back-references) to a
// tracking.Writer.
type Decoder struct {
	br *bitio.Reader
	tw *tracking.Writer
}

// NewDecoder builds a Decoder reading compressed bits from br and writing
// decompressed output through tw.
func NewDecoder(br *bitio.Reader, tw *tracking.Writer) *Decoder {
	return &Decoder{br: br, tw: tw}
}

// NextBlock decodes one DEFLATE block, writing its output through the
// Decoder's tracking.Writer, and reports whether it was the final block of
// the stream (BFINAL=1).
func (d *Decoder) NextBlock() (final bool, err error) {
	bfinal, err := d.br.ReadBits(1)
	if err != nil {
		return false, fmt.Errorf("deflate: reading BFINAL: %w", err)
	}
	btype, err := d.br.ReadBits(2)
	if err != nil {
		return false, fmt.Errorf("deflate: reading BTYPE: %w", err)
	}

	switch CompressionType(btype.Bits) {
	case Uncompressed:
		if err := d.storedBlock(); err != nil {
			return false, err
		}
	case FixedTree:
		litlen, dist, err := fixedTables()
		if err != nil {
			return false, err
		}
		if err := d.tokenLoop(litlen, dist); err != nil {
			return false, err
		}
	case DynamicTree:
		litlen, dist, err := d.dynamicTables()
		if err != nil {
			return false, err
		}
		if err := d.tokenLoop(litlen, dist); err != nil {
			return false, err
		}
	case reserved:
		return false, ErrReservedBlockType
	}

	return bfinal.Bits == 1, nil
}

func (d *Decoder) storedBlock() error {
	src := d.br.RealignToByteBoundary()

	var lenBuf [4]byte
	if _, err := io.ReadFull(src, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("deflate: reading stored block length: %w", err)
	}
	length := uint16(lenBuf[0]) | uint16(lenBuf[1])<<8
	nlength := uint16(lenBuf[2]) | uint16(lenBuf[3])<<8
	if nlength != ^length {
		return ErrMalformedStoredBlock
	}

	if length == 0 {
		return nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(src, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("deflate: reading stored block data: %w", err)
	}
	if _, err := d.tw.Write(buf); err != nil {
		return fmt.Errorf("deflate: writing stored block data: %w", err)
	}
	return nil
}

func fixedTables() (litlen *huffman.Code[huffman.LitLenToken], dist *huffman.Code[huffman.DistanceToken], err error) {
	litlen, err = buildLitLenCode(huffman.FixedLitLenLengths)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: fixed litlen table: %w", err)
	}
	dist, err = buildDistanceCode(huffman.FixedDistanceLengths)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: fixed distance table: %w", err)
	}
	return litlen, dist, nil
}

func buildLitLenCode(lengths []uint8) (*huffman.Code[huffman.LitLenToken], error) {
	symbols := make([]huffman.LitLenToken, len(lengths))
	for i := range lengths {
		tok, err := huffman.LitLenTokenFromSymbol(i)
		if err != nil {
			return nil, err
		}
		symbols[i] = tok
	}
	return huffman.FromLengths(lengths, symbols)
}

func buildDistanceCode(lengths []uint8) (*huffman.Code[huffman.DistanceToken], error) {
	symbols := make([]huffman.DistanceToken, len(lengths))
	for i := range lengths {
		tok, err := huffman.DistanceTokenFromSymbol(i)
		if err != nil {
			return nil, err
		}
		symbols[i] = tok
	}
	return huffman.FromLengths(lengths, symbols)
}

// tokenLoop reads litlen/distance tokens until an end-of-block symbol,
// writing literals and resolving length/distance pairs into back-references.
func (d *Decoder) tokenLoop(litlen *huffman.Code[huffman.LitLenToken], dist *huffman.Code[huffman.DistanceToken]) error {
	for {
		tok, err := litlen.ReadSymbol(d.br)
		if err != nil {
			return fmt.Errorf("deflate: reading litlen symbol: %w", err)
		}
		switch tok.Kind {
		case huffman.LitLenLiteral:
			if _, err := d.tw.Write([]byte{tok.Literal}); err != nil {
				return fmt.Errorf("deflate: writing literal: %w", err)
			}
		case huffman.LitLenEndOfBlock:
			return nil
		case huffman.LitLenLength:
			length, err := d.readExtra(tok.Base, tok.Extra)
			if err != nil {
				return fmt.Errorf("deflate: reading length extra bits: %w", err)
			}
			distTok, err := dist.ReadSymbol(d.br)
			if err != nil {
				return fmt.Errorf("deflate: reading distance symbol: %w", err)
			}
			distance, err := d.readExtra(distTok.Base, distTok.Extra)
			if err != nil {
				return fmt.Errorf("deflate: reading distance extra bits: %w", err)
			}
			if err := d.tw.WritePrevious(distance, length); err != nil {
				return fmt.Errorf("%w: dist=%d len=%d: %v", ErrBadBackReference, distance, length, err)
			}
		}
	}
}

// readExtra reads n extra bits and adds them to base, per RFC 1951 §3.2.5.
func (d *Decoder) readExtra(base int, n uint8) (int, error) {
	if n == 0 {
		return base, nil
	}
	extra, err := d.br.ReadBits(n)
	if err != nil {
		return 0, err
	}
	return base + int(extra.Bits), nil
}
