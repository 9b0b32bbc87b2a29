package stage

import (
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/bitbuffer"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/errs"
)

// LZMH: a hybrid LZ77 + adaptive literal coder, after Ringwelski et al.,
// "The Hitchhiker's guide to choosing the compression algorithm for your
// smart meter data" (ENERGYCON 2012). Bit grammar:
//
//	00 + byte                uncompressed literal
//	010 + offset(7) + length new-offset LZ match
//	0110 + length            most-recently-used offset
//	01110 + length           second most-recently-used offset
//	011110 + length          third most-recently-used offset
//	011111 + length          fourth most-recently-used offset
//	1 + huffman code         frequency-ranked literal
//
// Length is encoded as 0+3 bits (3-10), 10+3 bits (11-18), or 11+8 bits
// (19-274). This implementation keeps the whole input in memory (the
// original's bounded ring buffer was a memory-footprint optimization for
// an embedded target, not a semantic requirement) and decomposes every
// code into its constituent bit fields instead of assembling one 32-bit
// shift register, which is equivalent bit-for-bit since both are just a
// sequential MSB-first bitstream.
const (
	lzMaxOffset     = 128
	lzMaxLength     = 274
	lzHuffListSize  = 48
	lzTreeLength    = 19
	lzHuffNotFound  = -1
)

type lzmhTreeEntry struct {
	code   uint8
	length uint8
}

var lzmhTree = [lzTreeLength]lzmhTreeEntry{
	{0x0F, 4}, {0x0E, 4}, {0x0D, 4}, {0x0C, 4},
	{0x17, 5}, {0x16, 5}, {0x15, 5}, {0x14, 5}, {0x13, 5},
	{0x25, 6}, {0x24, 6}, {0x23, 6}, {0x22, 6},
	{0x43, 7}, {0x42, 7},
	{0x83, 8}, {0x82, 8}, {0x81, 8}, {0x80, 8},
}

type lzmhListEntry struct {
	symbol byte
	count  int
}

// lzmhUpdateList searches list for symbol, returning its rank BEFORE this
// call's update (the rank used to choose its Huffman code), or
// lzHuffNotFound if it wasn't present (in which case it is appended to
// the first free slot). A found entry's count is incremented and bubbled
// up past lower-count neighbors, mirroring the original's frequency-
// ranked move-to-front list.
func lzmhUpdateList(list *[lzHuffListSize]lzmhListEntry, symbol byte) int {
	length := 0
	for length < lzHuffListSize && list[length].count > 0 {
		if list[length].symbol == symbol {
			found := length
			lzmhBubbleUpdateAt(list, length)
			return found
		}
		length++
	}
	if length < lzHuffListSize {
		list[length].symbol = symbol
		list[length].count = 1
	}
	return lzHuffNotFound
}

// lzmhBubbleUpdateAt increments the count at index and bubbles the entry
// up past neighbors with a lower (stale) count, used both by
// lzmhUpdateList and directly by the decoder's Huffman-code path (which
// already knows the rank from the matched tree entry).
func lzmhBubbleUpdateAt(list *[lzHuffListSize]lzmhListEntry, index int) {
	if list[index].count >= (1<<16)-1 {
		return
	}
	symbol := list[index].symbol
	newCount := list[index].count + 1
	i := index
	for i > 0 && newCount > list[i-1].count {
		list[i].symbol = list[i-1].symbol
		i--
	}
	list[i].count = newCount
	list[i].symbol = symbol
}

func readAllBytes(in *bitbuffer.Buffer) ([]byte, error) {
	var data []byte
	var buf [1]byte
	for {
		atEnd, err := in.AtEnd()
		if err != nil {
			return nil, err
		}
		if atEnd {
			break
		}
		if err := checkedReadBits(in, buf[:], 8); err != nil {
			return nil, err
		}
		data = append(data, buf[0])
	}
	return data, nil
}

// EncodeLZMH greedily searches up to 128 bytes of history for the longest
// match (minimum length 3) within the next 274 bytes, coding matches as
// LZ77 offset/length pairs (with a 4-entry most-recently-used offset
// cache) and everything else as adaptively Huffman- or byte-coded
// literals.
func EncodeLZMH(in, out *bitbuffer.Buffer, opts *Options) error {
	data, err := readAllBytes(in)
	if err != nil {
		return err
	}
	n := len(data)
	var list [lzHuffListSize]lzmhListEntry
	var offsets [4]int

	pos := 0
	for pos < n {
		maxOffset := lzMaxOffset
		if pos < maxOffset {
			maxOffset = pos
		}
		maxLength := lzMaxLength
		if n-pos < maxLength {
			maxLength = n - pos
		}

		bestLength := 2
		bestOffset := 0
		for offset := 1; offset <= maxOffset && bestLength < maxLength; offset++ {
			if data[pos-offset] != data[pos] {
				continue
			}
			length := 1
			for length < maxLength && data[pos-offset+length] == data[pos+length] {
				length++
			}
			if length > bestLength {
				bestLength = length
				bestOffset = offset
			}
		}

		if bestLength >= 3 {
			if err := lzmhWriteMatch(out, &offsets, bestOffset, bestLength); err != nil {
				return err
			}
			pos += bestLength
			continue
		}

		symbol := data[pos]
		pos++
		found := lzmhUpdateList(&list, symbol)
		if found != lzHuffNotFound && found < lzTreeLength {
			entry := lzmhTree[found]
			if err := checkedWriteValue(out, uint64(entry.code), int(entry.length)); err != nil {
				return err
			}
		} else {
			if err := checkedWriteValue(out, 0, 2); err != nil {
				return err
			}
			if err := checkedWriteValue(out, uint64(symbol), 8); err != nil {
				return err
			}
		}
	}
	return nil
}

func lzmhWriteMatch(out *bitbuffer.Buffer, offsets *[4]int, bestOffset, bestLength int) error {
	switch bestOffset {
	case offsets[0]:
		if err := checkedWriteValue(out, 0b0110, 4); err != nil {
			return err
		}
	case offsets[1]:
		offsets[1], offsets[0] = offsets[0], bestOffset
		if err := checkedWriteValue(out, 0b01110, 5); err != nil {
			return err
		}
	case offsets[2]:
		offsets[2], offsets[1], offsets[0] = offsets[1], offsets[0], bestOffset
		if err := checkedWriteValue(out, 0b011110, 6); err != nil {
			return err
		}
	case offsets[3]:
		offsets[3], offsets[2], offsets[1], offsets[0] = offsets[2], offsets[1], offsets[0], bestOffset
		if err := checkedWriteValue(out, 0b011111, 6); err != nil {
			return err
		}
	default:
		offsets[3], offsets[2], offsets[1], offsets[0] = offsets[2], offsets[1], offsets[0], bestOffset
		if err := checkedWriteValue(out, 0b010, 3); err != nil {
			return err
		}
		if err := checkedWriteValue(out, uint64(bestOffset-1), 7); err != nil {
			return err
		}
	}
	switch {
	case bestLength < 11:
		if err := checkedWriteValue(out, 0, 1); err != nil {
			return err
		}
		return checkedWriteValue(out, uint64(bestLength-3), 3)
	case bestLength < 19:
		if err := checkedWriteValue(out, 0b10, 2); err != nil {
			return err
		}
		return checkedWriteValue(out, uint64(bestLength-11), 3)
	default:
		if err := checkedWriteValue(out, 0b11, 2); err != nil {
			return err
		}
		return checkedWriteValue(out, uint64(bestLength-19), 8)
	}
}

// readBitsOrEOF reads an n-bit value, returning ok=false (no error) when
// fewer than n bits remain. A trailing partial code at the very end of a
// stream is a harmless artifact of byte-granular flushing (the bit buffer
// zero-pads the final byte), not a corrupt stream, so the decoder treats
// it as a clean stop rather than an error.
func readBitsOrEOF(in *bitbuffer.Buffer, n int) (uint64, bool, error) {
	v, read, err := in.ReadValue(n)
	if err != nil {
		return 0, false, err
	}
	if read != n {
		return 0, false, nil
	}
	return v, true, nil
}

func lzmhDecodeOffset(in *bitbuffer.Buffer, offsets *[4]int) (int, bool, error) {
	b3, ok, err := readBitsOrEOF(in, 1)
	if err != nil || !ok {
		return 0, ok, err
	}
	if b3 == 0 {
		v, ok, err := readBitsOrEOF(in, 7)
		if err != nil || !ok {
			return 0, ok, err
		}
		offset := int(v) + 1
		offsets[3], offsets[2], offsets[1], offsets[0] = offsets[2], offsets[1], offsets[0], offset
		return offset, true, nil
	}
	b4, ok, err := readBitsOrEOF(in, 1)
	if err != nil || !ok {
		return 0, ok, err
	}
	if b4 == 0 {
		return offsets[0], true, nil
	}
	b5, ok, err := readBitsOrEOF(in, 1)
	if err != nil || !ok {
		return 0, ok, err
	}
	if b5 == 0 {
		offset := offsets[1]
		offsets[1], offsets[0] = offsets[0], offset
		return offset, true, nil
	}
	b6, ok, err := readBitsOrEOF(in, 1)
	if err != nil || !ok {
		return 0, ok, err
	}
	if b6 == 0 {
		offset := offsets[2]
		offsets[2], offsets[1], offsets[0] = offsets[1], offsets[0], offset
		return offset, true, nil
	}
	offset := offsets[3]
	offsets[3], offsets[2], offsets[1], offsets[0] = offsets[2], offsets[1], offsets[0], offset
	return offset, true, nil
}

func lzmhDecodeLength(in *bitbuffer.Buffer) (int, bool, error) {
	l1, ok, err := readBitsOrEOF(in, 1)
	if err != nil || !ok {
		return 0, ok, err
	}
	if l1 == 0 {
		v, ok, err := readBitsOrEOF(in, 3)
		if err != nil || !ok {
			return 0, ok, err
		}
		return int(v) + 3, true, nil
	}
	l2, ok, err := readBitsOrEOF(in, 1)
	if err != nil || !ok {
		return 0, ok, err
	}
	if l2 == 0 {
		v, ok, err := readBitsOrEOF(in, 3)
		if err != nil || !ok {
			return 0, ok, err
		}
		return int(v) + 11, true, nil
	}
	v, ok, err := readBitsOrEOF(in, 8)
	if err != nil || !ok {
		return 0, ok, err
	}
	return int(v) + 19, true, nil
}

// lzmhDecodeHuffman reads one bit at a time (the leading 1 bit already
// consumed by the caller) until the accumulated bits match a tree entry.
// ok=false signals a clean end of stream reached mid-code.
func lzmhDecodeHuffman(in *bitbuffer.Buffer) (index int, ok bool, err error) {
	code := uint64(1)
	length := 1
	for {
		for i, entry := range lzmhTree {
			if int(entry.length) == length && code == uint64(entry.code) {
				return i, true, nil
			}
		}
		if length >= 8 {
			return 0, false, errs.New(errs.InvalidFormat, "no matching LZMH Huffman code")
		}
		bit, ok, err := readBitsOrEOF(in, 1)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			return 0, false, nil
		}
		code = code<<1 | bit
		length++
	}
}

// DecodeLZMH reverses EncodeLZMH.
func DecodeLZMH(in, out *bitbuffer.Buffer, opts *Options) error {
	var list [lzHuffListSize]lzmhListEntry
	var offsets [4]int
	var history []byte

	for {
		atEnd, err := in.AtEnd()
		if err != nil {
			return err
		}
		if atEnd {
			break
		}
		b1, ok, err := readBitsOrEOF(in, 1)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		if b1 == 1 {
			idx, ok, err := lzmhDecodeHuffman(in)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			symbol := list[idx].symbol
			if err := checkedWriteBits(out, []byte{symbol}, 8); err != nil {
				return err
			}
			history = append(history, symbol)
			lzmhBubbleUpdateAt(&list, idx)
			continue
		}

		b2, ok, err := readBitsOrEOF(in, 1)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if b2 == 0 {
			v, ok, err := readBitsOrEOF(in, 8)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			symbol := byte(v)
			if err := checkedWriteBits(out, []byte{symbol}, 8); err != nil {
				return err
			}
			history = append(history, symbol)
			lzmhUpdateList(&list, symbol)
			continue
		}

		offset, ok, err := lzmhDecodeOffset(in, &offsets)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		length, ok, err := lzmhDecodeLength(in)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		for k := 0; k < length; k++ {
			if offset > len(history) {
				return errs.New(errs.InvalidFormat, "LZMH back-reference offset %d exceeds history length %d", offset, len(history))
			}
			b := history[len(history)-offset]
			history = append(history, b)
			if err := checkedWriteBits(out, []byte{b}, 8); err != nil {
				return err
			}
		}
	}
	return nil
}
