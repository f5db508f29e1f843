package utils

import (
	"encoding/binary"
	"fmt"
	"math"
)

// BufStack is a little-endian cursor over a byte slice. Sub-buffers keep a
// link to their parent so error messages can print the whole chain.
// Callers validate ranges before creating sub-buffers; reads inside a
// validated sub-buffer do not re-check bounds.
type BufStack struct {
	parent         *BufStack
	buf            []byte
	absoluteOffset int
	pos            int
	kind           string
	name           string
}

func NewBufStack(kind string, b []byte) *BufStack {
	return &BufStack{
		buf:  b,
		kind: kind,
	}
}

// SubBuf returns a child view of length bytes at offset. The range must be valid.
func (bs *BufStack) SubBuf(kind string, offset, length int) *BufStack {
	return &BufStack{
		parent:         bs,
		buf:            bs.buf[offset : offset+length],
		absoluteOffset: bs.absoluteOffset + offset,
		kind:           kind,
	}
}

// Fits reports whether length bytes at offset lie inside the buffer.
func (bs *BufStack) Fits(offset, length int64) bool {
	return offset >= 0 && length >= 0 && offset+length <= int64(len(bs.buf))
}

func (bs *BufStack) SetName(name string) *BufStack {
	bs.name = name
	return bs
}

func (bs *BufStack) Name() string {
	return bs.name
}

func (bs *BufStack) Kind() string {
	return bs.kind
}

func (bs *BufStack) Size() int {
	return len(bs.buf)
}

func (bs *BufStack) Raw() []byte {
	return bs.buf
}

func (bs *BufStack) Pos() int {
	return bs.pos
}

func (bs *BufStack) String() string {
	return fmt.Sprintf("buf<%v>(%v)[ao:0x%x,s:0x%x,pos:0x%x]",
		bs.kind, bs.name, bs.absoluteOffset, len(bs.buf), bs.pos)
}

func (bs *BufStack) StringChain() string {
	s := bs.String()
	if bs.parent != nil {
		s += "::" + bs.parent.StringChain()
	}
	return s
}

func (bs *BufStack) Read(amount int) []byte {
	oldPos := bs.pos
	bs.pos += amount
	return bs.buf[oldPos:bs.pos]
}

func (bs *BufStack) Skip(amount int) {
	bs.pos += amount
}

func (bs *BufStack) ReadLU32() uint32 {
	return binary.LittleEndian.Uint32(bs.Read(4))
}

func (bs *BufStack) ReadLI32() int32 {
	return int32(bs.ReadLU32())
}

func (bs *BufStack) ReadLU16() uint16 {
	return binary.LittleEndian.Uint16(bs.Read(2))
}

func (bs *BufStack) ReadByte() byte {
	return bs.Read(1)[0]
}

func (bs *BufStack) ReadLF() float32 {
	return math.Float32frombits(bs.ReadLU32())
}

func (bs *BufStack) LU32(off int) uint32 {
	return binary.LittleEndian.Uint32(bs.buf[off:])
}

func (bs *BufStack) LU16(off int) uint16 {
	return binary.LittleEndian.Uint16(bs.buf[off:])
}

func (bs *BufStack) LF(off int) float32 {
	return math.Float32frombits(bs.LU32(off))
}
