package vm

import "github.com/clj-core/clj/internal/runtime"

// Chunk is one function's (or the top level's) compiled bytecode: code
// plus its constant pool and a parallel source-position side table, per
// spec §4.5. Grounded on internal/vm/chunk.go's (Code, Constants, Lines,
// Columns, File) shape, generalized with two more pools: Templates for
// OpClosure/OpMakeLazy, which reference compiled sub-chunks, and Protos for
// OpDefProto/OpExtendType, which reference signature or extension lists,
// rather than a literal runtime.Value.
type Chunk struct {
	Code      []byte
	Constants []runtime.Value
	Templates []*closureTemplate
	Protos    []*protoTemplate
	Lines     []int
	File      string
}

func NewChunk(file string) *Chunk {
	return &Chunk{File: file}
}

// Write appends a raw byte with its source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op Opcode, line int) { c.Write(byte(op), line) }

// WriteU16 appends a big-endian 16-bit operand.
func (c *Chunk) WriteU16(v int, line int) {
	c.Write(byte(v>>8), line)
	c.Write(byte(v), line)
}

// ReadU16 reads a big-endian 16-bit operand at offset.
func (c *Chunk) ReadU16(offset int) int {
	return int(c.Code[offset])<<8 | int(c.Code[offset+1])
}

// PatchU16 overwrites a previously-written 16-bit operand (used to back-
// patch forward jumps once their target is known).
func (c *Chunk) PatchU16(offset, v int) {
	c.Code[offset] = byte(v >> 8)
	c.Code[offset+1] = byte(v)
}

// AddConstant interns value into the constant pool and returns its index.
func (c *Chunk) AddConstant(value runtime.Value) int {
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// AddTemplate interns a closure template (compiled fn/lazy-seq body) and
// returns its index.
func (c *Chunk) AddTemplate(t *closureTemplate) int {
	c.Templates = append(c.Templates, t)
	return len(c.Templates) - 1
}

// AddProto interns a defprotocol/extend-type description and returns its
// index.
func (c *Chunk) AddProto(p *protoTemplate) int {
	c.Protos = append(c.Protos, p)
	return len(c.Protos) - 1
}

// Len returns the number of bytes emitted so far, used as both the
// current program counter and as a jump-patch anchor.
func (c *Chunk) Len() int { return len(c.Code) }
