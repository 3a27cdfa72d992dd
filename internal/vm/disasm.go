package vm

import (
	"fmt"
	"strings"

	"github.com/clj-core/clj/internal/runtime"
)

// Disassemble returns a human-readable listing of chunk's instructions,
// recursing into every closure template it holds constants for. Grounded
// on internal/vm/disasm.go's Disassemble/disassembleInstruction pair,
// adapted to this opcode set's operand widths (opcodes.go's comments next
// to each Opcode name the authoritative encoding).
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("== %s ==\n", name))
	offset := 0
	for offset < len(chunk.Code) {
		offset = disassembleInstruction(&sb, chunk, offset)
	}
	return sb.String()
}

func disassembleInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	sb.WriteString(fmt.Sprintf("%04d ", offset))
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", chunk.Lines[offset]))
	}

	op := Opcode(chunk.Code[offset])
	name, known := OpcodeNames[op]
	if !known {
		sb.WriteString(fmt.Sprintf("unknown opcode %d\n", op))
		return offset + 1
	}

	switch op {
	case OpNil, OpTrue, OpFalse, OpPop, OpGetSelf, OpReturn, OpThrow, OpTryPop,
		OpMarkMacro, OpAdd, OpSub, OpMul, OpLt, OpLe, OpEq,
		OpMap, OpFilter, OpTakeWhile, OpDropWhile, OpMapIndexed, OpSortBy, OpGroupBy:
		return simpleInstruction(sb, name, offset)

	case OpConst:
		return constantInstruction(sb, name, chunk, offset)
	case OpDef, OpVarGet, OpDefMulti, OpDefMethod:
		return constantInstruction(sb, name, chunk, offset)

	case OpPopBelow, OpLoadLocal, OpSetLocal, OpGetUpvalue,
		OpJump, OpJumpIfFalse, OpApplyForm, OpPartial, OpComp, OpSwapAtom:
		return u16Instruction(sb, name, chunk, offset)

	case OpCall, OpTailCall, OpReduce:
		return byteInstruction(sb, name, chunk, offset)

	case OpRecur:
		argc := chunk.Code[offset+1]
		startPC := chunk.ReadU16(offset + 2)
		slotBase := chunk.ReadU16(offset + 4)
		sb.WriteString(fmt.Sprintf("%-16s argc=%d start=%d base=%d\n", name, argc, startPC, slotBase))
		return offset + 6

	case OpTryPush:
		catchPC := chunk.ReadU16(offset + 1)
		finallyPC := chunk.ReadU16(offset + 3)
		afterPC := chunk.ReadU16(offset + 5)
		sb.WriteString(fmt.Sprintf("%-16s catch=%d finally=%d after=%d\n", name, catchPC, finallyPC, afterPC))
		return offset + 7

	case OpClosure, OpMakeLazy:
		return closureInstruction(sb, name, chunk, offset)

	case OpDefProto, OpExtendType:
		idx := chunk.ReadU16(offset + 1)
		if idx < len(chunk.Protos) {
			sb.WriteString(fmt.Sprintf("%-16s %4d (proto %s)\n", name, idx, chunk.Protos[idx].protoName))
		} else {
			sb.WriteString(fmt.Sprintf("%-16s %4d (invalid)\n", name, idx))
		}
		return offset + 3

	default:
		sb.WriteString(fmt.Sprintf("%-16s (unhandled in disassembler)\n", name))
		return offset + 1
	}
}

func simpleInstruction(sb *strings.Builder, name string, offset int) int {
	sb.WriteString(name + "\n")
	return offset + 1
}

func constantInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	idx := chunk.ReadU16(offset + 1)
	if idx < len(chunk.Constants) {
		sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", name, idx, runtimeInspect(chunk.Constants[idx])))
	} else {
		sb.WriteString(fmt.Sprintf("%-16s %4d (invalid)\n", name, idx))
	}
	return offset + 3
}

func u16Instruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	v := chunk.ReadU16(offset + 1)
	sb.WriteString(fmt.Sprintf("%-16s %4d\n", name, v))
	return offset + 3
}

func byteInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	v := chunk.Code[offset+1]
	sb.WriteString(fmt.Sprintf("%-16s %4d\n", name, v))
	return offset + 2
}

func closureInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	idx := chunk.ReadU16(offset + 1)
	offset += 3
	if idx >= len(chunk.Templates) {
		sb.WriteString(fmt.Sprintf("%-16s %4d (invalid)\n", name, idx))
		return offset
	}
	tmpl := chunk.Templates[idx]
	sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", name, idx, tmpl.name))
	for i, arity := range tmpl.arities {
		sub := Disassemble(arity.chunk, fmt.Sprintf("%s[arity %d]", tmpl.name, i))
		indented := strings.ReplaceAll(sub, "\n", "\n    | ")
		sb.WriteString("    | " + indented + "\n")
	}
	return offset
}

// runtimeInspect prints a constant pool value the way the printer would,
// printing "nil" for a nil entry so a debug tool never panics on one.
func runtimeInspect(v runtime.Value) string {
	if v == nil {
		return "nil"
	}
	return v.Print()
}
