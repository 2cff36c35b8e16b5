// Package vm defines the values, instructions, scripts and ABI descriptions
// that are executed by the runtime.
package vm

import (
	"encoding/json"
	"fmt"
)

// Opcode identifies an instruction.
type Opcode byte

// Set of opcodes understood by the runtime.
const (
	OpNop Opcode = iota
	OpPush
	OpDrop
	OpDup
	OpSwap
	OpCall
	OpInterop
	OpAssert
	OpThrow
	OpRet
	OpJump
	OpJumpIfNot
	OpEqual
	OpAdd
	OpSub
)

var opNames = map[Opcode]string{
	OpNop:       "NOP",
	OpPush:      "PUSH",
	OpDrop:      "DROP",
	OpDup:       "DUP",
	OpSwap:      "SWAP",
	OpCall:      "CALL",
	OpInterop:   "INTEROP",
	OpAssert:    "ASSERT",
	OpThrow:     "THROW",
	OpRet:       "RET",
	OpJump:      "JMP",
	OpJumpIfNot: "JMPNOT",
	OpEqual:     "EQUAL",
	OpAdd:       "ADD",
	OpSub:       "SUB",
}

// opCosts is the gas charged before an instruction executes. Calls and
// interops add the cost of the target on top of this.
var opCosts = map[Opcode]uint64{
	OpNop:       1,
	OpPush:      1,
	OpDrop:      1,
	OpDup:       1,
	OpSwap:      1,
	OpCall:      10,
	OpInterop:   5,
	OpAssert:    1,
	OpThrow:     1,
	OpRet:       1,
	OpJump:      2,
	OpJumpIfNot: 2,
	OpEqual:     2,
	OpAdd:       2,
	OpSub:       2,
}

// String implements the fmt.Stringer interface.
func (op Opcode) String() string {
	if name, exists := opNames[op]; exists {
		return name
	}
	return fmt.Sprintf("OP(%d)", op)
}

// Cost returns the base gas cost of the opcode.
func (op Opcode) Cost() uint64 {
	return opCosts[op]
}

// MarshalText implements the encoding.TextMarshaler interface.
func (op Opcode) MarshalText() ([]byte, error) {
	name, exists := opNames[op]
	if !exists {
		return nil, fmt.Errorf("unknown opcode %d", op)
	}
	return []byte(name), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (op *Opcode) UnmarshalText(data []byte) error {
	for o, name := range opNames {
		if name == string(data) {
			*op = o
			return nil
		}
	}
	return fmt.Errorf("unknown opcode %q", data)
}

// =============================================================================

// Instruction is a single step of a script.
type Instruction struct {
	Op      Opcode `json:"op"`
	Value   *Value `json:"value,omitempty"`   // Operand of PUSH.
	Target  string `json:"target,omitempty"`  // Contract for CALL, interop name for INTEROP.
	Method  string `json:"method,omitempty"`  // Method for CALL.
	Argc    int    `json:"argc,omitempty"`    // Number of stack values consumed by CALL and INTEROP.
	Jump    int    `json:"jump,omitempty"`    // Absolute offset for JMP and JMPNOT.
	Message string `json:"message,omitempty"` // Fault message for ASSERT and THROW.
}

// String implements the fmt.Stringer interface.
func (ins Instruction) String() string {
	switch ins.Op {
	case OpPush:
		return fmt.Sprintf("PUSH %s", ins.Value)
	case OpCall:
		return fmt.Sprintf("CALL %s.%s/%d", ins.Target, ins.Method, ins.Argc)
	case OpInterop:
		return fmt.Sprintf("INTEROP %s/%d", ins.Target, ins.Argc)
	case OpJump, OpJumpIfNot:
		return fmt.Sprintf("%s %d", ins.Op, ins.Jump)
	}
	return ins.Op.String()
}

// Script is an ordered list of instructions.
type Script []Instruction

// Encode serializes the script for a transaction or contract.
func (s Script) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding script: %w", err)
	}
	return data, nil
}

// DecodeScript converts the serialized form back into a script.
func DecodeScript(data []byte) (Script, error) {
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding script: %w", err)
	}

	for i, ins := range s {
		if ins.Op == OpPush && ins.Value == nil {
			return nil, fmt.Errorf("decoding script: PUSH at %d has no value", i)
		}
		if ins.Argc < 0 {
			return nil, fmt.Errorf("decoding script: negative argc at %d", i)
		}
	}

	return s, nil
}
