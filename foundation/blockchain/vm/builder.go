package vm

import (
	"math/big"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
)

// Names of the gas contract entry points every paying script brackets
// itself with.
const (
	GasContract = "gas"
	AllowGas    = "AllowGas"
	SpendGas    = "SpendGas"
)

// Builder assembles scripts one instruction at a time.
type Builder struct {
	script Script
}

// NewBuilder constructs an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Offset returns the position the next instruction will occupy. It is used
// to record method offsets in an ABI.
func (b *Builder) Offset() int {
	return len(b.script)
}

// Emit appends a raw instruction.
func (b *Builder) Emit(ins Instruction) *Builder {
	b.script = append(b.script, ins)
	return b
}

// Push appends instructions that place each value on the stack in order.
func (b *Builder) Push(values ...Value) *Builder {
	for i := range values {
		v := values[i]
		b.Emit(Instruction{Op: OpPush, Value: &v})
	}
	return b
}

// Nop appends n instructions that only consume gas.
func (b *Builder) Nop(n int) *Builder {
	for range n {
		b.Emit(Instruction{Op: OpNop})
	}
	return b
}

// Drop discards the value on top of the stack.
func (b *Builder) Drop() *Builder {
	return b.Emit(Instruction{Op: OpDrop})
}

// CallContract pushes the arguments and invokes a contract method.
func (b *Builder) CallContract(contract string, method string, args ...Value) *Builder {
	b.Push(args...)
	return b.Emit(Instruction{Op: OpCall, Target: contract, Method: method, Argc: len(args)})
}

// CallInterop pushes the arguments and invokes a runtime interop.
func (b *Builder) CallInterop(name string, args ...Value) *Builder {
	b.Push(args...)
	return b.Emit(Instruction{Op: OpInterop, Target: name, Argc: len(args)})
}

// AllowGas escrows price*limit from the payer for this script.
func (b *Builder) AllowGas(from database.Address, target database.Address, price *big.Int, limit uint64) *Builder {
	return b.CallContract(GasContract, AllowGas, Address(from), Address(target), Number(price), Uint(limit))
}

// SpendGas settles the fee for the gas used so far and refunds the rest.
func (b *Builder) SpendGas(from database.Address) *Builder {
	return b.CallContract(GasContract, SpendGas, Address(from))
}

// Assert faults with the message when the value on top of the stack is false.
func (b *Builder) Assert(message string) *Builder {
	return b.Emit(Instruction{Op: OpAssert, Message: message})
}

// Throw faults with the message.
func (b *Builder) Throw(message string) *Builder {
	return b.Emit(Instruction{Op: OpThrow, Message: message})
}

// Return ends the current frame.
func (b *Builder) Return() *Builder {
	return b.Emit(Instruction{Op: OpRet})
}

// Script returns the assembled script.
func (b *Builder) Script() Script {
	out := make(Script, len(b.script))
	copy(out, b.script)
	return out
}

// Bytes returns the serialized script. Scripts built from values always
// serialize so the error is dropped.
func (b *Builder) Bytes() []byte {
	data, _ := b.script.Encode()
	return data
}
