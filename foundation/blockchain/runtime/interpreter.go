package runtime

import (
	"math/big"

	"github.com/nexuschain/chaincore/foundation/blockchain/contract"
	"github.com/nexuschain/chaincore/foundation/blockchain/vm"
)

// run steps through the frame until it returns or runs off the end of its
// script. The value on top of the stack is the return value.
func (rt *Runtime) run(f *frame) (vm.Value, error) {
	for {
		if f.pc < 0 || f.pc >= len(f.script) {
			return f.peek(), nil
		}

		rt.steps++
		if rt.steps > MaxSteps {
			return vm.None(), faultf("step limit of %d reached", MaxSteps)
		}

		ins := f.script[f.pc]
		f.pc++

		if err := rt.ConsumeGas(ins.Op.Cost()); err != nil {
			return vm.None(), err
		}

		switch ins.Op {
		case vm.OpNop:

		case vm.OpPush:
			f.push(*ins.Value)

		case vm.OpDrop:
			if _, err := f.pop(); err != nil {
				return vm.None(), err
			}

		case vm.OpDup:
			v, err := f.pop()
			if err != nil {
				return vm.None(), err
			}
			f.push(v)
			f.push(v)

		case vm.OpSwap:
			a, err := f.pop()
			if err != nil {
				return vm.None(), err
			}
			b, err := f.pop()
			if err != nil {
				return vm.None(), err
			}
			f.push(a)
			f.push(b)

		case vm.OpCall, vm.OpInterop:
			args, err := f.popN(ins.Argc)
			if err != nil {
				return vm.None(), err
			}

			var v vm.Value
			switch ins.Op {
			case vm.OpCall:
				v, err = rt.CallContract(ins.Target, ins.Method, args...)
			default:
				v, err = rt.callInterop(ins.Target, args)
			}
			if err != nil {
				return vm.None(), err
			}

			if !v.IsNone() {
				f.push(v)
			}

		case vm.OpAssert:
			v, err := f.pop()
			if err != nil {
				return vm.None(), err
			}
			ok, err := v.AsBool()
			if err != nil {
				return vm.None(), asFault(err, "assert")
			}
			if !ok {
				return vm.None(), faultf("assertion failed: %s", message(ins, "condition is false"))
			}

		case vm.OpThrow:
			return vm.None(), faultf("%s", message(ins, "script threw"))

		case vm.OpRet:
			return f.peek(), nil

		case vm.OpJump:
			f.pc = ins.Jump

		case vm.OpJumpIfNot:
			v, err := f.pop()
			if err != nil {
				return vm.None(), err
			}
			ok, err := v.AsBool()
			if err != nil {
				return vm.None(), asFault(err, "jump condition")
			}
			if !ok {
				f.pc = ins.Jump
			}

		case vm.OpEqual:
			b, err := f.pop()
			if err != nil {
				return vm.None(), err
			}
			a, err := f.pop()
			if err != nil {
				return vm.None(), err
			}
			f.push(vm.Bool(a.Equal(b)))

		case vm.OpAdd, vm.OpSub:
			b, err := f.popNumber()
			if err != nil {
				return vm.None(), err
			}
			a, err := f.popNumber()
			if err != nil {
				return vm.None(), err
			}
			if ins.Op == vm.OpAdd {
				f.push(vm.Number(new(big.Int).Add(a, b)))
			} else {
				f.push(vm.Number(new(big.Int).Sub(a, b)))
			}

		default:
			return vm.None(), faultf("unknown opcode %d at %d", ins.Op, f.pc-1)
		}
	}
}

func message(ins vm.Instruction, fallback string) string {
	if ins.Message != "" {
		return ins.Message
	}
	return fallback
}

// =============================================================================

// CallContract invokes a method of a native or deployed contract. The
// contract runs in its own frame so it becomes the active context.
func (rt *Runtime) CallContract(name string, method string, args ...vm.Value) (vm.Value, error) {
	if len(rt.frames) >= MaxCallDepth {
		return vm.None(), faultf("call depth of %d exceeded", MaxCallDepth)
	}

	c, err := rt.cfg.Registry.Resolve(rt.cfg.ChangeSet, name)
	if err != nil {
		return vm.None(), asFault(err, "calling %s.%s", name, method)
	}

	if err := rt.ConsumeGas(c.Cost(method)); err != nil {
		return vm.None(), err
	}

	f := frame{name: c.Name(), address: c.Address()}
	rt.frames = append(rt.frames, &f)

	value, err := c.Invoke(rt, method, args)
	if perr := rt.popFrame(&f); perr != nil {
		return vm.None(), perr
	}
	if err != nil {
		return vm.None(), asFault(err, "%s.%s", name, method)
	}

	return value, nil
}

// RunScript runs a method of a custom contract in the frame CallContract
// pushed for it.
func (rt *Runtime) RunScript(c *contract.Custom, offset int, args []vm.Value) (vm.Value, error) {
	f := rt.top()
	if f == nil || f.address != c.Address() {
		return vm.None(), fatal(ErrFrameMismatch)
	}

	f.script = c.Script()
	f.pc = offset
	f.stack = append([]vm.Value(nil), args...)

	return rt.run(f)
}

// =============================================================================

func (f *frame) push(v vm.Value) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop() (vm.Value, error) {
	if len(f.stack) == 0 {
		return vm.None(), faultf("stack underflow in %s at %d", f.name, f.pc-1)
	}

	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

// popN removes n values and returns them in the order they were pushed.
func (f *frame) popN(n int) ([]vm.Value, error) {
	if n > len(f.stack) {
		return nil, faultf("stack underflow in %s at %d: need %d, have %d", f.name, f.pc-1, n, len(f.stack))
	}

	args := make([]vm.Value, n)
	copy(args, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return args, nil
}

func (f *frame) popNumber() (*big.Int, error) {
	v, err := f.pop()
	if err != nil {
		return nil, err
	}

	n, err := v.AsNumber()
	if err != nil {
		return nil, asFault(err, "arithmetic")
	}
	return n, nil
}

func (f *frame) peek() vm.Value {
	if len(f.stack) == 0 {
		return vm.None()
	}
	return f.stack[len(f.stack)-1]
}
