// Copyright 2014 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"sync"

	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-evm/params"
)

// stackLimit is the maximum number of words a frame may hold.
const stackLimit = int(params.StackLimit)

// 栈在创建时即按最大容量分配，帧内不会再发生扩容。
var stackPool = sync.Pool{
	New: func() interface{} {
		return &Stack{data: make([]uint256.Int, 0, stackLimit)}
	},
}

// Stack is an object for basic stack operations. Items popped to the stack are
// expected to be changed and modified. stack does not take care of adding newly
// initialised objects.
//
// The exported methods are bounds checked. The interpreter validates the
// arity of every instruction against the jump table before executing it, so
// the instruction implementations use the unchecked lower-case variants.
type Stack struct {
	data []uint256.Int
}

func newstack() *Stack {
	return stackPool.Get().(*Stack)
}

func returnStack(s *Stack) {
	s.data = s.data[:0]
	stackPool.Put(s)
}

// NewStack returns an empty stack preallocated to the frame limit.
func NewStack() *Stack {
	return newstack()
}

// Data returns the underlying slice, bottom first.
func (st *Stack) Data() []uint256.Int {
	return st.data
}

// Len returns the number of items on the stack.
func (st *Stack) Len() int {
	return len(st.data)
}

// Push places a copy of d on top of the stack. The stack is left untouched
// when it is full.
func (st *Stack) Push(d *uint256.Int) error {
	if len(st.data) >= stackLimit {
		return &ErrStackOverflow{stackLen: len(st.data), limit: stackLimit}
	}
	st.push(d)
	return nil
}

// Pop removes and returns the top item.
func (st *Stack) Pop() (uint256.Int, error) {
	if len(st.data) == 0 {
		return uint256.Int{}, &ErrStackUnderflow{stackLen: 0, required: 1}
	}
	return st.pop(), nil
}

// Peek returns the item depth positions below the top, Peek(0) being the top.
func (st *Stack) Peek(depth int) (*uint256.Int, error) {
	if depth < 0 || depth >= len(st.data) {
		return nil, &ErrStackUnderflow{stackLen: len(st.data), required: depth + 1}
	}
	return st.Back(depth), nil
}

// Dup pushes a copy of the n-th item (1-based) onto the stack.
func (st *Stack) Dup(n int) error {
	if n < 1 || n > len(st.data) {
		return &ErrStackUnderflow{stackLen: len(st.data), required: n}
	}
	if len(st.data) >= stackLimit {
		return &ErrStackOverflow{stackLen: len(st.data), limit: stackLimit}
	}
	st.dup(n)
	return nil
}

// Swap exchanges the top item with the one n positions below it.
func (st *Stack) Swap(n int) error {
	if n < 1 || n >= len(st.data) {
		return &ErrStackUnderflow{stackLen: len(st.data), required: n + 1}
	}
	st.swap(n)
	return nil
}

func (st *Stack) push(d *uint256.Int) {
	// NOTE push limit (1024) is checked in the interpreter loop
	st.data = append(st.data, *d)
}

func (st *Stack) pop() (ret uint256.Int) {
	ret = st.data[len(st.data)-1]
	st.data = st.data[:len(st.data)-1]
	return
}

func (st *Stack) len() int {
	return len(st.data)
}

// swap exchanges the top with the n'th item below it.
func (st *Stack) swap(n int) {
	top := st.len() - 1
	st.data[top-n], st.data[top] = st.data[top], st.data[top-n]
}

func (st *Stack) dup(n int) {
	st.push(&st.data[st.len()-n])
}

func (st *Stack) peek() *uint256.Int {
	return &st.data[st.len()-1]
}

// Back returns the n'th item in stack
func (st *Stack) Back(n int) *uint256.Int {
	return &st.data[st.len()-n-1]
}
