// Package compiler reduces an infix sequence of boolean-combinable
// expressions into a single expression.
package compiler

import "fmt"

// Connective is a boolean operator between two operands.
type Connective string

const (
	And Connective = "and"
	Or  Connective = "or"
)

// Precedence of each connective; higher binds tighter.
var Precedence = map[Connective]int{
	And: 3,
	Or:  2,
}

// Combinable is satisfied by expression types that support intersection and union.
type Combinable[T any] interface {
	And(T) T
	Or(T) T
}

// Item is either an operand or a connective.
type Item[T Combinable[T]] struct {
	Operand T
	Op      Connective
}

// Operand wraps an expression.
func Operand[T Combinable[T]](expr T) Item[T] {
	return Item[T]{Operand: expr}
}

// Operator wraps a connective.
func Operator[T Combinable[T]](op Connective) Item[T] {
	return Item[T]{Op: op}
}

// IsOperator reports whether the item is a connective.
func (i Item[T]) IsOperator() bool {
	return i.Op != ""
}

// ToPostfix reorders an infix sequence into postfix using the shunting-yard
// algorithm. Operators on the stack with precedence greater than or equal
// to the incoming one are emitted first, which makes equal precedence left
// associative.
func ToPostfix[T Combinable[T]](infix []Item[T]) []Item[T] {
	out := make([]Item[T], 0, len(infix))
	var stack []Connective

	for _, item := range infix {
		if !item.IsOperator() {
			out = append(out, item)
			continue
		}
		for len(stack) > 0 && Precedence[stack[len(stack)-1]] >= Precedence[item.Op] {
			out = append(out, Operator[T](stack[len(stack)-1]))
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, item.Op)
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out = append(out, Operator[T](stack[i]))
	}
	return out
}

// Evaluate runs a postfix sequence on a stack machine. It panics when the
// sequence is not well formed: a malformed sequence can only come from a
// bug in the caller, never from user input.
func Evaluate[T Combinable[T]](postfix []Item[T]) T {
	var stack []T
	for _, item := range postfix {
		if !item.IsOperator() {
			stack = append(stack, item.Operand)
			continue
		}
		if len(stack) < 2 {
			panic(fmt.Sprintf("compiler: operator %q with %d operands on the stack", item.Op, len(stack)))
		}
		left, right := stack[len(stack)-2], stack[len(stack)-1]
		stack = stack[:len(stack)-2]
		switch item.Op {
		case And:
			stack = append(stack, left.And(right))
		case Or:
			stack = append(stack, left.Or(right))
		default:
			panic(fmt.Sprintf("compiler: unknown connective %q", item.Op))
		}
	}
	if len(stack) != 1 {
		panic(fmt.Sprintf("compiler: postfix evaluation left %d expressions on the stack", len(stack)))
	}
	return stack[0]
}

// Reduce compiles an infix sequence into one expression. A single operand
// is returned as is.
func Reduce[T Combinable[T]](infix []Item[T]) T {
	if len(infix) == 1 && !infix[0].IsOperator() {
		return infix[0].Operand
	}
	return Evaluate(ToPostfix(infix))
}
