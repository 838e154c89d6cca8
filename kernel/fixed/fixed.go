// Package fixed implements signed 17.14 fixed-point numbers.
//
// The kernel has no floating point; the feedback scheduler keeps load average
// and recent CPU in this format.
package fixed

// Q is a 17.14 fixed-point value.
type Q int64

const fracBits = 14

// F is the representation of 1.0.
const F Q = 1 << fracBits

// Int converts n to fixed point.
func Int(n int) Q { return Q(n) * F }

// Frac returns n/d as a fixed-point value.
func Frac(n, d int) Q { return Int(n) / Q(d) }

// Trunc converts x to an integer, rounding toward zero.
func (x Q) Trunc() int { return int(x / F) }

// Round converts x to the nearest integer.
func (x Q) Round() int {
	if x >= 0 {
		return int((x + F/2) / F)
	}
	return int((x - F/2) / F)
}

// Add returns x+y.
func (x Q) Add(y Q) Q { return x + y }

// Sub returns x-y.
func (x Q) Sub(y Q) Q { return x - y }

// AddInt returns x+n.
func (x Q) AddInt(n int) Q { return x + Int(n) }

// SubInt returns x-n.
func (x Q) SubInt(n int) Q { return x - Int(n) }

// Mul returns x*y.
func (x Q) Mul(y Q) Q { return x * y / F }

// MulInt returns x*n.
func (x Q) MulInt(n int) Q { return x * Q(n) }

// Div returns x/y.
func (x Q) Div(y Q) Q { return x * F / y }

// DivInt returns x/n.
func (x Q) DivInt(n int) Q { return x / Q(n) }
