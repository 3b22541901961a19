package dsp

import "math"

type complex64Pair = complexF

// complexF is a minimal complex number so this file has no dependency on
// the standard library's complex128 arithmetic operators, which keeps the
// radix-2 butterfly below easy to read line by line.
type complexF struct {
	re, im float64
}

func (c complexF) add(o complexF) complexF { return complexF{c.re + o.re, c.im + o.im} }
func (c complexF) sub(o complexF) complexF { return complexF{c.re - o.re, c.im - o.im} }
func (c complexF) mul(o complexF) complexF {
	return complexF{c.re*o.re - c.im*o.im, c.re*o.im + c.im*o.re}
}

// nextPow2 returns the smallest power of two >= n (n >= 1).
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// fft runs an in-place iterative radix-2 Cooley-Tukey transform. len(a) must
// be a power of two. inverse selects the sign of the twiddle exponent and
// the caller is responsible for the 1/N scaling on inverse transforms.
func fft(a []complexF, inverse bool) {
	n := len(a)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			a[i], a[j] = a[j], a[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		ang := 2 * math.Pi / float64(length)
		if !inverse {
			ang = -ang
		}
		wLen := complexF{math.Cos(ang), math.Sin(ang)}
		for i := 0; i < n; i += length {
			w := complexF{1, 0}
			half := length / 2
			for k := 0; k < half; k++ {
				u := a[i+k]
				v := a[i+k+half].mul(w)
				a[i+k] = u.add(v)
				a[i+k+half] = u.sub(v)
				w = w.mul(wLen)
			}
		}
	}
}
