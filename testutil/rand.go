package testutil

import (
	"math/rand"

	fuzz "github.com/google/gofuzz"
	. "github.com/onsi/ginkgo"
)

var RandSource = rand.NewSource(GinkgoRandomSeed())
var Rand = rand.New(RandSource)
var Fuzzer = func() *fuzz.Fuzzer {
	f := fuzz.New()
	f.RandSource(RandSource)
	return f
}()
var Fuzz = Fuzzer.Fuzz

// FastRand is a cheap random reader for large data blocks, where Rand is too
// slow and randomness quality does not matter.
var FastRand = &fastRandReader{state: uint64(GinkgoRandomSeed()) | 1}

type fastRandReader struct{ state uint64 }

func (r *fastRandReader) Read(p []byte) (int, error) {
	x := r.state
	for i := range p {
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		p[i] = byte(x)
	}
	r.state = x
	return len(p), nil
}
