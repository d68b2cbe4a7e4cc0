// Package testutil contains ginkgo and gomega helpers shared by test suites.
package testutil

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const maxPrintableLen = 1024

func Byf(format string, args ...interface{}) {
	By(fmt.Sprintf(format, args...))
	fmt.Fprintln(GinkgoWriter)
}

// ExpectBytesEqual has much less overhead on large byte chunks than
// gomega.Equal.
func ExpectBytesEqual(a, b []byte) {
	ExpectBytesEqualWithOffset(1, a, b)
}

func ExpectBytesEqualWithOffset(off int, a, b []byte) {
	off++
	if bytes.Equal(a, b) {
		return
	}
	if len(a)+len(b) <= 2*maxPrintableLen {
		ExpectWithOffset(off, a).To(Equal(b))
		return
	}
	ExpectWithOffset(off, len(a)).To(Equal(len(b)), "Lengths are unequal and data is too large to print.")
	for i, ab := range a {
		if ab != b[i] {
			cmpLen := maxPrintableLen
			if leftChunk := a[i:]; len(leftChunk) < maxPrintableLen {
				cmpLen = len(leftChunk)
			}
			ExpectWithOffset(off, a[i:i+cmpLen]).To(Equal(b[i:i+cmpLen]), "Skipped %v equal bytes.", i)
			return
		}
	}
}

func TmpFileName() string {
	f, err := ioutil.TempFile("", "go_test_tmp_")
	Expect(err).To(BeNil())
	filename := f.Name()
	err = f.Close()
	Expect(err).To(BeNil())
	err = os.Remove(filename)
	Expect(err).To(BeNil())
	return filename
}
