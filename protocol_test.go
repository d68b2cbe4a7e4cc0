package slabcached

import (
	"bytes"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/skipor/slabcached/testutil"
)

// errReader fails every read with its error.
type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

var _ = Describe("reader", func() {
	var (
		input          *bytes.Buffer
		r              reader
		command        []byte
		fields         [][]byte
		clientErr, err error
	)
	ReadCommand := func() {
		command, fields, clientErr, err = r.readCommand()
	}

	const correctCommand = "get xxx   yyy " + Separator
	var expectedCommand = []byte("get")
	var expectedFields = [][]byte{[]byte("xxx"), []byte("yyy")}

	ExpectNoErrors := func() {
		Expect(clientErr).To(BeNil())
		Expect(err).To(BeNil())
	}
	ExpectCommandRead := func() {
		ReadCommand()
		ExpectNoErrors()
		Expect(command).To(Equal(expectedCommand))
		Expect(fields).To(Equal(expectedFields))
	}
	ExpectErr := func(expectedErr error) {
		ReadCommand()
		Expect(unwrap(err)).To(Equal(expectedErr))
		Expect(command).To(BeNil())
		Expect(fields).To(BeNil())
	}

	BeforeEach(func() {
		input = &bytes.Buffer{}
		r = newReader(input)
	})

	Context("read error", func() {
		var afterInputErr error
		JustBeforeEach(func() {
			afterInputErr = errors.New("some read error")
			r = newReader(io.MultiReader(input, errReader{afterInputErr}))
		})

		Context("just after some commands", func() {
			var n int
			BeforeEach(func() {
				n = Rand.Intn(3)
				for i := 0; i < n; i++ {
					input.WriteString(correctCommand)
				}
			})
			It("fails after them", func() {
				for i := 0; i < n; i++ {
					ExpectCommandRead()
				}
				ExpectErr(afterInputErr)
			})
		})

		Context("before command end", func() {
			BeforeEach(func() {
				input.WriteString("get xxx ")
			})
			It("fails", func() {
				ExpectErr(afterInputErr)
			})
		})

		Context("before large command end", func() {
			BeforeEach(func() {
				input.Write(ChunkWithoutSeparators(5 * MaxCommandSize))
			})
			It("fails", func() {
				ExpectErr(afterInputErr)
			})
		})
	})

	ExpectEOF := func() {
		ReadCommand()
		Expect(unwrap(err)).To(Equal(io.EOF))
		Expect(clientErr).To(BeNil())
		Expect(command).To(BeNil())
		Expect(fields).To(BeNil())
	}

	Context("empty input", func() {
		It("got EOF", func() {
			ExpectEOF()
		})
	})

	Context("n correct commands", func() {
		var n int
		JustBeforeEach(func() {
			for i := 0; i < n; i++ {
				input.WriteString(correctCommand)
			}
		})
		AssertAllReadWell := func() {
			It("all of them read well", func() {
				for i := 0; i < n; i++ {
					ExpectCommandRead()
				}
				ExpectEOF()
			})
		}

		Context("n = 0", func() {
			BeforeEach(func() { n = 0 })
			AssertAllReadWell()
		})
		Context("n = some", func() {
			BeforeEach(func() { n = Rand.Intn(50) + 1 })
			AssertAllReadWell()
		})
		Context("n = really big", func() {
			BeforeEach(func() {
				n = Rand.Intn(2*MaxCommandSize/len(correctCommand)) + 1
			})
			AssertAllReadWell()
		})
	})

	Context("data block", func() {
		var data []byte
		var dbInput *bytes.Buffer
		BeforeEach(func() {
			dbInput = &bytes.Buffer{}
		})
		ReadDataBlock := func() {
			data, clientErr, err = r.readDataBlock(dbInput.Len())
		}
		ExpectDataBlockRead := func() {
			ReadDataBlock()
			ExpectNoErrors()
			ExpectBytesEqual(data, dbInput.Bytes())
		}

		Context("empty block", func() {
			BeforeEach(func() {
				input.WriteString(Separator)
			})
			It("read well", func() {
				ExpectDataBlockRead()
				ExpectEOF()
			})
		})

		Context("only correct data block", func() {
			BeforeEach(func() {
				dbInput.ReadFrom(io.LimitReader(FastRand, 2*InBufferSize))
				input.Write(dbInput.Bytes())
				input.WriteString(Separator)
			})
			It("read well", func() {
				ExpectDataBlockRead()
				ExpectEOF()
			})
		})

		Context("between commands", func() {
			BeforeEach(func() {
				input.WriteString(correctCommand)
				dbInput.ReadFrom(io.LimitReader(FastRand, 2*InBufferSize))
				input.Write(dbInput.Bytes())
				input.WriteString(Separator)
				input.WriteString(correctCommand)
			})
			It("all read well", func() {
				ExpectCommandRead()
				ExpectDataBlockRead()
				ExpectCommandRead()
				ExpectEOF()
			})
		})

		Context("block without trailing separator", func() {
			BeforeEach(func() {
				dbInput.ReadFrom(io.LimitReader(FastRand, 64))
				input.Write(dbInput.Bytes())
				input.WriteString("xx\n")
			})
			It("is a client error", func() {
				ReadDataBlock()
				Expect(unwrap(clientErr)).To(Equal(ErrInvalidLineSeparator))
				Expect(data).To(BeNil())
			})
		})
	})

	Context("client error in input", func() {
		// Input structure: correct command, error input, correct command.
		BeforeEach(func() {
			input.WriteString(correctCommand)
		})
		JustBeforeEach(func() {
			input.WriteString(correctCommand)
		})

		AssertClientErrEqual := func(expectedClientErr error) {
			It("client error equal expected", func() {
				ExpectCommandRead()
				ReadCommand()
				if clientErr != nil {
					By("Got error: " + clientErr.Error())
				}
				Expect(unwrap(clientErr)).To(Equal(expectedClientErr))
				Expect(err).To(BeNil())
				ExpectCommandRead()
				ExpectEOF()
			})
		}

		Context("illegal separator", func() {
			BeforeEach(func() {
				input.WriteString(strings.TrimSuffix(correctCommand, Separator))
				input.WriteByte('\n')
			})
			AssertClientErrEqual(ErrInvalidLineSeparator)
		})

		Context("too large command", func() {
			BeforeEach(func() {
				noSepBigChunk := ChunkWithoutSeparators(3*InBufferSize + Rand.Intn(InBufferSize))
				n := len(noSepBigChunk)
				noSepBigChunk[n/2+Rand.Intn(n/4)] = '\n'
				input.Write(noSepBigChunk)
				input.WriteString(Separator)
			})
			AssertClientErrEqual(ErrTooLargeCommand)
		})
	})
})

var _ = Describe("parse set fields", func() {
	toFields := func(s string) (fields [][]byte) {
		for _, f := range strings.Fields(s) {
			fields = append(fields, []byte(f))
		}
		return
	}

	It("parses a correct header", func() {
		m, noreply, clientErr := parseSetFields(toFields("some_key 7 3600 10"))
		Expect(clientErr).To(BeNil())
		Expect(noreply).To(BeFalse())
		Expect(m.key).To(Equal("some_key"))
		Expect(m.flags).To(Equal(uint16(7)))
		Expect(m.exptime).To(Equal(int64(3600)))
		Expect(m.bytes).To(Equal(10))
	})

	It("parses noreply option", func() {
		_, noreply, clientErr := parseSetFields(toFields("k 0 0 1 noreply"))
		Expect(clientErr).To(BeNil())
		Expect(noreply).To(BeTrue())
	})

	It("rejects unknown option", func() {
		_, _, clientErr := parseSetFields(toFields("k 0 0 1 what"))
		Expect(unwrap(clientErr)).To(Equal(ErrInvalidOption))
	})

	It("rejects missing fields", func() {
		_, _, clientErr := parseSetFields(toFields("k 0 0"))
		Expect(unwrap(clientErr)).To(Equal(ErrMoreFieldsRequired))
	})

	It("rejects extra fields", func() {
		_, _, clientErr := parseSetFields(toFields("k 0 0 1 noreply whatever"))
		Expect(unwrap(clientErr)).To(Equal(ErrTooManyFields))
	})

	It("rejects flags out of uint16 range", func() {
		_, _, clientErr := parseSetFields(toFields("k 65536 0 1"))
		Expect(clientErr).NotTo(BeNil())
	})

	It("rejects too large key", func() {
		key := strings.Repeat("q", MaxKeySize+1)
		_, _, clientErr := parseSetFields(toFields(key + " 0 0 1"))
		Expect(unwrap(clientErr)).To(Equal(ErrTooLargeKey))
	})

	It("accepts negative exptime", func() {
		m, _, clientErr := parseSetFields(toFields("k 0 -1 1"))
		Expect(clientErr).To(BeNil())
		Expect(m.exptime).To(Equal(int64(-1)))
	})
})

var _ = Describe("check key", func() {
	It("accepts printable keys", func() {
		Expect(checkKey([]byte("good-key_0123"))).To(BeNil())
	})
	It("rejects control characters", func() {
		Expect(unwrap(checkKey([]byte("bad\x01key")))).To(Equal(ErrInvalidCharInKey))
	})
	It("rejects DEL", func() {
		Expect(unwrap(checkKey([]byte{'k', 127}))).To(Equal(ErrInvalidCharInKey))
	})
})
