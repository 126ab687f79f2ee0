package asm_test

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipspipe/asm"
	"github.com/sarchlab/mipspipe/isa"
)

func TestAsm(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Asm Suite")
}

var _ = Describe("Parse", func() {
	It("tokenizes a simple instruction", func() {
		prog, err := asm.Parse(strings.NewReader("addi $t0, $zero, 5\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Instructions).To(HaveLen(1))
		Expect(prog.Instructions[0].Op).To(Equal(isa.OpAddi))
		Expect(prog.Instructions[0].Op1).To(Equal("$t0"))
		Expect(prog.Instructions[0].Op2).To(Equal("$zero"))
		Expect(prog.Instructions[0].Op3).To(Equal("5"))
	})

	It("strips comments", func() {
		prog, err := asm.Parse(strings.NewReader("addi $t0, $zero, 5 # load 5\n# full comment line\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Instructions).To(HaveLen(1))
	})

	It("records a standalone label pointing at the next instruction", func() {
		src := "L:\naddi $t0, $zero, 1\n"
		prog, err := asm.Parse(strings.NewReader(src))
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Labels["L"]).To(Equal(0))
	})

	It("records a label prefixing an instruction on the same line", func() {
		src := "L: addi $t0, $zero, 1\n"
		prog, err := asm.Parse(strings.NewReader(src))
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Labels["L"]).To(Equal(0))
		Expect(prog.Instructions).To(HaveLen(1))
	})

	It("poisons a label defined twice", func() {
		src := "L: addi $t0, $zero, 1\nL: addi $t1, $zero, 2\n"
		prog, err := asm.Parse(strings.NewReader(src))
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Labels["L"]).To(Equal(asm.PoisonedLabel))
	})

	It("collapses an over-long operand list into operand 3", func() {
		prog, err := asm.Parse(strings.NewReader("sw $t0 4 $t1 extra\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Instructions[0].Op3).To(Equal("$t1 extra"))
	})

	It("rejects an unknown opcode", func() {
		_, err := asm.Parse(strings.NewReader("frobnicate $t0\n"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("IsValidLabelName", func() {
	It("accepts an alphanumeric name starting with a letter", func() {
		Expect(asm.IsValidLabelName("loop2")).To(BeTrue())
	})

	It("rejects a name starting with a digit", func() {
		Expect(asm.IsValidLabelName("2loop")).To(BeFalse())
	})

	It("rejects a name that collides with an opcode mnemonic", func() {
		Expect(asm.IsValidLabelName("addi")).To(BeFalse())
	})
})
