package isa_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipspipe/isa"
)

func TestIsa(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Isa Suite")
}

var _ = Describe("Lookup", func() {
	It("resolves every supported mnemonic", func() {
		for _, m := range []string{"add", "sub", "mul", "addi", "slt", "lw", "sw", "beq", "bne", "j"} {
			_, ok := isa.Lookup(m)
			Expect(ok).To(BeTrue(), m)
		}
	})

	It("rejects an unsupported mnemonic", func() {
		_, ok := isa.Lookup("div")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("ALU", func() {
	It("wraps on signed overflow instead of trapping", func() {
		result := isa.ALU(isa.OpAdd, int32(1<<31-1), 1)
		Expect(result).To(Equal(int32(-1 << 31)))
	})

	It("computes slt as a 0/1 comparison", func() {
		Expect(isa.ALU(isa.OpSlt, 1, 2)).To(Equal(int32(1)))
		Expect(isa.ALU(isa.OpSlt, 2, 1)).To(Equal(int32(0)))
	})
})

var _ = Describe("BranchTaken", func() {
	It("evaluates beq as equality", func() {
		Expect(isa.BranchTaken(isa.OpBeq, 5, 5)).To(BeTrue())
		Expect(isa.BranchTaken(isa.OpBeq, 5, 6)).To(BeFalse())
	})

	It("evaluates bne as inequality", func() {
		Expect(isa.BranchTaken(isa.OpBne, 5, 6)).To(BeTrue())
		Expect(isa.BranchTaken(isa.OpBne, 5, 5)).To(BeFalse())
	})
})

var _ = Describe("ParseMemOperand", func() {
	It("parses an offset(register) operand", func() {
		mo, err := isa.ParseMemOperand("100($zero)")
		Expect(err).NotTo(HaveOccurred())
		Expect(mo.Offset).To(Equal(int32(100)))
		Expect(mo.HasBase).To(BeTrue())
		Expect(mo.BaseReg).To(Equal("$zero"))
	})

	It("parses a bare decimal operand with no base register", func() {
		mo, err := isa.ParseMemOperand("64")
		Expect(err).NotTo(HaveOccurred())
		Expect(mo.Offset).To(Equal(int32(64)))
		Expect(mo.HasBase).To(BeFalse())
	})
})
