package arch_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipspipe/arch"
)

func TestArch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Arch Suite")
}

var _ = Describe("RegFile", func() {
	It("always reads register 0 as zero", func() {
		r := &arch.RegFile{}
		r.Write(0, 77)
		Expect(r.Read(0)).To(Equal(int32(0)))
	})

	It("round-trips a write through a read", func() {
		r := &arch.RegFile{}
		r.Write(8, 123)
		Expect(r.Read(8)).To(Equal(int32(123)))
	})

	It("resolves symbolic and numeric register names to the same index", func() {
		byName, ok1 := arch.RegisterByName("$t0")
		byNumber, ok2 := arch.RegisterByName("$8")
		Expect(ok1).To(BeTrue())
		Expect(ok2).To(BeTrue())
		Expect(byName).To(Equal(byNumber))
	})

	It("rejects an unknown register name", func() {
		_, ok := arch.RegisterByName("$bogus")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Memory", func() {
	It("rejects a misaligned address", func() {
		m := arch.NewMemory(0)
		Expect(m.ValidateAddress(3)).To(HaveOccurred())
	})

	It("rejects an address inside the code region", func() {
		m := arch.NewMemory(10)
		Expect(m.ValidateAddress(36)).To(HaveOccurred())
	})

	It("rejects an out-of-range address", func() {
		m := arch.NewMemory(0)
		Expect(m.ValidateAddress(arch.MaxMemoryBytes)).To(HaveOccurred())
	})

	It("accepts and round-trips a valid address", func() {
		m := arch.NewMemory(10)
		Expect(m.ValidateAddress(100)).NotTo(HaveOccurred())
		changed := m.Write(100, 4000)
		Expect(changed).To(BeTrue())
		Expect(m.Read(100)).To(Equal(int32(4000)))
	})

	It("reports no change when a store writes the value already present", func() {
		m := arch.NewMemory(10)
		m.Write(100, 4000)
		changed := m.Write(100, 4000)
		Expect(changed).To(BeFalse())
	})
})
