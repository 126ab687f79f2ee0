package pipeline_test

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipspipe/arch"
	"github.com/sarchlab/mipspipe/asm"
	"github.com/sarchlab/mipspipe/isa"
	"github.com/sarchlab/mipspipe/pipeline"
	"github.com/sarchlab/mipspipe/predictor"
	"github.com/sarchlab/mipspipe/simerr"
)

func TestPipeline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pipeline Suite")
}

// runProgram assembles src, runs it to completion (or until a fatal
// error), and returns the final simulator, the cycle count, and the
// fatal error (nil on a clean run).
func runProgram(src string) (*pipeline.Simulator, int, error) {
	prog, err := asm.Parse(strings.NewReader(src))
	Expect(err).NotTo(HaveOccurred())

	sim, err := pipeline.New(prog.Instructions, prog.Labels)
	Expect(err).NotTo(HaveOccurred())

	for !sim.Done() {
		sim.Tick()
		if sim.Err() != nil {
			return sim, sim.Cycle(), sim.Err()
		}
	}
	return sim, sim.Cycle(), nil
}

var _ = Describe("Simulator end-to-end scenarios", func() {
	It("scenario 1: chained addi stalls then completes", func() {
		sim, cycles, err := runProgram(`
			addi $t0, $zero, 5
			addi $t1, $t0, 3
		`)
		Expect(err).NotTo(HaveOccurred())
		Expect(sim.Registers().Read(9)).To(Equal(int32(8)))
		Expect(cycles).To(BeNumerically(">=", 2+4))
	})

	It("scenario 2: equal branch skips the intervening instruction", func() {
		sim, _, err := runProgram(`
			addi $t0, $zero, 1
			addi $t1, $zero, 1
			beq $t0, $t1, L
			addi $t2, $zero, 99
			L: addi $t3, $zero, 7
		`)
		Expect(err).NotTo(HaveOccurred())
		Expect(sim.Registers().Read(10)).To(Equal(int32(0)))
		Expect(sim.Registers().Read(11)).To(Equal(int32(7)))
	})

	It("scenario 3: a stored word is later loaded back, with a memory delta on the store cycle", func() {
		prog, err := asm.Parse(strings.NewReader(`
			addi $t0, $zero, 4000
			sw $t0, 100($zero)
			lw $t1, 100($zero)
		`))
		Expect(err).NotTo(HaveOccurred())

		sim, err := pipeline.New(prog.Instructions, prog.Labels)
		Expect(err).NotTo(HaveOccurred())

		var sawDelta bool
		for !sim.Done() {
			sim.Tick()
			Expect(sim.Err()).NotTo(HaveOccurred())
			for _, d := range sim.Deltas() {
				sawDelta = true
				Expect(d.Addr).To(Equal(int32(25)))
				Expect(d.Value).To(Equal(int32(4000)))
			}
		}
		Expect(sawDelta).To(BeTrue())
		Expect(sim.Registers().Read(9)).To(Equal(int32(4000)))
	})

	It("scenario 4: jump to an undefined label is fatal", func() {
		_, _, err := runProgram("j nowhere\n")
		Expect(err).To(HaveOccurred())
		var se *simerr.Error
		Expect(err).To(BeAssignableToTypeOf(se))
		Expect(err.(*simerr.Error).Kind).To(Equal(simerr.KindInvalidLabel))
	})

	It("scenario 5: a misaligned load address is fatal", func() {
		_, _, err := runProgram("lw $t0, 3($zero)\n")
		Expect(err).To(HaveOccurred())
		Expect(err.(*simerr.Error).Kind).To(Equal(simerr.KindInvalidAddress))
	})

	It("scenario 6: two back-to-back dependent addi chains both stall", func() {
		sim, cycles, err := runProgram(`
			addi $t0, $zero, 10
			addi $t0, $t0, -3
			addi $t0, $t0, -3
		`)
		Expect(err).NotTo(HaveOccurred())
		Expect(sim.Registers().Read(8)).To(Equal(int32(4)))
		Expect(cycles).To(BeNumerically(">=", 3+4))
	})
})

var _ = Describe("Invariants", func() {
	It("register 0 always reads 0", func() {
		sim, _, err := runProgram("addi $zero, $zero, 5\n")
		Expect(err).To(HaveOccurred())
		Expect(err.(*simerr.Error).Kind).To(Equal(simerr.KindInvalidRegister))
		Expect(sim.Registers().Read(0)).To(Equal(int32(0)))
	})

	It("constructs successfully for a program under the memory limit", func() {
		program := []isa.Instruction{{Op: isa.OpAddi, Op1: "$t0", Op2: "$zero", Op3: "1"}}
		_, err := pipeline.New(program, map[string]int{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects a program that would exceed the memory limit", func() {
		program := make([]isa.Instruction, arch.MaxMemoryWords)
		for i := range program {
			program[i] = isa.Instruction{Op: isa.OpAddi, Op1: "$t0", Op2: "$zero", Op3: "1"}
		}
		_, err := pipeline.New(program, map[string]int{})
		Expect(err).To(HaveOccurred())
		Expect(err.(*simerr.Error).Kind).To(Equal(simerr.KindMemoryLimit))
	})
})

var _ = Describe("Branch predictor variant", func() {
	It("resolves branches via EX and still produces correct results", func() {
		pred := predictor.NewSaturating(1)
		prog, err := asm.Parse(strings.NewReader(`
			addi $t0, $zero, 1
			addi $t1, $zero, 1
			beq $t0, $t1, L
			addi $t2, $zero, 99
			L: addi $t3, $zero, 7
		`))
		Expect(err).NotTo(HaveOccurred())

		sim, err := pipeline.NewPredicting(prog.Instructions, prog.Labels, pred)
		Expect(err).NotTo(HaveOccurred())

		for !sim.Done() {
			sim.Tick()
			Expect(sim.Err()).NotTo(HaveOccurred())
		}
		Expect(sim.Registers().Read(10)).To(Equal(int32(0)))
		Expect(sim.Registers().Read(11)).To(Equal(int32(7)))
	})
})
