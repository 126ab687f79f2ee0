package pipeline

import (
	"bufio"
	"fmt"
	"io"
)

// WriteCycleReport writes one cycle's worth of architectural state to
// w: the 32 register values on one line, then a line starting with
// the number of memory words this cycle's stores changed. If that
// count is positive, the first changed word's address/value follow on
// the same line, and any further changed words each get their own
// "address value" line.
func WriteCycleReport(w io.Writer, sim *Simulator) error {
	bw := bufio.NewWriter(w)

	regs := sim.Registers().Snapshot()
	for i, v := range regs {
		if i > 0 {
			if _, err := bw.WriteString(" "); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(bw, "%d", v); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}

	deltas := sim.Deltas()
	if _, err := fmt.Fprintf(bw, "%d", len(deltas)); err != nil {
		return err
	}
	for i, d := range deltas {
		sep := "\n"
		if i == 0 {
			sep = " "
		}
		if _, err := fmt.Fprintf(bw, "%s%d %d", sep, d.Addr, d.Value); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}

	return bw.Flush()
}
