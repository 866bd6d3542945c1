package main

// Config holds the run-mode toggles cpurunner derives from its flags:
// whether to trace, which PCs to break on, and how many T-cycles to budget
// per run. Kept here rather than in internal/gameboy since nothing under
// internal/ needs it — it is purely a CLI-facing convenience.
type Config struct {
	Trace       bool
	Breakpoints []uint16
	CycleBudget uint64
}
