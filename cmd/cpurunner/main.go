// Command cpurunner drives a GameBoy instance headlessly against a ROM,
// primarily for running cycle-timing test suites (the blargg/mooneye style
// of ROM that reports "Passed"/"Failed N tests" over the serial port).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/gameboy"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM (.gb)")
	cycles := flag.Uint64("cycles", 200_000_000, "max T-cycles to run")
	trace := flag.Bool("trace", false, "print PC/opcode/register trace to stdout")
	auto := flag.Bool("auto", false, "stop when serial output contains 'Passed' or 'Failed N tests', exit 0/1")
	until := flag.String("until", "", "stop when serial output contains this substring (case-insensitive)")
	timeout := flag.Duration("timeout", 0, "optional wall-clock timeout (e.g. 30s); 0 disables")
	breakAddrs := flag.String("break", "", "comma-separated hex PC breakpoints, e.g. 0x0100,0x40")
	dumpPath := flag.String("dump", "", "write a state snapshot to this path on exit")
	chunk := flag.Uint64("chunk", 10_000, "T-cycles advanced per RunFor call")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("-rom is required")
	}

	cfg := Config{Trace: *trace, CycleBudget: *cycles}
	for _, tok := range strings.Split(*breakAddrs, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(tok, "0x"), 16, 16)
		if err != nil {
			log.Fatalf("bad -break address %q: %v", tok, err)
		}
		cfg.Breakpoints = append(cfg.Breakpoints, uint16(addr))
	}

	gb := gameboy.New()
	if ok, err := gb.LoadROMFile(*romPath); !ok {
		if err != nil {
			log.Fatalf("load rom: %v", err)
		}
		log.Fatalf("load rom: %s is not bootable (logo or header checksum failed)", *romPath)
	}

	for _, addr := range cfg.Breakpoints {
		gb.CPU.SetBreakpoint(addr, true)
	}

	if cfg.Trace {
		gb.CPU.Trace(os.Stdout)
	}

	gb.SetPause(false) // Reset() leaves the machine paused, debugger-attached style

	start := time.Now()
	var deadline time.Time
	if *timeout > 0 {
		deadline = start.Add(*timeout)
	}

	failRe := regexp.MustCompile(`(?i)failed\s+(\d+)\s+tests?`)

	var ran uint64
	var lastSerialLen int
	for ran < cfg.CycleBudget {
		gb.RunFor(*chunk)
		ran += *chunk

		if gb.Paused() {
			fmt.Printf("\nBreakpoint hit at PC=%04X\n", gb.CPU.PC)
			break
		}

		buf := gb.Serial.Buffer()
		if len(buf) > lastSerialLen {
			os.Stdout.Write(buf[lastSerialLen:])
			lastSerialLen = len(buf)
		}
		s := string(buf)

		if *auto {
			if strings.Contains(strings.ToLower(s), "passed") {
				finish(gb, *dumpPath, start, ran)
				os.Exit(0)
			}
			if m := failRe.FindStringSubmatch(s); m != nil {
				fmt.Printf("\nDetected %s in serial output.\n", m[0])
				finish(gb, *dumpPath, start, ran)
				os.Exit(1)
			}
		} else if *until != "" && strings.Contains(strings.ToLower(s), strings.ToLower(*until)) {
			fmt.Printf("\nDetected %q in serial output.\n", *until)
			finish(gb, *dumpPath, start, ran)
			return
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			fmt.Printf("\nTimeout after %s.\n", time.Since(start).Truncate(time.Millisecond))
			finish(gb, *dumpPath, start, ran)
			os.Exit(2)
		}
	}

	finish(gb, *dumpPath, start, ran)
}

func finish(gb *gameboy.GameBoy, dumpPath string, start time.Time, ran uint64) {
	if dumpPath != "" {
		data, err := gb.CreateStateSnapshot()
		if err != nil {
			log.Printf("snapshot: %v", err)
		} else if err := os.WriteFile(dumpPath, data, 0o644); err != nil {
			log.Printf("write snapshot: %v", err)
		}
	}
	fmt.Printf("\nDone: cycles=%d elapsed=%s\n", ran, time.Since(start).Truncate(time.Millisecond))
}
