package main

import (
	"debug/elf"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/Urethramancer/armjit/guest"
	"github.com/Urethramancer/armjit/jit"
	"github.com/Urethramancer/armjit/mem"
)

var (
	maxBlocks = flag.Int("max-blocks", 100000, "Maximum number of recompiled blocks to execute.")
	pcFlag    = flag.Uint64("pc", 0, "Initial program counter (decimal, or hex with a 0x prefix), defaults to the ELF entry point.")
	cpsrFlag  = flag.Uint64("cpsr", 0, "Initial CPSR value (decimal, or hex with a 0x prefix).")

	regR [15]string
)

func init() {
	for i := 0; i < 15; i++ {
		flag.StringVar(&regR[i], fmt.Sprintf("r%d", i), "", fmt.Sprintf("Set initial value for R%d (hex).", i))
	}
}

func main() {
	log.SetFlags(0)
	flag.Parse()

	if flag.NArg() != 1 {
		log.Println("Usage: armjit [options] <elf-file>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	filename := flag.Arg(0)

	f, err := elf.Open(filename)
	if err != nil {
		log.Fatalf("Couldn't open ELF file: %v", err)
	}
	defer f.Close()

	region := mem.NewRegion("guest", 0, 1024*1024)

	var loaded int
	for _, sec := range f.Sections {
		if sec.Type != elf.SHT_PROGBITS {
			continue
		}
		if sec.Flags&elf.SHF_ALLOC == 0 || sec.Addr == 0 {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			log.Fatalf("Couldn't read section %s: %v", sec.Name, err)
		}
		region.WriteBuf(uint32(sec.Addr), data)
		loaded += len(data)
	}

	entry := uint32(f.Entry)
	if *pcFlag != 0 {
		entry = uint32(*pcFlag)
	}

	state := guest.NewGuestState(entry, uint32(*cpsrFlag))
	state.Reg[11] = 0xDEAD_0011
	state.Reg[13] = 0x0000_8000
	state.Reg[14] = 0xDEAD_0014

	if err := setRegisters(state); err != nil {
		log.Fatalf("Error setting registers: %v", err)
	}

	log.Printf("Loaded %d bytes from %s. Execution starts at %#08x", loaded, filename, state.Pc.Fetch())
	log.Println("--- Guest state before execution ---")
	log.Println(state.Dump())

	j := jit.New(state, region)
	code := j.Run(*maxBlocks)

	log.Println("--- Guest state after execution ---")
	log.Println(state.Dump())
	log.Printf("Execution stopped: %v", code)
}

// setRegisters parses the -r0..-r14 flags and applies any that were set.
func setRegisters(state *guest.GuestState) error {
	for i, s := range regR {
		if s == "" {
			continue
		}
		val, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 32)
		if err != nil {
			return fmt.Errorf("invalid value for r%d: %w", i, err)
		}
		state.Reg[i] = uint32(val)
	}
	return nil
}
