package emu

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidgoconv/memory"
	"github.com/retroenv/sidgoconv/options"
	"github.com/retroenv/sidgoconv/sid"
)

// RegisterWrite is one captured store into the chip register window.
// Events are ordered by frame, then by write order within the frame, and
// every write is retained including repeated writes to the same register.
type RegisterWrite struct {
	Frame    int
	Register byte // register offset inside the window, 0..28
	Value    byte
}

func (w RegisterWrite) String() string {
	return fmt.Sprintf("frame %d: %s = 0x%02x", w.Frame, sid.RegisterName(w.Register), w.Value)
}

// InitCall describes an optional one time routine call executed before the
// first frame, typically the player init routine with the song number in
// the accumulator. Its register writes are not part of the trace.
type InitCall struct {
	Address uint16
	A       byte
}

// Runner produces the register write trace of a player routine as a lazy,
// finite, restartable sequence. Frames are numbered from 0. Exceeding the
// per frame instruction ceiling truncates the trace and flags divergence
// instead of failing the run.
type Runner struct {
	logger *log.Logger
	opts   options.Emulation

	entry       uint16
	frameBudget int
	init        *InitCall

	pristine *memory.Image // snapshot for Restart

	cpu     *CPU
	mem     *memory.Image
	frame   int
	pending []RegisterWrite
	started bool
	done    bool

	diverged      bool
	divergedFrame int
	err           error
}

// NewRunner creates a runner calling the routine at entry once per frame
// for frameBudget frames. The runner takes ownership of the memory image.
func NewRunner(logger *log.Logger, mem *memory.Image, entry uint16,
	frameBudget int, init *InitCall, opts options.Emulation) *Runner {

	return &Runner{
		logger:      logger,
		opts:        opts,
		entry:       entry,
		frameBudget: frameBudget,
		init:        init,
		pristine:    mem.Copy(),
		mem:         mem,
	}
}

// Next returns the next register write of the trace. It returns false when
// the trace is exhausted, either by reaching the frame budget, by a flagged
// divergence or by a fatal execution error reported through Err.
func (r *Runner) Next() (RegisterWrite, bool) {
	for len(r.pending) == 0 {
		if r.done || !r.runFrame() {
			return RegisterWrite{}, false
		}
	}

	event := r.pending[0]
	r.pending = r.pending[1:]
	return event, true
}

// Events drains the remaining trace into a slice.
func (r *Runner) Events() []RegisterWrite {
	var events []RegisterWrite
	for {
		event, ok := r.Next()
		if !ok {
			return events
		}
		events = append(events, event)
	}
}

// Err returns the fatal error that ended the trace early, if any.
// Divergence is not fatal and reported by Diverged instead.
func (r *Runner) Err() error {
	return r.err
}

// Diverged reports whether the trace was truncated by an instruction
// ceiling and at which frame.
func (r *Runner) Diverged() (bool, int) {
	return r.diverged, r.divergedFrame
}

// Restart rewinds the runner to a pristine machine state so that the trace
// can be pulled again from frame 0.
func (r *Runner) Restart() {
	r.mem = r.pristine.Copy()
	r.cpu = nil
	r.frame = 0
	r.pending = nil
	r.started = false
	r.done = false
	r.diverged = false
	r.divergedFrame = 0
	r.err = nil
}

// runFrame executes one routine call and appends its captured writes to the
// pending queue. It returns false when the trace ended.
func (r *Runner) runFrame() bool {
	if !r.started {
		if !r.start() {
			return false
		}
	}
	if r.frame >= r.frameBudget {
		r.done = true
		return false
	}

	frame := r.frame
	r.cpu.SetWriteHook(func(address uint16, value byte) {
		if offset, ok := r.registerOffset(address); ok {
			r.pending = append(r.pending, RegisterWrite{Frame: frame, Register: offset, Value: value})
		}
	})

	err := r.cpu.Call(r.entry, 0, 0, 0, r.opts.MaxInstructionsPerFrame)
	r.frame++

	switch {
	case err == nil:

	case isDivergence(err):
		r.diverged = true
		r.divergedFrame = frame
		r.done = true
		r.logger.Warn("execution diverged, trace truncated",
			log.String("entry", fmt.Sprintf("0x%04X", r.entry)),
			log.String("frame", fmt.Sprintf("%d", frame)))

	default:
		r.err = fmt.Errorf("frame %d: %w", frame, err)
		r.done = true
		return len(r.pending) > 0
	}

	return true
}

// start executes the optional init call. Its writes do not appear in the
// trace but its memory effects persist.
func (r *Runner) start() bool {
	r.cpu = NewCPU(r.mem, r.opts.IllegalOpcode)
	r.started = true

	if r.init == nil {
		return true
	}
	if err := r.cpu.Call(r.init.Address, r.init.A, 0, 0, r.opts.MaxInstructionsPerFrame); err != nil {
		r.err = fmt.Errorf("init call at #%04x: %w", r.init.Address, err)
		r.done = true
		return false
	}
	return true
}

func (r *Runner) registerOffset(address uint16) (byte, bool) {
	base := r.opts.RegisterBase
	if address < base || address >= base+sid.RegisterWindow {
		return 0, false
	}
	return byte(address - base), true
}

func isDivergence(err error) bool {
	var diverged *DivergedError
	return errors.As(err, &diverged)
}
