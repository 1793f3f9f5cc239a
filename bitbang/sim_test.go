package bitbang

import (
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// wire is an open-drain bus shared by the master under test and one
// simulated memory target. Bus levels are the wired AND of every driver.
type wire struct {
	mu       sync.Mutex
	sda, scl gpio.Level
	target   *target
	holdSCL  bool
}

func newWire(t *target) *wire {
	return &wire{sda: gpio.High, scl: gpio.High, target: t}
}

func (w *wire) busSDA() gpio.Level {
	if w.target != nil && w.target.sda == gpio.Low {
		return gpio.Low
	}
	return w.sda
}

func (w *wire) busSCL() gpio.Level {
	if w.holdSCL {
		return gpio.Low
	}
	return w.scl
}

func (w *wire) SDA() gpio.Level {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.update(func() { w.sda = gpio.High })
	return w.busSDA()
}

func (w *wire) SCL() gpio.Level {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.update(func() { w.scl = gpio.High })
	return w.busSCL()
}

func (w *wire) SetSDA(l gpio.Level) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.update(func() { w.sda = l })
}

func (w *wire) SetSCL(l gpio.Level) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.update(func() { w.scl = l })
}

func (w *wire) update(f func()) {
	sda0, scl0 := w.busSDA(), w.busSCL()
	f()
	sda1, scl1 := w.busSDA(), w.busSCL()
	if w.target != nil {
		w.target.edge(sda0, scl0, sda1, scl1)
	}
}

type targetState int

const (
	stateIdle targetState = iota
	stateAddr
	stateWrite
	stateRead
	stateIgnore
)

// target is a 256 byte register memory, the first byte of a write sets the
// register pointer.
type target struct {
	addr     byte
	mem      [256]byte
	ptr      byte
	state    targetState
	bit      int
	shift    byte
	cur      byte
	ackPhase bool
	gotPtr   bool
	read     bool
	ackIn    bool
	sda      gpio.Level
	starts   int
	stops    int
}

func newTarget(addr byte) *target {
	return &target{addr: addr, sda: gpio.High}
}

func (t *target) edge(sda0, scl0, sda1, scl1 gpio.Level) {
	switch {
	case bool(scl0 && scl1 && sda0 && !sda1):
		t.starts++
		t.state, t.bit, t.shift, t.ackPhase, t.sda = stateAddr, 0, 0, false, gpio.High
	case bool(scl0 && scl1 && !sda0 && sda1):
		t.stops++
		t.state, t.sda = stateIdle, gpio.High
	case bool(!scl0 && scl1):
		t.rise(sda1)
	case bool(scl0 && !scl1):
		t.fall()
	}
}

func (t *target) rise(sda gpio.Level) {
	switch t.state {
	case stateAddr, stateWrite:
		if !t.ackPhase && t.bit < 8 {
			t.shift <<= 1
			if sda {
				t.shift |= 1
			}
			t.bit++
		}
	case stateRead:
		if t.ackPhase {
			t.ackIn = sda == gpio.Low
		} else {
			t.bit++
		}
	}
}

func (t *target) fall() {
	switch t.state {
	case stateAddr, stateWrite:
		switch {
		case !t.ackPhase && t.bit == 8:
			t.receive()
		case t.ackPhase:
			t.ackPhase, t.bit, t.shift = false, 0, 0
			t.sda = gpio.High
			if t.state == stateAddr {
				if t.read {
					t.state = stateRead
					t.load()
				} else {
					t.state = stateWrite
				}
			}
		}
	case stateRead:
		switch {
		case !t.ackPhase && t.bit < 8:
			t.drive()
		case !t.ackPhase:
			t.sda = gpio.High
			t.ackPhase = true
		default:
			t.ackPhase = false
			if t.ackIn {
				t.load()
			} else {
				t.state, t.sda = stateIgnore, gpio.High
			}
		}
	}
}

func (t *target) receive() {
	if t.state == stateAddr {
		if t.shift>>1 != t.addr {
			t.state = stateIgnore
			return
		}
		t.read = t.shift&1 == 1
		t.gotPtr = false
	} else if !t.gotPtr {
		t.ptr, t.gotPtr = t.shift, true
	} else {
		t.mem[t.ptr] = t.shift
		t.ptr++
	}
	t.sda = gpio.Low
	t.ackPhase = true
}

func (t *target) load() {
	t.cur = t.mem[t.ptr]
	t.ptr++
	t.bit = 0
	t.drive()
}

func (t *target) drive() {
	t.sda = gpio.Level(t.cur>>(7-t.bit)&1 == 1)
}
