package main

import (
	"time"
)

// coRange is a lazy signed-integer range generator. The first invocation
// pops ( from to step ) and yields the first value; later invocations
// yield the next value, or nothing once the range is spent.
type coRange struct {
	started bool
	cur     int64
	to      int64
	step    int64
}

func (g *coRange) run(vm *VM) {
	if !g.started {
		step := vm.pop().Signed()
		to := vm.pop().Signed()
		from := vm.pop().Signed()
		if !(from < to && step > 0) && !(from > to && step < 0) {
			panic(runtimeErrf("Wrong iteration parameters when creating CoRange"))
		}
		g.cur, g.to, g.step = from, to, step
		g.started = true
	}
	if g.more() {
		vm.push(signedCell(g.cur))
		g.cur += g.step
	}
}

func (g *coRange) more() bool {
	if g.step > 0 {
		return g.cur < g.to
	}
	return g.cur > g.to
}

// coFiber is a time-sliced cooperative task. The first invocation pops
// ( rotations time_slice_ms ) and creates the suspended task around the
// captured word; later invocations enqueue the task's handle with the
// scheduler, never twice.
type coFiber struct {
	assoc *compo
	task  *fiberTask
}

func (w *coFiber) run(vm *VM) {
	if w.task == nil {
		slice := vm.pop().Signed()
		rotations := vm.pop().Signed()
		w.task = newFiberTask(vm, w.assoc, rotations, time.Duration(slice)*time.Millisecond)
		return
	}
	vm.sched.enqueue(w.task)
}

// fiberTask runs its word on a private goroutine, handing control back and
// forth with the scheduler so that only one of the two ever touches the VM.
type fiberTask struct {
	resume chan struct{}
	parked chan struct{}
	done   bool
	err    error
}

func newFiberTask(vm *VM, body *compo, rotations int64, slice time.Duration) *fiberTask {
	t := &fiberTask{
		resume: make(chan struct{}),
		parked: make(chan struct{}),
	}
	go t.main(vm, body, rotations, slice)
	return t
}

func (t *fiberTask) main(vm *VM, body *compo, rotations int64, slice time.Duration) {
	<-t.resume // created suspended

	defer func() {
		if e := recover(); e != nil {
			if fe, ok := e.(forthError); ok {
				t.err = fe
			} else {
				panic(e)
			}
		}
		t.done = true
		t.parked <- struct{}{}
	}()

	last := time.Now()
	for i := int64(0); rotations == -1 || i < rotations; i++ {
		body.run(vm)

		flag, ok := vm.dstack.pop()
		if !ok {
			panic(underflowErr("- the fiber word should leave a status value 1/0 on the stack"))
		}
		if flag == cellFalse {
			return
		}

		if time.Since(last) > slice {
			t.yield()
			last = time.Now()
		}
	}
}

// yield parks the fiber until the scheduler's next tick.
func (t *fiberTask) yield() {
	t.parked <- struct{}{}
	<-t.resume
}

// tick resumes the fiber and waits for it to park or finish. It returns any
// error the fiber body raised; the caller re-raises it on the interpreter
// thread.
func (t *fiberTask) tick() error {
	if t.done {
		return nil
	}
	t.resume <- struct{}{}
	<-t.parked
	return t.err
}

// scheduler is the cooperative ready-queue of fiber handles, pumped by the
// shell between reads.
type scheduler struct {
	queue []*fiberTask
}

// enqueue inserts a handle, keeping the queue free of duplicates.
func (s *scheduler) enqueue(t *fiberTask) {
	for _, q := range s.queue {
		if q == t {
			return
		}
	}
	s.queue = append(s.queue, t)
}

// pump resumes every queued fiber once, in insertion order, dropping
// completed handles.
func (s *scheduler) pump() error {
	for i := 0; i < len(s.queue); {
		t := s.queue[i]
		if t.done {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			continue
		}
		if err := t.tick(); err != nil {
			t.err = nil
			return err
		}
		i++
	}
	return nil
}

// Pump runs one scheduler sweep, surfacing any fiber error through the
// usual recovery path.
func (vm *VM) Pump() error {
	return vm.recoverEval(func() {
		if err := vm.sched.pump(); err != nil {
			panic(err)
		}
	})
}
