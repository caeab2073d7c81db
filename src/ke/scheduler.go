package ke

import "sync"

/// Scheduler tracks the global thread list and per-CPU ready queues.
// Actual preemptive multiplexing of runnable threads onto processors is
// delegated to the Go runtime scheduler, not reimplemented here — this
// type exists for the bookkeeping spec.md section 4.3 and the S5
// terminate-other-thread scenario need (enumerating live threads,
// knowing which CPU a thread last ran readied-on), grounded on
// boron/source/ke/sched.c's KiGlobalThreadList and per-PRCB ExecQueue,
// with the exec-queue priority buckets themselves dropped since the Go
// runtime already does priority-oblivious fair scheduling across
// goroutines and reintroducing a second priority queue on top would
// just race the real one.
type Scheduler struct {
	mu      sync.Mutex
	global  []*Thread
	byCPU   map[int][]*Thread
}

/// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{byCPU: make(map[int][]*Thread)}
}

/// ReadyThread registers t as ready-to-run on the given CPU and appends
/// it to the global thread list, mirroring KeReadyThread.
func (s *Scheduler) ReadyThread(cpuID int, t *Thread) {
	t.setStatus(ThreadReady)
	s.mu.Lock()
	s.global = append(s.global, t)
	s.byCPU[cpuID] = append(s.byCPU[cpuID], t)
	s.mu.Unlock()
	Stats.ThreadsReadied.Inc()
}

/// GlobalThreads returns a snapshot of every thread the scheduler knows
/// about, in registration order.
func (s *Scheduler) GlobalThreads() []*Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Thread, len(s.global))
	copy(out, s.global)
	return out
}

/// ThreadsOn returns a snapshot of the threads last readied on cpuID.
func (s *Scheduler) ThreadsOn(cpuID int) []*Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byCPU[cpuID]
	out := make([]*Thread, len(list))
	copy(out, list)
	return out
}

/// RemoveThread drops t from every bookkeeping list, called once it has
/// fully terminated and its resources are being reclaimed.
func (s *Scheduler) RemoveThread(t *Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = removeThread(s.global, t)
	for cpu, list := range s.byCPU {
		s.byCPU[cpu] = removeThread(list, t)
	}
}

func removeThread(list []*Thread, t *Thread) []*Thread {
	for i, th := range list {
		if th == t {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
