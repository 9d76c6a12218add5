package threadpool

// NaivePool spawns a new goroutine per submitted task: no queue, no
// backpressure, no shutdown protocol. Grounded on the original source's
// NaiveThreadPool (std::thread::spawn per task).
type NaivePool struct{}

// NewNaivePool returns a NaivePool. size is accepted for interface
// symmetry with the other pool kinds but otherwise unused: there is no
// fixed worker count to size.
func NewNaivePool(size int) *NaivePool {
	return &NaivePool{}
}

func (NaivePool) Spawn(task func()) {
	go task()
}
