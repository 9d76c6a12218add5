// Command kvs-bench drives concurrent load against a running kvs-server
// and reports a latency distribution, using the same
// benmathews/bench + HdrHistogram-go + hdrhistogram-writer stack the
// teacher's go.mod already carried for WAL append/read benchmarking.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/benmathews/bench"
	histwriter "github.com/benmathews/hdrhistogram-writer"
	flag "github.com/spf13/pflag"

	"github.com/dreamsxin/kvs/client"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:4000", "server address")
	duration := flag.Duration("duration", 5*time.Second, "load duration")
	workers := flag.Uint64("workers", 4, "concurrent workers")
	rateLimit := flag.Uint64("rate", 0, "requests/sec across all workers, 0 = unlimited")
	valueSize := flag.Int("value-size", 128, "size in bytes of each Set value")
	report := flag.String("report", "kvs-bench.hgrm", "path to write the HdrHistogram distribution report")
	flag.Parse()

	b := bench.Benchmark{
		Requester:  &setRequesterFactory{addr: *addr, valueSize: *valueSize},
		RateLimit:  *rateLimit,
		Duration:   *duration,
		NumWorkers: *workers,
		Interval:   time.Second,
	}

	summary := b.Run()
	fmt.Printf("requests: %d  errors: %d  elapsed: %s\n", summary.TotalRequests(), summary.TotalErrors(), summary.Elapsed())

	if err := histwriter.WriteDistributionFile(summary.Histogram, []float64{50, 90, 99, 99.9}, 1.0, *report); err != nil {
		fmt.Fprintln(os.Stderr, "failed to write report:", err)
		return 1
	}
	fmt.Println("wrote latency distribution to", *report)
	return 0
}

// setRequesterFactory hands each worker its own client (which dials a fresh
// connection per request) and a private key range so concurrent workers
// never race on the same key.
type setRequesterFactory struct {
	addr      string
	valueSize int
}

func (f *setRequesterFactory) GetRequester(workerNum uint64) bench.Requester {
	return &setRequester{
		client:    client.New(f.addr),
		value:     randomValue(f.valueSize),
		keyPrefix: fmt.Sprintf("bench-%d-", workerNum),
	}
}

type setRequester struct {
	client    *client.Client
	value     string
	keyPrefix string
	n         int
}

func (r *setRequester) Setup() error    { return nil }
func (r *setRequester) Teardown() error { return nil }

func (r *setRequester) Send() error {
	key := fmt.Sprintf("%s%d", r.keyPrefix, r.n)
	r.n++
	return r.client.Set(key, r.value)
}

func randomValue(n int) string {
	buf := make([]byte, n)
	rand.Read(buf)
	return string(buf)
}
