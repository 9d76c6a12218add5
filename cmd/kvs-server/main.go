// Command kvs-server runs the kvs TCP server described in SPEC_FULL.md
// §6: pick a storage engine and a thread pool kind, bind an address,
// serve forever.
package main

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	flag "github.com/spf13/pflag"

	"github.com/dreamsxin/kvs/engine"
	"github.com/dreamsxin/kvs/engine/kvs"
	"github.com/dreamsxin/kvs/server"
	"github.com/dreamsxin/kvs/sledengine"
	"github.com/dreamsxin/kvs/threadpool"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:4000", "listen address")
	engineName := flag.String("engine", "kvs", "storage engine: kvs|sled")
	poolName := flag.String("pool", "shared_queue", "thread pool: naive|shared_queue|rayon")
	logLevel := flag.String("log-level", "info", "log level: debug|info|error")
	poolSize := flag.Int("pool-size", 4, "worker count for shared_queue and rayon pools")
	flag.Parse()

	logger := newLogger(*logLevel)

	dir, err := os.Getwd()
	if err != nil {
		level.Error(logger).Log("msg", "failed to determine working directory", "err", err)
		return 1
	}

	eng, err := openEngine(*engineName, dir, logger)
	if err != nil {
		level.Error(logger).Log("msg", "failed to open engine", "engine", *engineName, "err", err)
		return 1
	}
	defer eng.Close()

	pool := openPool(*poolName, *poolSize)

	level.Info(logger).Log("msg", "starting kvs-server", "engine", *engineName, "pool", *poolName, "addr", *addr)
	srv := server.New(eng, pool, logger)
	if err := srv.ListenAndServe(*addr); err != nil {
		level.Error(logger).Log("msg", "server stopped", "err", err)
		return 1
	}
	return 0
}

func openEngine(name, dir string, logger log.Logger) (engine.KvsEngine, error) {
	switch name {
	case "kvs":
		return kvs.Open(dir, kvs.WithLogger(logger))
	case "sled":
		return sledengine.Open(dir)
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}

func openPool(name string, size int) threadpool.ThreadPool {
	switch name {
	case "naive":
		return threadpool.NewNaivePool(size)
	case "rayon":
		return threadpool.NewRayonPool(size)
	default:
		return threadpool.NewSharedQueuePool(size)
	}
}

func newLogger(levelName string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	switch levelName {
	case "debug":
		return level.NewFilter(logger, level.AllowDebug())
	case "error":
		return level.NewFilter(logger, level.AllowError())
	default:
		return level.NewFilter(logger, level.AllowInfo())
	}
}
