// Command kvs-client is a thin CLI over the kvs wire protocol, matching
// the get/set/rm contract in SPEC_FULL.md §6.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/dreamsxin/kvs/client"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: kvs-client <get|set|rm> ...")
		return 1
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "get":
		return cmdGet(rest)
	case "set":
		return cmdSet(rest)
	case "rm":
		return cmdRm(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", sub)
		return 1
	}
}

func cmdGet(args []string) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:4000", "server address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: kvs-client get <key> [--addr host:port]")
		return 1
	}

	c := client.New(*addr)
	value, ok, err := c.Get(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !ok {
		fmt.Println("Key not found")
		return 0
	}
	fmt.Println(value)
	return 0
}

func cmdSet(args []string) int {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:4000", "server address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: kvs-client set <key> <value> [--addr host:port]")
		return 1
	}

	c := client.New(*addr)
	if err := c.Set(fs.Arg(0), fs.Arg(1)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func cmdRm(args []string) int {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:4000", "server address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: kvs-client rm <key> [--addr host:port]")
		return 1
	}

	c := client.New(*addr)
	if err := c.Remove(fs.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
