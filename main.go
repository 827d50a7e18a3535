package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jcorbin/gothread/internal/lineio"
	"github.com/jcorbin/gothread/internal/logio"
)

func main() {
	ctx := context.Background()

	var log logio.Logger
	log.SetOutput(os.Stderr)
	defer func() { os.Exit(log.ExitCode()) }()

	var (
		timeout       time.Duration
		trace         bool
		withPrelude   bool
		dump          bool
		noInteractive bool
	)
	flag.DurationVar(&timeout, "timeout", 0, "specify a time limit")
	flag.BoolVar(&trace, "trace", false, "enable trace logging")
	flag.BoolVar(&withPrelude, "prelude", false, "run the builtin prelude before any other input")
	flag.BoolVar(&dump, "dump", false, "dump machine state to stderr after running")
	flag.BoolVar(&noInteractive, "no-interactive", false, "do not read from stdin after any file arguments")
	flag.Parse()

	var opts = []VMOption{
		WithOutput(os.Stdout),
		WithErrorf(log.Errorf),
	}
	if trace {
		opts = append(opts, WithLogf(log.Leveledf("TRACE")))
	}
	if withPrelude {
		opts = append(opts, WithPrelude())
	}

	for _, name := range flag.Args() {
		f, err := os.Open(name)
		if err != nil {
			log.Errorf("%v", err)
			return
		}
		opts = append(opts, WithInput(f))
	}

	if !noInteractive {
		if lineio.Interactive() {
			lr, err := lineio.New("> ")
			if err != nil {
				log.Errorf("unable to setup interactive input: %v", err)
				return
			}
			opts = append(opts, WithInput(lr))
		} else {
			opts = append(opts, WithInput(os.Stdin))
		}
	}

	vm := New(opts...)
	defer func() {
		log.ErrorIf(vm.Close())
	}()

	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	log.ErrorIf(vm.Run(ctx))

	if dump {
		vmDumper{vm: vm, out: os.Stderr}.dump()
	}
}
