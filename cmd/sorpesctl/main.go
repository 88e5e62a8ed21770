package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

func main() {
	if err := run(context.Background(), &app{now: time.Now}, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes one command line and always releases the store.
func run(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil {
		fmt.Fprintln(stderr, "close:", cerr)
		if err == nil {
			err = cerr
		}
	}
	return err
}
