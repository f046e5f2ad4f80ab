package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/memocache/memo"
	"github.com/jonwraymond/memocache/storage"
)

func newMemoCommand() *cobra.Command {
	var (
		arg   string
		delay time.Duration
	)
	cmd := &cobra.Command{
		Use:   "memo-demo",
		Short: "Call a slow memoized lookup twice, clear it, and call it again",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer closeRuntime(rt)

			mc := rt.Config.Memo
			lookup := memo.Immediate(rt.Cache, memo.Config{
				Name:      mc.Name,
				TTL:       mc.TTL,
				MaxItems:  mc.MaxItems,
				Backend:   storage.Kind(mc.Backend),
				Prefix:    mc.Prefix,
				Keyer:     rt.Keyer,
				Telemetry: rt.Telemetry,
			}, func(ctx context.Context, name string) (string, error) {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return "", ctx.Err()
				}
				return fmt.Sprintf("%s: fetched at %s", name, time.Now().Format(time.RFC3339Nano)), nil
			})

			out := cmd.OutOrStdout()
			call := func(label string) error {
				start := time.Now()
				v, err := lookup.Call(cmd.Context(), arg)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-7s %8s  %s\n", label, time.Since(start).Round(time.Millisecond), v)
				return nil
			}

			if err := call("first"); err != nil {
				return err
			}
			if err := call("second"); err != nil {
				return err
			}
			lookup.ClearCache(cmd.Context())
			return call("cleared")
		},
	}
	cmd.Flags().StringVar(&arg, "arg", "Angular", "argument passed to the lookup")
	cmd.Flags().DurationVar(&delay, "delay", time.Second, "time the uncached lookup takes")
	return cmd
}
