package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/memocache/health"
)

var errUnhealthy = errors.New("memocache: unhealthy")

func newHealthCommand() *cobra.Command {
	var (
		timeout time.Duration
		serve   string
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe every configured backend and print a JSON report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer closeRuntime(rt)

			agg := rt.Health(timeout)
			if serve != "" {
				mux := http.NewServeMux()
				mux.Handle("GET /healthz", health.Handler(agg))
				srv := &http.Server{Addr: serve, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					<-cmd.Context().Done()
					_ = srv.Close()
				}()
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}

			rep := agg.Report(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return err
			}
			if rep.Status == health.StatusUnhealthy.String() {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "deadline shared by all checks")
	cmd.Flags().StringVar(&serve, "serve", "", "serve the report on this address at /healthz instead of printing it")
	return cmd
}
