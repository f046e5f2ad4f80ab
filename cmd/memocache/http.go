package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/memocache/httpcache"
	"github.com/jonwraymond/memocache/storage"
)

// serveTodos starts a local /todos endpoint and returns its URL, a counter
// of requests served and a shutdown function.
func serveTodos() (string, *atomic.Int32, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, nil, err
	}
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /todos", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":1,"title":"write docs","completed":false}]`)
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go srv.Serve(ln)
	return "http://" + ln.Addr().String() + "/todos", &hits, func() { _ = srv.Close() }, nil
}

func newHTTPCommand() *cobra.Command {
	var (
		url  string
		wait time.Duration
	)
	cmd := &cobra.Command{
		Use:   "http-demo",
		Short: "GET /todos twice within the TTL, wait for expiry, and GET again",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer closeRuntime(rt)

			hc := rt.Config.HTTP
			var hits *atomic.Int32
			if url == "" {
				u, h, stop, err := serveTodos()
				if err != nil {
					return err
				}
				defer stop()
				url, hits = u, h
			}
			if wait == 0 {
				wait = hc.TTL
			}

			client := &http.Client{Transport: httpcache.NewTransport(rt.Cache, nil,
				httpcache.WithName(hc.Name),
				httpcache.WithTelemetry(rt.Telemetry))}

			opts := []httpcache.Option{
				httpcache.TTL(hc.TTL),
				httpcache.Backend(storage.Kind(hc.Backend), hc.Prefix),
			}
			if hc.KeyBySubject {
				opts = append(opts, httpcache.KeyWith(httpcache.SubjectKey(nil)))
			}
			ctx := httpcache.WithCache(cmd.Context(), opts...)

			out := cmd.OutOrStdout()
			fetch := func(label string) error {
				n, err := get(ctx, client, url)
				if err != nil {
					return err
				}
				line := fmt.Sprintf("%-7s %d bytes", label, n)
				if hits != nil {
					line += fmt.Sprintf(", network requests so far: %d", hits.Load())
				}
				fmt.Fprintln(out, line)
				return nil
			}

			if err := fetch("first"); err != nil {
				return err
			}
			if err := fetch("second"); err != nil {
				return err
			}
			select {
			case <-time.After(wait):
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
			return fetch("expired")
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "endpoint to fetch; defaults to a local /todos server")
	cmd.Flags().DurationVar(&wait, "wait", 0, "pause before the last request; defaults to the configured TTL")
	return cmd
}

func get(ctx context.Context, client *http.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode >= 300 {
		return len(body), fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return len(body), nil
}
