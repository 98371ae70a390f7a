// Command eventwire-health is a standalone, dependency-light health
// probe: it dials the daemon's listener port and reports whether it
// accepted the TCP handshake, serving the result over fasthttp the same
// lean way the teacher's health POC does (bare router, no mux/TLS/auth)
// so it stays cheap enough to run as a sidecar liveness check.
package main

import (
	"flag"
	"fmt"
	"net"
	"time"

	"github.com/valyala/fasthttp"
)

func main() {
	listenAddr := flag.String("addr", ":8081", "listen address for the health endpoint")
	target := flag.String("target", "127.0.0.1:7000", "eventwire listener address to probe")
	dialTimeout := flag.Duration("dial-timeout", 2*time.Second, "timeout for the probe dial")
	flag.Parse()

	h := func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/health", "/healthz":
			ctx.Response.Header.Set("Content-Type", "application/json")
			if err := probe(*target, *dialTimeout); err != nil {
				ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
				_, _ = ctx.WriteString(fmt.Sprintf("{\"status\":\"down\",\"target\":%q,\"error\":%q}", *target, err.Error()))
				return
			}
			ctx.SetStatusCode(fasthttp.StatusOK)
			_, _ = ctx.WriteString(fmt.Sprintf("{\"status\":\"ok\",\"target\":%q}", *target))
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}

	fmt.Printf("eventwire-health listening on %s, probing %s\n", *listenAddr, *target)
	srv := &fasthttp.Server{
		Handler:            h,
		Name:               "eventwire-health",
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		MaxRequestBodySize: 1 << 10,
	}
	if err := srv.ListenAndServe(*listenAddr); err != nil {
		fmt.Printf("eventwire-health server exit: %v\n", err)
	}
}

func probe(target string, timeout time.Duration) error {
	c, err := net.DialTimeout("tcp", target, timeout)
	if err != nil {
		return err
	}
	return c.Close()
}
