// Command revlookup performs a single reverse DNS lookup over DoH.
//
// Usage:
//
//	revlookup [flags] IP
//
// Exit status is 0 on success, 1 on failure.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jroosing/revdoh/internal/cache"
	"github.com/jroosing/revdoh/internal/config"
	"github.com/jroosing/revdoh/internal/dnswire"
	"github.com/jroosing/revdoh/internal/resolver"
	"github.com/jroosing/revdoh/internal/transport"
)

func main() {
	var (
		endpoint = flag.String("endpoint", config.DefaultEndpoint, "DoH endpoint URL")
		timeout  = flag.Duration("timeout", 30*time.Second, "Per-attempt timeout")
		retries  = flag.Int("retries", 3, "Attempts per query")
		asJSON   = flag.Bool("json", false, "Print the result as JSON")
		quiet    = flag.Bool("quiet", false, "Suppress output (exit status indicates success)")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: revlookup [flags] IP")
		flag.PrintDefaults()
		os.Exit(2)
	}
	ip := flag.Arg(0)

	logger := slog.New(slog.DiscardHandler)
	doh := transport.NewClient(*endpoint, nil, *timeout, *retries, logger)
	c := cache.New(cache.DefaultTTL, cache.DefaultMaxEntries, cache.DefaultSweepEvery)
	svc := resolver.New(doh, c, nil, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*retries)*(*timeout))
	defer cancel()

	res, err := svc.Lookup(ctx, ip)
	if err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "revlookup error: %v\n", describeFailure(err))
		}
		os.Exit(1)
	}
	if *quiet {
		return
	}

	if *asJSON {
		out, _ := json.Marshal(map[string]string{"ip": ip, "domain": res.Domain})
		fmt.Println(string(out))
		return
	}
	fmt.Printf("%s -> %s\n", ip, res.Domain)
}

// describeFailure maps sentinel errors to friendlier one-liners.
func describeFailure(err error) string {
	switch {
	case errors.Is(err, resolver.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, dnswire.ErrNoAnswer):
		return "no PTR record found"
	case errors.Is(err, transport.ErrExhausted):
		return "upstream unreachable: " + err.Error()
	default:
		return err.Error()
	}
}
