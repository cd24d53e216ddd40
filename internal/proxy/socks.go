package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// Dialer returns a context-aware dialer going through the SOCKS5 proxy at
// socksAddr, or a direct dialer when socksAddr is empty.
func Dialer(socksAddr string) (proxy.ContextDialer, error) {
	if socksAddr == "" {
		return &net.Dialer{}, nil
	}

	d, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks dialer for %s does not support contexts", socksAddr)
	}
	return cd, nil
}

// NewClient builds an http.Client for remote recognition and action
// lookups, routed through socksAddr when it is set.
func NewClient(socksAddr string, timeout time.Duration) (*http.Client, error) {
	dialer, err := Dialer(socksAddr)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}
