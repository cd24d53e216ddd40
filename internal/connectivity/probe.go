// Package connectivity answers whether the network is usable right now.
package connectivity

import (
	"context"
	"log/slog"
	"net"
	"time"

	"golang.org/x/net/proxy"
)

const (
	DefaultAddress = "8.8.8.8:53"
	DefaultTimeout = 3 * time.Second
)

// Probe checks reachability by opening a TCP connection to a well known
// host. It has no state beyond its settings and is safe for concurrent use.
type Probe struct {
	Address string
	Timeout time.Duration
	Dialer  proxy.ContextDialer
}

// Available reports whether Address could be reached within Timeout. Any
// failure, including a cancelled ctx, yields false.
func (p *Probe) Available(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	addr := p.Address
	if addr == "" {
		addr = DefaultAddress
	}

	var dialer proxy.ContextDialer = &net.Dialer{}
	if p.Dialer != nil {
		dialer = p.Dialer
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		slog.Debug("connectivity probe failed", "addr", addr, "err", err)
		return false
	}
	conn.Close()

	return true
}
