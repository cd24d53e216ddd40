package proxy

import (
	"net"
	"testing"
	"time"
)

func TestDialerDirect(t *testing.T) {
	d, err := Dialer("")
	if err != nil {
		t.Fatalf("Dialer(\"\") error = %v", err)
	}
	if _, ok := d.(*net.Dialer); !ok {
		t.Errorf("Dialer(\"\") = %T, want *net.Dialer", d)
	}
}

func TestDialerSocks(t *testing.T) {
	d, err := Dialer("127.0.0.1:1080")
	if err != nil {
		t.Fatalf("Dialer() error = %v", err)
	}
	if _, ok := d.(*net.Dialer); ok {
		t.Error("Dialer() returned a direct dialer for a socks address")
	}
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("", 15*time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.Timeout != 15*time.Second {
		t.Errorf("Timeout = %s, want 15s", c.Timeout)
	}
	if c.Transport == nil {
		t.Error("Transport = nil")
	}
}
