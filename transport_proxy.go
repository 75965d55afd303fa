package mqtt

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"golang.org/x/net/proxy"
)

// SOCKS5Dialer connects to brokers through a SOCKS5 proxy.
type SOCKS5Dialer struct {
	// ProxyURL is the proxy address: socks5://host:port, optionally with
	// userinfo for authentication.
	ProxyURL string
}

// Dial connects to address through the proxy.
func (d *SOCKS5Dialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	u, err := url.Parse(d.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("mqtt: invalid proxy URL: %w", err)
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil, fmt.Errorf("mqtt: unsupported proxy scheme %q", u.Scheme)
	}

	var auth *proxy.Auth
	if u.User != nil {
		password, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: password}
	}

	forward, err := proxy.SOCKS5("tcp", u.Host, auth, &net.Dialer{})
	if err != nil {
		return nil, fmt.Errorf("mqtt: proxy setup failed: %w", err)
	}

	if cd, ok := forward.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", address)
	}
	return forward.Dial("tcp", address)
}
