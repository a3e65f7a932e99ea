package notion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 greeting in CheckProxy.
const checkProxyTimeout = 5 * time.Second

// SOCKS5 greeting constants.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthPassword = 0x02
	socks5AuthNoAccept = 0xFF
)

// ErrProxyUnreachable is returned by CheckProxy when the proxy does not
// answer or does not speak SOCKS5.
var ErrProxyUnreachable = errors.New("proxy unreachable")

// applyProxy configures transport to reach the API through proxyURL.
// socks5:// and socks5h:// go through golang.org/x/net/proxy, http(s)://
// uses the transport's CONNECT support.
func applyProxy(transport *http.Transport, proxyURL string) error {
	u, err := url.Parse(proxyURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: malformed proxy URL %q", ErrInvalidRequest, proxyURL)
	}

	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
		return nil
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return fmt.Errorf("%w: proxy %q: %w", ErrInvalidRequest, u.Redacted(), err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported proxy scheme %q", ErrInvalidRequest, u.Scheme)
	}
}

// CheckProxy verifies that a SOCKS5 proxy is listening and accepts one of
// the authentication methods we can offer. HTTP proxies are only dialed.
//
// It is a preflight check; NewClient does not connect to the proxy.
func CheckProxy(ctx context.Context, proxyURL string) error {
	u, err := url.Parse(proxyURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: malformed proxy URL %q", ErrInvalidRequest, proxyURL)
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrProxyUnreachable, u.Redacted(), err)
	}
	defer conn.Close()

	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("%w: %w", ErrProxyUnreachable, err)
		}
	}

	methods := []byte{socks5AuthNone}
	if u.User != nil {
		methods = append(methods, socks5AuthPassword)
	}
	greeting := append([]byte{socks5Version, byte(len(methods))}, methods...)
	if _, err := conn.Write(greeting); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnreachable, err)
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return fmt.Errorf("%w: %s did not answer the SOCKS5 greeting: %w", ErrProxyUnreachable, u.Redacted(), err)
	}
	if resp[0] != socks5Version {
		return fmt.Errorf("%w: %s is not a SOCKS5 proxy", ErrProxyUnreachable, u.Redacted())
	}
	if resp[1] == socks5AuthNoAccept {
		return fmt.Errorf("%w: %s rejected every authentication method", ErrProxyUnreachable, u.Redacted())
	}
	return nil
}
