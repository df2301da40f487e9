package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"time"

	utls "github.com/refraction-networking/utls"
)

// TLSFingerprintChrome presents a Chrome ClientHello instead of Go's.
const TLSFingerprintChrome = "chrome"

// chromeHelloSpec returns the Chrome ClientHello with ALPN pinned to
// http/1.1; the transport cannot speak h2 over a utls connection.
func chromeHelloSpec() (*utls.ClientHelloSpec, error) {
	spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
	if err != nil {
		return nil, fmt.Errorf("build chrome hello spec: %w", err)
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	return &spec, nil
}

type dialTLSFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func chromeDialer(dialTimeout time.Duration) (dialTLSFunc, error) {
	if _, err := chromeHelloSpec(); err != nil {
		return nil, err
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialer := &net.Dialer{Timeout: dialTimeout}
		raw, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		spec, err := chromeHelloSpec()
		if err != nil {
			_ = raw.Close()
			return nil, err
		}
		conn := utls.UClient(raw, &utls.Config{ServerName: host}, utls.HelloCustom)
		if err := conn.ApplyPreset(spec); err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("apply chrome hello: %w", err)
		}
		if err := conn.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("tls handshake %s: %w", host, err)
		}
		return conn, nil
	}, nil
}
