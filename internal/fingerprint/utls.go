package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile represents a recognized TLS fingerprint profile.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard go TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

// ParseProfile validates a profile name from configuration. An empty name
// selects ProfileGo.
func ParseProfile(name string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(name)))
	if p == "" {
		return ProfileGo, nil
	}
	if _, err := helloID(p); err != nil {
		return "", err
	}
	return p, nil
}

func helloID(p Profile) (utls.ClientHelloID, error) {
	switch p {
	case ProfileGo:
		return utls.ClientHelloID{}, nil
	case ProfileChrome:
		return utls.HelloChrome_Auto, nil
	case ProfileFirefox:
		return utls.HelloFirefox_Auto, nil
	case ProfileSafari:
		return utls.HelloIOS_Auto, nil
	case ProfileRandom:
		// The fetcher speaks HTTP/1.1 over the uTLS connection, so the
		// randomized hello must not offer h2.
		return utls.HelloRandomizedNoALPN, nil
	default:
		return utls.ClientHelloID{}, fmt.Errorf("fingerprint: unknown profile %q", p)
	}
}

// Transport returns an http.RoundTripper presenting the TLS fingerprint of p.
// ProfileGo yields a clone of http.DefaultTransport.
func Transport(p Profile) (http.RoundTripper, error) {
	tr, err := transport(p, &utls.Config{})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

func transport(p Profile, base *utls.Config) (*http.Transport, error) {
	id, err := helloID(p)
	if err != nil {
		return nil, err
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	if p == ProfileGo {
		return tr, nil
	}

	dial := tr.DialContext
	tr.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		cfg := base.Clone()
		cfg.ServerName = host

		uConn, err := handshake(ctx, tcpConn, cfg, id)
		if err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("fingerprint: utls handshake with %s failed: %w", host, err)
		}
		return uConn, nil
	}
	return tr, nil
}

// handshake performs the uTLS handshake, restricting ALPN to http/1.1 for
// browser presets since http.Transport cannot run h2 over a *utls.UConn.
func handshake(ctx context.Context, conn net.Conn, cfg *utls.Config, id utls.ClientHelloID) (*utls.UConn, error) {
	if id == utls.HelloRandomizedNoALPN {
		uConn := utls.UClient(conn, cfg, id)
		return uConn, uConn.HandshakeContext(ctx)
	}

	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		return nil, err
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	uConn := utls.UClient(conn, cfg, utls.HelloCustom)
	if err := uConn.ApplyPreset(&spec); err != nil {
		return nil, err
	}
	return uConn, uConn.HandshakeContext(ctx)
}
