// Package transport implements the connection-context abstraction of
// the connection-context abstraction: TCP or SCTP byte streams with optional TLS,
// connect/accept/handshake/send/recv and endpoint discovery. It is
// generalized from plain net.Conn usage (bufio.Reader/Writer directly
// over the socket) to also cover an SCTP dial/listen path, wiring
// github.com/ishidawataru/sctp.
package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/ishidawataru/sctp"
)

// Proto selects the L4 transport for a connection context.
type Proto int

const (
	ProtoTCP Proto = iota
	ProtoSCTP
)

// Endpoint is one candidate address for a peer, carrying the flags of
// Endpoint lists are ordered and de-duplicated by
// address+port; flags accumulate on merge").
type Endpoint struct {
	Addr       net.IP
	Port       int
	Configured bool
	Discovered bool
	Advertised bool
	Primary    bool
}

func (e Endpoint) key() string {
	return fmt.Sprintf("%s:%d", e.Addr.String(), e.Port)
}

// MergeEndpoints de-duplicates by address+port, accumulating flags on
// any duplicate entries, preserving first-seen order.
func MergeEndpoints(lists ...[]Endpoint) []Endpoint {
	order := make([]string, 0)
	byKey := make(map[string]Endpoint)

	for _, l := range lists {
		for _, e := range l {
			k := e.key()
			if existing, ok := byKey[k]; ok {
				existing.Configured = existing.Configured || e.Configured
				existing.Discovered = existing.Discovered || e.Discovered
				existing.Advertised = existing.Advertised || e.Advertised
				existing.Primary = existing.Primary || e.Primary
				byKey[k] = existing
			} else {
				byKey[k] = e
				order = append(order, k)
			}
		}
	}

	out := make([]Endpoint, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}

// Cnx wraps a single TCP or SCTP byte stream, optionally upgraded to
// TLS, exposing the send/recv/handshake primitives the peer PSM drives
//. It does not know about Diameter framing; the caller
// reads/writes whole messages via bufio readers sized to the codec.
type Cnx struct {
	proto Proto
	conn  net.Conn
	tls   *tls.Conn

	Reader *bufio.Reader
	Writer *bufio.Writer
}

// Connect tries each endpoint in order (primary first, as delivered by
// the caller) until one succeeds, respecting the protocol preference
//").
func Connect(ctx context.Context, endpoints []Endpoint, port int, proto Proto, timeout time.Duration) (*Cnx, error) {
	var lastErr error
	for _, ep := range endpoints {
		p := port
		if ep.Port != 0 {
			p = ep.Port
		}
		addr := fmt.Sprintf("%s:%d", ep.Addr.String(), p)

		dialCtx, cancel := context.WithTimeout(ctx, timeout)
		conn, err := dial(dialCtx, proto, addr)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		return newCnx(proto, conn), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no endpoints to connect to")
	}
	return nil, lastErr
}

func dial(ctx context.Context, proto Proto, addr string) (net.Conn, error) {
	switch proto {
	case ProtoSCTP:
		sctpAddr, err := sctp.ResolveSCTPAddr("sctp", addr)
		if err != nil {
			return nil, err
		}
		return sctp.DialSCTP("sctp", nil, sctpAddr)
	default:
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	}
}

// Listener accepts incoming connections for one protocol on one bind
// address -> Cnx").
type Listener struct {
	proto Proto
	ln    net.Listener
}

// Listen opens a listening socket for the given protocol.
func Listen(bindAddr string, port int, proto Proto) (*Listener, error) {
	addr := fmt.Sprintf("%s:%d", bindAddr, port)

	var ln net.Listener
	var err error
	switch proto {
	case ProtoSCTP:
		sctpAddr, rerr := sctp.ResolveSCTPAddr("sctp", addr)
		if rerr != nil {
			return nil, rerr
		}
		ln, err = sctp.ListenSCTP("sctp", sctpAddr)
	default:
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return nil, err
	}
	return &Listener{proto: proto, ln: ln}, nil
}

// Accept blocks for the next incoming connection.
func (l *Listener) Accept() (*Cnx, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return newCnx(l.proto, conn), nil
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

func newCnx(proto Proto, conn net.Conn) *Cnx {
	return &Cnx{
		proto:  proto,
		conn:   conn,
		Reader: bufio.NewReader(conn),
		Writer: bufio.NewWriter(conn),
	}
}

// Handshake upgrades a clear-text connection to TLS, for either the
// "new" method (separate TLS port, called before CER) or the "old"
// inband method (called right after CEA on the same connection) per
// side selects client vs server role.
func (c *Cnx) Handshake(ctx context.Context, isServer bool, tlsConfig *tls.Config) error {
	var tlsConn *tls.Conn
	if isServer {
		tlsConn = tls.Server(c.conn, tlsConfig)
	} else {
		tlsConn = tls.Client(c.conn, tlsConfig)
	}

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return fmt.Errorf("TLS handshake failed: %w", err)
	}

	c.tls = tlsConn
	c.Reader = bufio.NewReader(tlsConn)
	c.Writer = bufio.NewWriter(tlsConn)
	return nil
}

// IsTLS reports whether the connection has completed a TLS handshake.
func (c *Cnx) IsTLS() bool {
	return c.tls != nil
}

// GetPeerCertificates returns the certificate chain presented by the
// remote side, or nil if the connection isn't TLS.
func (c *Cnx) GetPeerCertificates() []*tls.Certificate {
	if c.tls == nil {
		return nil
	}
	state := c.tls.ConnectionState()
	certs := make([]*tls.Certificate, 0, len(state.PeerCertificates))
	for _, cert := range state.PeerCertificates {
		certs = append(certs, &tls.Certificate{Certificate: [][]byte{cert.Raw}})
	}
	return certs
}

// RemoteAddr exposes the negotiated remote endpoint.
func (c *Cnx) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// LocalAddr exposes the local bind endpoint.
func (c *Cnx) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close tears down the underlying socket.
func (c *Cnx) Close() error {
	return c.conn.Close()
}

// Proto reports which L4 transport backs this connection.
func (c *Cnx) Proto() Proto {
	return c.proto
}
