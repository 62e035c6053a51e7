package session

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/arloliu/linknode/node"
)

// Session is one live socket together with the loop's reusable buffers, valid
// from a successful establish to its first terminating failure. At most one
// Session exists at a time; the loop discards it on any error and constructs
// a fresh one on the next iteration.
//
// Every read and write is bounded by the idle timeout. An operation that
// stalls past the deadline is reported as failed, which terminates the
// Session.
type Session struct {
	conn        net.Conn
	idleTimeout time.Duration

	// recvBuf and sendBuf are owned by the loop and reused across sessions;
	// no per-iteration allocation happens here.
	recvBuf []byte
	sendBuf []byte

	closed atomic.Bool
}

func newSession(conn net.Conn, idleTimeout time.Duration, recvBuf []byte, sendBuf []byte) *Session {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
		_ = tcpConn.SetReadBuffer(cap(recvBuf))
		_ = tcpConn.SetWriteBuffer(cap(sendBuf))
	}

	return &Session{
		conn:        conn,
		idleTimeout: idleTimeout,
		recvBuf:     recvBuf,
		sendBuf:     sendBuf,
	}
}

// Read reads one chunk from the socket into the receive buffer and returns the
// received bytes. The returned slice aliases the receive buffer and is only
// valid until the next Read call.
//
// A zero-length read is reported as io.EOF. The read is bounded by the idle
// timeout; a stalled peer surfaces as a timeout error.
func (s *Session) Read() ([]byte, error) {
	if s.closed.Load() {
		return nil, node.ErrSessionClosed
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout)); err != nil {
		return nil, err
	}

	n, err := s.conn.Read(s.recvBuf)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, fmt.Errorf("read: %w", node.ErrIdleTimeout)
		}

		return nil, err
	}

	return s.recvBuf[:n], nil
}

// Write writes p to the socket, staging through the transmit buffer. Each
// chunk write is bounded by the idle timeout.
func (s *Session) Write(p []byte) error {
	if s.closed.Load() {
		return node.ErrSessionClosed
	}

	for len(p) > 0 {
		n := copy(s.sendBuf, p)

		if err := s.conn.SetWriteDeadline(time.Now().Add(s.idleTimeout)); err != nil {
			return err
		}

		if _, err := s.conn.Write(s.sendBuf[:n]); err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return fmt.Errorf("write: %w", node.ErrIdleTimeout)
			}

			return err
		}

		p = p[n:]
	}

	return nil
}

// RemoteAddr returns the peer address of the underlying socket.
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Close closes the underlying socket. It is safe to call more than once.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	return s.conn.Close()
}
