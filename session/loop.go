package session

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/arloliu/linknode/internal/pool"
	"github.com/arloliu/linknode/logger"
	"github.com/arloliu/linknode/netstack"
	"github.com/arloliu/linknode/node"
)

// Loop is the perpetual outer/inner session state machine, parameterized by
// the node role. The outer loop establishes one Session bounded by the
// establish timeout; the inner loop exchanges bytes until the first failure,
// then discards the Session and the outer loop starts over.
//
// Run executes one outer iteration and is intended as a task body:
//
//	taskMgr.Start("sessionTask", func() bool { return loop.Run(ctx) })
type Loop struct {
	cfg      *Config
	stack    netstack.Stack
	resolver *netstack.AddressResolver
	logger   logger.Logger

	// listener is created lazily on the first responder iteration and reused
	// across iterations; a fatal accept error discards it so the next
	// iteration re-listens. Its absence while a Session is open is what
	// refuses a second client.
	listener *net.TCPListener

	recvBuf []byte
	sendBuf []byte

	indOn   atomic.Bool
	metrics Metrics
}

// NewLoop creates a session Loop over the given network stack.
// Returns an error if the configuration or the stack is nil.
func NewLoop(cfg *Config, stack netstack.Stack) (*Loop, error) {
	if cfg == nil {
		return nil, node.ErrConfigNil
	}
	if stack == nil {
		return nil, node.ErrStackNil
	}

	return &Loop{
		cfg:      cfg,
		stack:    stack,
		resolver: netstack.NewAddressResolver(stack, cfg.configPollInterval, cfg.logger),
		logger:   cfg.logger,
		recvBuf:  make([]byte, cfg.bufferSize),
		sendBuf:  make([]byte, cfg.bufferSize),
	}, nil
}

// Resolver returns the address resolver bound to the loop's stack.
func (l *Loop) Resolver() *netstack.AddressResolver {
	return l.resolver
}

// GetMetrics returns the metrics associated with the session loop.
func (l *Loop) GetMetrics() *Metrics {
	return &l.metrics
}

// WaitReady suspends until the stack reports its network configuration, then
// logs the snapshot. Intended to be called once before the loop task starts;
// the loop itself does not require configuration to be up.
func (l *Loop) WaitReady(ctx context.Context) error {
	l.logger.Info("waiting for network configuration")

	if err := l.resolver.WaitForConfig(ctx); err != nil {
		return err
	}

	l.resolver.LogSnapshot()

	return nil
}

// Run executes one outer-loop iteration: establish a Session, exchange until
// it fails, discard it. It reports whether the loop should continue and
// returns false only when the context is done.
//
// Absent network configuration is logged and otherwise ignored; the establish
// attempt fails and retries on its own.
func (l *Loop) Run(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	// re-log the configuration each iteration; absence is non-fatal and the
	// establish attempt below fails and retries on its own
	l.resolver.LogSnapshot()

	conn, err := l.establish(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}

		return l.handleEstablishErr(ctx, err)
	}

	l.metrics.EstablishCount.Add(1)
	l.metrics.EstablishRetryGauge.Store(0)
	l.logger.Info("session established", "remote", conn.RemoteAddr())

	if l.cfg.role.IsResponder() {
		l.setIndicator(true)
	}

	sess := newSession(conn, l.cfg.idleTimeout, l.recvBuf, l.sendBuf)

	if l.cfg.role.IsInitiator() {
		l.exchangeInitiator(ctx, sess)
	} else {
		l.exchangeResponder(ctx, sess)
	}

	_ = sess.Close()
	l.logger.Info("session discarded")

	return ctx.Err() == nil
}

// Close releases the responder's listener. The loop can not accept again
// after Close; it is intended for process shutdown.
func (l *Loop) Close() error {
	if l.listener == nil {
		return nil
	}

	err := l.listener.Close()
	l.listener = nil

	return err
}

// establish performs the role's phase-1 operation bounded by the establish
// timeout: the initiator dials the remote endpoint, the responder accepts one
// inbound connection.
func (l *Loop) establish(ctx context.Context) (net.Conn, error) {
	if l.cfg.role.IsInitiator() {
		dialCtx, cancel := context.WithTimeout(ctx, l.cfg.establishTimeout)
		defer cancel()

		conn, err := l.stack.Dial(dialCtx, l.cfg.remoteAddress)
		if err != nil {
			if ctx.Err() == nil && isTimeoutErr(err) {
				return nil, node.ErrEstablishTimeout
			}

			return nil, err
		}

		return conn, nil
	}

	listener, err := l.getTCPListener(ctx)
	if err != nil {
		return nil, err
	}

	if err := listener.SetDeadline(time.Now().Add(l.cfg.establishTimeout)); err != nil {
		l.discardListener()
		return nil, err
	}

	conn, err := listener.Accept()
	if err != nil {
		if isTimeoutErr(err) {
			return nil, node.ErrEstablishTimeout
		}

		// a dead listener never accepts again; re-listen on the next iteration
		l.discardListener()

		return nil, err
	}

	return conn, nil
}

// handleEstablishErr applies the role's phase-1 failure policy and reports
// whether the loop should continue. Every responder failure, timeout or
// transport, toggles the indicator and restarts immediately; initiator
// transport errors take the configured retry delay first.
func (l *Loop) handleEstablishErr(ctx context.Context, err error) bool {
	l.metrics.EstablishRetryGauge.Add(1)

	if errors.Is(err, node.ErrEstablishTimeout) {
		if l.cfg.role.IsResponder() {
			l.toggleIndicator()
		}
		l.logger.Warn("establish timed out", "role", l.cfg.role, "timeout", l.cfg.establishTimeout)

		return true
	}

	if l.cfg.role.IsResponder() {
		l.toggleIndicator()
		l.logger.Warn("accept failed", "error", err)

		return true
	}

	l.logger.Warn("connect failed", "remote", l.cfg.remoteAddress, "error", err)

	return l.sleep(ctx, l.cfg.establishRetryDelay)
}

// exchangeInitiator runs the initiator's inner loop: write the payload, read
// the response, log it, pace, repeat. Any failure breaks back to the outer
// loop.
func (l *Loop) exchangeInitiator(ctx context.Context, sess *Session) {
	for ctx.Err() == nil {
		if err := sess.Write(l.cfg.payload); err != nil {
			l.metrics.ExchangeErrCount.Add(1)
			l.logger.Warn("write failed", "error", err)

			return
		}
		l.metrics.TxBytes.Add(uint64(len(l.cfg.payload)))

		data, err := sess.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.logger.Info("peer closed the session")
			} else {
				l.metrics.ExchangeErrCount.Add(1)
				l.logger.Warn("read failed", "error", err)
			}

			return
		}
		l.metrics.RxBytes.Add(uint64(len(data)))

		text, ok := decodeText(data)
		if !ok {
			l.metrics.ExchangeErrCount.Add(1)
			l.logger.Warn("response is not valid text, discarding session", "len", len(data))

			return
		}

		l.logger.Info("response received", "text", text)
		l.metrics.ExchangeCount.Add(1)

		if !l.sleep(ctx, l.cfg.exchangeInterval) {
			return
		}
	}
}

// exchangeResponder runs the responder's inner loop: read a chunk, echo the
// identical bytes back. Any failure breaks back to the outer loop.
func (l *Loop) exchangeResponder(ctx context.Context, sess *Session) {
	for ctx.Err() == nil {
		data, err := sess.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.logger.Info("peer closed the session")
			} else {
				l.metrics.ExchangeErrCount.Add(1)
				l.logger.Warn("read failed", "error", err)
			}

			return
		}
		l.metrics.RxBytes.Add(uint64(len(data)))

		text, ok := decodeText(data)
		if !ok {
			l.metrics.ExchangeErrCount.Add(1)
			l.logger.Warn("received bytes are not valid text, discarding session", "len", len(data))

			return
		}
		l.logger.Debug("chunk received", "text", text, "len", len(data))

		if err := sess.Write(data); err != nil {
			l.metrics.ExchangeErrCount.Add(1)
			l.logger.Warn("echo write failed", "error", err)

			return
		}
		l.metrics.TxBytes.Add(uint64(len(data)))
		l.metrics.ExchangeCount.Add(1)
	}
}

// getTCPListener lazily creates the responder's listener on the configured
// address.
func (l *Loop) getTCPListener(ctx context.Context) (*net.TCPListener, error) {
	if l.listener != nil {
		return l.listener, nil
	}

	listener, err := l.stack.Listen(ctx, l.cfg.listenAddress)
	if err != nil {
		return nil, err
	}

	tcpListener, ok := listener.(*net.TCPListener)
	if !ok {
		_ = listener.Close()
		return nil, errors.New("listener is not a TCP listener")
	}

	l.listener = tcpListener
	l.logger.Info("listening", "address", listener.Addr())

	return tcpListener, nil
}

// discardListener closes and forgets the responder's listener so the next
// establish attempt re-listens.
func (l *Loop) discardListener() {
	if l.listener != nil {
		_ = l.listener.Close()
		l.listener = nil
	}
}

// toggleIndicator flips the indicator output, used for responder establish
// failures.
func (l *Loop) toggleIndicator() {
	l.setIndicator(!l.indOn.Load())
}

// setIndicator drives the indicator output and records the level for the
// next toggle.
func (l *Loop) setIndicator(on bool) {
	l.indOn.Store(on)
	l.cfg.indicator.Set(on)
}

// sleep suspends for d or until the context is done, returning false on
// context cancellation.
func (l *Loop) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := pool.GetTimer(d)
	defer pool.PutTimer(timer)

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// decodeText validates data as UTF-8 text and returns it as a string. Invalid
// sequences are reported as a protocol violation rather than propagated; the
// caller discards the session.
func decodeText(data []byte) (string, bool) {
	if !utf8.Valid(data) {
		return "", false
	}

	return string(data), true
}

// isTimeoutErr reports whether err is a deadline expiry rather than a
// transport failure. Timeouts restart the outer loop immediately while
// transport errors take the role's retry delay.
func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
