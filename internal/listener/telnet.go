package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/iammegalith/telnet"
	"github.com/pixil98/go-log"
	"github.com/sirupsen/logrus"
)

type TelnetListener struct {
	port uint16
	cm   *ConnectionManager
}

func NewTelnetListener(port uint16, cm *ConnectionManager) *TelnetListener {
	return &TelnetListener{
		port: port,
		cm:   cm,
	}
}

func (l *TelnetListener) Start(ctx context.Context) error {
	connCtx, cancelConns := context.WithCancel(context.Background())
	sessions := &telnetSessions{
		accept:      l.cm.AcceptConnection,
		logger:      log.GetLogger(ctx),
		connCtx:     connCtx,
		cancelConns: cancelConns,
	}

	svr := telnet.NewServer(fmt.Sprintf(":%d", l.port), sessions)

	// done signals that Start is returning, success or failure
	done := make(chan struct{})
	defer close(done)

	// Stop accepting and drain live sessions when shutdown is requested.
	go func() {
		select {
		case <-ctx.Done():
			svr.Stop()
			sessions.drain()
		case <-done:
		}
	}()

	err := svr.ListenAndServe()
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %d is already in use (another server running?)", l.port)
		}
		return fmt.Errorf("serving telnet on port %d: %w", l.port, err)
	}

	return nil
}

// telnetSessions tracks live telnet connections so shutdown can cancel
// them together and wait for them to finish.
type telnetSessions struct {
	wg          sync.WaitGroup
	accept      func(context.Context, io.ReadWriter)
	logger      logrus.FieldLogger
	connCtx     context.Context
	cancelConns context.CancelFunc
}

func (s *telnetSessions) HandleTelnet(conn *telnet.Connection) {
	s.wg.Add(1)
	defer s.wg.Done()

	logger := s.logger.WithField("conn", uuid.New().String())
	logger.Info("telnet connection established")

	defer func() {
		if err := conn.Close(); err != nil {
			logger.Errorf("closing telnet connection: %s", err)
		}
		logger.Info("telnet connection closed")
	}()

	ctx := log.SetLogger(s.connCtx, logger)
	s.accept(ctx, newLineEndingConn(conn))
}

func (s *telnetSessions) drain() {
	s.cancelConns()
	s.wg.Wait()
}
