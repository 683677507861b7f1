package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"
)

// SshListener accepts SSH sessions and hands their channels to the
// connection manager. The transport is deliberately open: identity is
// established by the in-band login prompt, the same flow telnet callers
// go through.
type SshListener struct {
	port    uint16
	cm      *ConnectionManager
	hostKey ssh.Signer
}

func NewSshListener(port uint16, cm *ConnectionManager, hostKey ssh.Signer) *SshListener {
	return &SshListener{
		port:    port,
		cm:      cm,
		hostKey: hostKey,
	}
}

func (l *SshListener) Start(ctx context.Context) error {
	config := &ssh.ServerConfig{
		NoClientAuth: true,
	}
	config.AddHostKey(l.hostKey)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", l.port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", l.port, err)
	}

	slog.InfoContext(ctx, "listening for ssh", "port", l.port)

	connCtx, cancelConns := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	// Close the listener when shutdown is requested so Accept unblocks.
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				cancelConns()
				wg.Wait()
				return nil
			default:
			}
			slog.ErrorContext(ctx, "accepting ssh connection", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			l.serve(connCtx, conn, config)
		}()
	}
}

func (l *SshListener) serve(ctx context.Context, conn net.Conn, config *ssh.ServerConfig) {
	defer conn.Close()

	logger := slog.With(
		"conn", uuid.New().String(),
		"remote", conn.RemoteAddr().String(),
	)

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		logger.ErrorContext(ctx, "ssh handshake", "error", err)
		return
	}
	defer sshConn.Close()

	logger.InfoContext(ctx, "ssh connection established",
		"client", string(sshConn.ClientVersion()))

	// Tear the connection down on shutdown so the channel loop unblocks
	// and serve can return.
	go func() {
		<-ctx.Done()
		sshConn.Close()
	}()

	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			newChan.Reject(ssh.UnknownChannelType, "only sessions are served here")
			continue
		}
		l.serveChannel(ctx, newChan, logger)
	}

	logger.InfoContext(ctx, "ssh connection closed")
}

func (l *SshListener) serveChannel(ctx context.Context, newChan ssh.NewChannel, logger *slog.Logger) {
	ch, requests, err := newChan.Accept()
	if err != nil {
		logger.ErrorContext(ctx, "accepting ssh channel", "error", err)
		return
	}
	defer ch.Close()

	// Hold the session back until the client asks for a shell; clients do
	// not forward input before the shell reply. Everything else, PTY
	// requests included, is refused so the client keeps local echo and
	// line buffering.
	shellReady := make(chan struct{})
	go func() {
		for req := range requests {
			switch req.Type {
			case "shell":
				req.Reply(true, nil)
				close(shellReady)
			default:
				req.Reply(false, nil)
			}
		}
	}()

	select {
	case <-shellReady:
	case <-ctx.Done():
		return
	}

	l.cm.AcceptConnection(ctx, newLineEndingConn(ch))
}
