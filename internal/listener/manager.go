package listener

import (
	"context"
	"io"
	"log/slog"

	"github.com/pixil98/go-realm/internal/session"
)

// ConnectionManager hands accepted transport connections to the session
// layer. Listeners only deal in io.ReadWriter; everything game-aware
// happens behind RunSession.
type ConnectionManager struct {
	sessions *session.Manager
}

func NewConnectionManager(sessions *session.Manager) *ConnectionManager {
	return &ConnectionManager{
		sessions: sessions,
	}
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn io.ReadWriter) {
	if err := m.sessions.RunSession(ctx, conn); err != nil {
		slog.WarnContext(ctx, "caller session", "error", err)
	}
}
