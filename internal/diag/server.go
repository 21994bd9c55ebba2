package diag

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shiwa/ffb-sync/internal/logger"
)

// DefaultInterval — период push в WebSocket
const DefaultInterval = 200 * time.Millisecond

// Commands — команды от клиента диагностики (ffb.Processor)
type Commands interface {
	SetNextDevice(id string)
	PlayTestSignal()
	Reset()
	RequestAutoMaxForce()
	ClearPeak()
}

// Command — входящее сообщение WebSocket
type Command struct {
	Cmd    string `json:"cmd"`
	Device string `json:"device,omitempty"`
}

// Server — HTTP: /ws (поток Report), /diag (один Report JSON)
type Server struct {
	rec      *Recorder
	cmds     Commands
	interval time.Duration
	upgrader websocket.Upgrader
}

// NewServer создаёт сервер; cmds может быть nil (только чтение)
func NewServer(rec *Recorder, cmds Commands, interval time.Duration) *Server {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Server{
		rec:      rec,
		cmds:     cmds,
		interval: interval,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Handler возвращает маршруты сервера
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/diag", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.rec.Sample()); err != nil {
			logger.Debug("diag: %v", err)
		}
	})
	return mux
}

// ListenAndServe работает до отмены ctx
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	logger.Info("diag: websocket on %s/ws", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			if err := conn.WriteJSON(s.rec.Sample()); err != nil {
				return
			}
			select {
			case <-done:
				return
			case <-t.C:
			}
		}
	}()

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.apply(cmd)
	}
}

func (s *Server) apply(cmd Command) {
	if s.cmds == nil {
		return
	}
	logger.Debug("diag: command %q", cmd.Cmd)
	switch cmd.Cmd {
	case "device":
		s.cmds.SetNextDevice(cmd.Device)
	case "test_signal":
		s.cmds.PlayTestSignal()
	case "reset":
		s.cmds.Reset()
	case "auto_max_force":
		s.cmds.RequestAutoMaxForce()
	case "clear_peak":
		s.cmds.ClearPeak()
	default:
		logger.Warn("diag: unknown command %q", cmd.Cmd)
	}
}
