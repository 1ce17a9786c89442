package devserver

import (
	"net/http"
	"sync/atomic"
	"time"

	"cloudslam/pkg/batch"
	"cloudslam/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const DefaultFragmentSize = 4096

// POISocket pushes the current POI snapshot to every client that connects,
// as one text message split into frames of at most fragmentSize bytes.
type POISocket struct {
	snapshots    *Snapshots
	upgrader     websocket.Upgrader
	fragmentSize int
	writeTimeout time.Duration
	served       atomic.Int64
	logger       *zap.SugaredLogger
}

func NewPOISocket(snapshots *Snapshots, fragmentSize int, writeTimeout time.Duration, log *zap.SugaredLogger) *POISocket {
	if fragmentSize <= 0 {
		fragmentSize = DefaultFragmentSize
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &POISocket{
		snapshots: snapshots,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: fragmentSize,
		},
		fragmentSize: fragmentSize,
		writeTimeout: writeTimeout,
		logger:       logger.OrNop(log),
	}
}

// Served returns how many snapshots have been pushed.
func (s *POISocket) Served() int64 {
	return s.served.Load()
}

func (s *POISocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	payload := s.snapshots.POIs()
	if err := s.push(conn, payload); err != nil {
		s.logger.Warnw("failed to push POI snapshot", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	s.served.Add(1)
	s.logger.Infow("POI snapshot pushed",
		"remote_addr", r.RemoteAddr,
		"bytes", len(payload),
		"fragments", batch.Count(len(payload), s.fragmentSize),
	)

	// Drain until the client closes or goes quiet.
	conn.SetReadDeadline(time.Now().Add(s.writeTimeout))
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (s *POISocket) push(conn *websocket.Conn, payload []byte) error {
	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	w, err := conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
