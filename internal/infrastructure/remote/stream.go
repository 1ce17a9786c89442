package remote

import (
	"context"
	"errors"
	"io"
	"time"

	"cloudslam/internal/core/domain"

	"github.com/gorilla/websocket"
)

// Chunk is one piece of a streamed message. Data is only valid until the
// next ReadChunk call.
type Chunk struct {
	Data  []byte
	Final bool
}

// ChunkReader yields the chunks of one message in order.
type ChunkReader interface {
	ReadChunk(ctx context.Context) (Chunk, error)
}

// Accumulate reads chunks until one is marked final and returns their
// concatenation. maxBytes bounds the assembled message; zero means no bound.
func Accumulate(ctx context.Context, src ChunkReader, maxBytes int64) ([]byte, int, error) {
	var message []byte
	chunks := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, chunks, err
		}

		chunk, err := src.ReadChunk(ctx)
		if err != nil {
			return nil, chunks, err
		}
		chunks++

		if maxBytes > 0 && int64(len(message)+len(chunk.Data)) > maxBytes {
			return nil, chunks, domain.ErrMessageTooLarge
		}
		message = append(message, chunk.Data...)

		if chunk.Final {
			return message, chunks, nil
		}
	}
}

// wsChunkReader reads a WebSocket message frame by frame. A read that ends
// the message reports Final.
type wsChunkReader struct {
	conn        *websocket.Conn
	readTimeout time.Duration
	current     io.Reader
	buf         []byte
}

func newWSChunkReader(conn *websocket.Conn, readTimeout time.Duration, bufSize int) *wsChunkReader {
	if bufSize <= 0 {
		bufSize = 4096
	}
	return &wsChunkReader{
		conn:        conn,
		readTimeout: readTimeout,
		buf:         make([]byte, bufSize),
	}
}

func (r *wsChunkReader) ReadChunk(ctx context.Context) (Chunk, error) {
	if r.readTimeout > 0 {
		if err := r.conn.SetReadDeadline(time.Now().Add(r.readTimeout)); err != nil {
			return Chunk{}, err
		}
	}

	for r.current == nil {
		messageType, reader, err := r.conn.NextReader()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return Chunk{}, domain.ErrStreamClosed
			}
			return Chunk{}, err
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		r.current = reader
	}

	n, err := r.current.Read(r.buf)
	switch {
	case err == io.EOF:
		r.current = nil
		return Chunk{Data: r.buf[:n], Final: true}, nil
	case err != nil:
		if errors.Is(err, websocket.ErrReadLimit) {
			return Chunk{}, domain.ErrMessageTooLarge
		}
		return Chunk{}, err
	default:
		return Chunk{Data: r.buf[:n]}, nil
	}
}
