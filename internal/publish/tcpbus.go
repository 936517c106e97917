package publish

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
)

// tcpBus broadcasts length-prefixed JSON records to every connected
// subscriber, the default Transport of spec.md §4.7. It listens on a TCP
// port and accepts any number of readers (analysis tools, replay
// consumers); a subscriber that stops reading is dropped rather than
// allowed to stall the broadcast.
type tcpBus struct {
	logger   *zap.Logger
	listener net.Listener

	mu      sync.Mutex
	clients map[net.Conn]chan []byte

	wg   sync.WaitGroup
	done chan struct{}
}

// NewTCPBus starts listening on addr (e.g. ":5555") and begins accepting
// subscriber connections in the background.
func NewTCPBus(addr string, logger *zap.Logger) (Transport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("publish: tcp bus listen: %w", err)
	}
	b := &tcpBus{
		logger:   logger,
		listener: ln,
		clients:  make(map[net.Conn]chan []byte),
		done:     make(chan struct{}),
	}
	b.wg.Add(1)
	go b.acceptLoop()
	return b, nil
}

func (b *tcpBus) acceptLoop() {
	defer b.wg.Done()
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			select {
			case <-b.done:
				return
			default:
				b.logger.Warn("tcp bus accept failed", zap.Error(err))
				return
			}
		}
		b.addClient(conn)
	}
}

func (b *tcpBus) addClient(conn net.Conn) {
	ch := make(chan []byte, 256)
	b.mu.Lock()
	b.clients[conn] = ch
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.removeClient(conn)
		for rec := range ch {
			var lenBuf [4]byte
			binary.BigEndian.PutUint32(lenBuf[:], uint32(len(rec)))
			if _, err := conn.Write(lenBuf[:]); err != nil {
				return
			}
			if _, err := conn.Write(rec); err != nil {
				return
			}
		}
	}()
}

func (b *tcpBus) removeClient(conn net.Conn) {
	b.mu.Lock()
	delete(b.clients, conn)
	b.mu.Unlock()
	conn.Close()
}

// Send fans rec out to every connected subscriber. A subscriber whose
// per-connection queue is full is disconnected rather than blocking the
// broadcast for every other subscriber.
func (b *tcpBus) Send(rec []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn, ch := range b.clients {
		select {
		case ch <- rec:
		default:
			b.logger.Warn("tcp bus subscriber backlog full, disconnecting")
			close(ch)
			delete(b.clients, conn)
			conn.Close()
		}
	}
	return nil
}

func (b *tcpBus) Close() error {
	close(b.done)
	err := b.listener.Close()

	b.mu.Lock()
	for conn, ch := range b.clients {
		close(ch)
		conn.Close()
		delete(b.clients, conn)
	}
	b.mu.Unlock()

	b.wg.Wait()
	return err
}
