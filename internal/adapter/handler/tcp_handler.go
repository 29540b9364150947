package handler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rl1809/bloodbank/internal/core/report"
	"github.com/rl1809/bloodbank/internal/core/service"
)

const (
	acceptRetryDelay = 50 * time.Millisecond

	// Longest accepted client line, newline included.
	maxLineLength = 64 * 1024
)

// TCPServer accepts protocol clients and runs one session per connection.
// Sessions share nothing but the inventory service.
type TCPServer struct {
	addr      string
	inventory *service.InventoryService

	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	err      error

	mu       sync.Mutex
	sessions map[int]net.Conn
	next     int
	wg       sync.WaitGroup
}

func NewTCPServer(addr string, inventory *service.InventoryService) *TCPServer {
	ctx, cancel := context.WithCancel(context.Background())
	return &TCPServer{
		addr:      addr,
		inventory: inventory,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		sessions:  make(map[int]net.Conn),
	}
}

// Start binds the listener and begins accepting in the background. The
// inventory must already be bootstrapped.
func (s *TCPServer) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	log.Info().Str("addr", listener.Addr().String()).Msg("protocol server listening")

	go s.accept()
	return nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *TCPServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop closes the listener and every open session, then waits for the
// session loops to return.
func (s *TCPServer) Stop() error {
	s.cancel()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	s.mu.Lock()
	for _, conn := range s.sessions {
		conn.Close()
	}
	s.mu.Unlock()

	if s.listener != nil {
		<-s.done
	}
	s.wg.Wait()

	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Wait blocks until the accept loop ends and returns the failure that ended
// it, or nil after Stop.
func (s *TCPServer) Wait() error {
	<-s.done
	return s.err
}

func (s *TCPServer) accept() {
	defer close(s.done)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				log.Warn().Err(err).Msg("accept error, retrying")
				time.Sleep(acceptRetryDelay)
				continue
			}
			log.Error().Err(err).Msg("accept failed, closing listener")
			s.err = fmt.Errorf("accept: %w", err)
			s.listener.Close()
			return
		}

		id, ok := s.track(conn)
		if !ok {
			conn.Close()
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(id)
			newSession(id, conn, s.inventory).run(s.ctx)
		}()
	}
}

// track assigns the next session ordinal. Ordinals are never reused.
func (s *TCPServer) track(conn net.Conn) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return 0, false
	}
	id := s.next
	s.next++
	s.sessions[id] = conn
	return id, true
}

func (s *TCPServer) untrack(id int) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// session owns one client connection from greeting to close.
type session struct {
	id        int
	conn      net.Conn
	inventory *service.InventoryService
	out       *bufio.Writer
}

func newSession(id int, conn net.Conn, inventory *service.InventoryService) *session {
	return &session{
		id:        id,
		conn:      conn,
		inventory: inventory,
		out:       bufio.NewWriter(conn),
	}
}

func (s *session) run(ctx context.Context) {
	logger := log.With().Int("client", s.id).Str("remote", s.conn.RemoteAddr().String()).Logger()
	logger.Info().Msg("client connected")

	defer func() {
		s.conn.Close()
		logger.Info().Msg("client disconnected")
	}()

	if err := s.respond(greeting(s.id)); err != nil {
		logger.Warn().Err(err).Msg("failed to send greeting")
		return
	}

	in := bufio.NewReaderSize(s.conn, maxLineLength)
	for {
		line, err := readLine(in)
		if errors.Is(err, bufio.ErrBufferFull) {
			logger.Warn().Int("limit", maxLineLength).Msg("line too long, discarded")
			if err := s.respond(validationMessage(ErrLineTooLong)); err != nil {
				logger.Warn().Err(err).Msg("failed to write response")
				return
			}
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Warn().Err(err).Msg("error reading from client")
			}
			return
		}

		cmd := ParseCommand(line)
		if cmd.Kind == CommandDisconnect {
			return
		}

		if err := s.respond(s.execute(ctx, cmd)); err != nil {
			logger.Warn().Err(err).Msg("failed to write response")
			return
		}
	}
}

// readLine returns the next line without its "\n" or "\r\n" ending. A line
// longer than the reader's buffer is consumed through its newline and
// reported as bufio.ErrBufferFull. A final unterminated line is returned
// before io.EOF.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = r.ReadSlice('\n')
		}
		if err != nil {
			return "", err
		}
		return "", bufio.ErrBufferFull
	}
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}

	text := strings.TrimSuffix(string(line), "\n")
	return strings.TrimSuffix(text, "\r"), nil
}

func (s *session) execute(ctx context.Context, cmd Command) string {
	switch cmd.Kind {
	case CommandHelp:
		return helpText
	case CommandListAll:
		inv, err := s.inventory.Snapshot(ctx)
		if err != nil {
			log.Error().Int("client", s.id).Err(err).Msg("failed to read inventory")
			return msgQueryFailed
		}
		return report.All(inv)
	case CommandListTypes:
		return report.Prevalence()
	case CommandListStock:
		inv, err := s.inventory.Snapshot(ctx)
		if err != nil {
			log.Error().Int("client", s.id).Err(err).Msg("failed to read inventory")
			return msgQueryFailed
		}
		return report.Stock(inv)
	case CommandListCompatibility:
		return report.Compatibility()
	case CommandAdjust:
		return s.adjust(ctx, cmd)
	case CommandUnrecognized:
		return validationMessage(cmd.Err)
	default:
		return msgUnknownCommand
	}
}

func (s *session) adjust(ctx context.Context, cmd Command) string {
	adj, err := s.inventory.Adjust(ctx, s.id, cmd.Direction, cmd.Type, cmd.Amount)
	switch {
	case err == nil:
		log.Info().
			Int("client", s.id).
			Str("type", adj.Type.String()).
			Str("direction", string(adj.Direction)).
			Float64("amount", adj.Amount).
			Float64("balance", adj.Balance).
			Msg("stock adjusted")
		return adjustedMessage(cmd.Direction, cmd.Type, cmd.Amount)
	case errors.Is(err, service.ErrInsufficientStock):
		log.Info().Int("client", s.id).Str("type", cmd.Type.String()).Float64("amount", cmd.Amount).Msg("removal exceeds stock")
		return msgInsufficientStock
	case errors.Is(err, service.ErrInvalidAmount):
		return msgNonPositiveValue
	default:
		log.Error().Int("client", s.id).Err(err).Msg("failed to adjust stock")
		return msgAdjustFailed
	}
}

// respond writes text followed by one blank line, which ends every response.
func (s *session) respond(text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := io.WriteString(s.out, text+"\n"); err != nil {
		return err
	}
	return s.out.Flush()
}
