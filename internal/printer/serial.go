package printer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/Faultbox/provelslice/internal/logger"
)

// ErrTimeout is returned when the printer does not acknowledge a line in time.
var ErrTimeout = errors.New("timed out waiting for ok")

// Port is the minimal serial port surface the streamer needs.
type Port interface {
	io.ReadWriter
	io.Closer
}

// timeoutPort is implemented by real serial ports.
type timeoutPort interface {
	SetReadTimeout(t time.Duration) error
}

// PrinterError is an "Error:" or "!!" reply to a line.
type PrinterError struct {
	Line  int
	Reply string
}

func (e *PrinterError) Error() string {
	return fmt.Sprintf("line %d: printer replied %q", e.Line, e.Reply)
}

// Streamer sends G-code one line at a time and waits for "ok" after each.
type Streamer struct {
	port    Port
	pending []byte
	// Timeout bounds the wait for each acknowledgement.
	Timeout time.Duration
	log     *zap.Logger
}

// NewStreamer wraps an open port.
func NewStreamer(p Port) *Streamer {
	return &Streamer{
		port:    p,
		Timeout: 30 * time.Second,
		log:     logger.Named("serial"),
	}
}

// OpenSerial opens path at baud, 8N1.
func OpenSerial(path string, baud int) (*Streamer, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return NewStreamer(port), nil
}

// Close closes the port.
func (s *Streamer) Close() error {
	return s.port.Close()
}

// Stream sends every command line of program and returns the number of lines
// acknowledged. progress, if set, is called after each acknowledgement.
func (s *Streamer) Stream(ctx context.Context, program io.Reader, progress func(sent int)) (int, error) {
	if tp, ok := s.port.(timeoutPort); ok {
		if err := tp.SetReadTimeout(100 * time.Millisecond); err != nil {
			return 0, err
		}
	}

	sc := bufio.NewScanner(program)
	sent, lineNo := 0, 0
	for sc.Scan() {
		lineNo++
		cmd := commandText(sc.Text())
		if cmd == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.send(ctx, lineNo, cmd); err != nil {
			return sent, err
		}
		sent++
		if progress != nil {
			progress(sent)
		}
	}
	if err := sc.Err(); err != nil {
		return sent, err
	}
	s.log.Info("program streamed", zap.Int("lines", sent))
	return sent, nil
}

// commandText strips the comment and surrounding space from a line.
func commandText(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

func (s *Streamer) send(ctx context.Context, lineNo int, cmd string) error {
	if _, err := io.WriteString(s.port, cmd+"\n"); err != nil {
		return fmt.Errorf("line %d: %w", lineNo, err)
	}
	deadline := time.Now().Add(s.Timeout)
	for {
		reply, err := s.readLine(ctx, deadline)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		switch {
		case strings.HasPrefix(reply, "ok"):
			return nil
		case strings.HasPrefix(reply, "Error"), strings.HasPrefix(reply, "!!"):
			return &PrinterError{Line: lineNo, Reply: reply}
		case reply != "":
			s.log.Debug("printer", zap.String("reply", reply))
		}
	}
}

// readLine returns the next reply line. A read of zero bytes is a port
// timeout and retries until deadline.
func (s *Streamer) readLine(ctx context.Context, deadline time.Time) (string, error) {
	buf := make([]byte, 256)
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := strings.TrimSpace(string(s.pending[:i]))
			s.pending = s.pending[i+1:]
			return line, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if time.Now().After(deadline) {
			return "", ErrTimeout
		}
		n, err := s.port.Read(buf)
		s.pending = append(s.pending, buf[:n]...)
		if err != nil {
			return "", err
		}
		if n == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}
