package sink

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/rowboat-io/rowboat/internal/domain/model"
)

const defaultFTPTimeout = 30 * time.Second

// FTPConfig describes the file-transfer sink connection.
type FTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Timeout  time.Duration
}

// Validate checks the configuration once at startup so delivery never reads
// the environment ad hoc.
func (c *FTPConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("ftp sink: host is required")
	}
	if strings.TrimSpace(c.User) == "" {
		return errors.New("ftp sink: user is required")
	}
	return nil
}

// Addr returns the dial address with the default control port applied.
func (c *FTPConfig) Addr() string {
	port := c.Port
	if port <= 0 {
		port = 21
	}
	return net.JoinHostPort(strings.TrimSpace(c.Host), strconv.Itoa(port))
}

// FTPSink uploads payloads as a single named file over FTP. The connection is
// scoped to one delivery: dialed, used, and closed on every exit path.
type FTPSink struct {
	cfg    FTPConfig
	logger *slog.Logger
}

var _ Sink = (*FTPSink)(nil)

// NewFTPSink builds an FTP sink from validated configuration.
func NewFTPSink(cfg FTPConfig, logger *slog.Logger) (*FTPSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultFTPTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FTPSink{cfg: cfg, logger: logger}, nil
}

// Kind implements Sink.
func (s *FTPSink) Kind() model.SinkType { return model.SinkTypeFTP }

// Deliver stores the payload under its filename. Any failure during connect,
// login, store, or close becomes a sink-error outcome; nothing is retried.
func (s *FTPSink) Deliver(ctx context.Context, p Payload) Outcome {
	addr := s.cfg.Addr()

	conn, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(s.cfg.Timeout),
	)
	if err != nil {
		return Failure("ftp connect "+addr, err)
	}
	defer func() {
		if quitErr := conn.Quit(); quitErr != nil {
			s.logger.WarnContext(ctx, "ftp quit failed", "addr", addr, "error", quitErr)
		}
	}()

	if err = conn.Login(s.cfg.User, s.cfg.Password); err != nil {
		return Failure("ftp login", err)
	}

	if err = conn.Stor(p.Filename, bytes.NewReader(p.Data)); err != nil {
		return Failure("ftp store "+p.Filename, err)
	}

	// The remote size is queried for logging only; some servers do not
	// support SIZE, so a failure here does not fail the delivery.
	if size, sizeErr := conn.FileSize(p.Filename); sizeErr == nil {
		s.logger.InfoContext(ctx, "ftp upload complete",
			"addr", addr,
			"filename", p.Filename,
			"bytes_sent", len(p.Data),
			"remote_size", size)
	} else {
		s.logger.InfoContext(ctx, "ftp upload complete",
			"addr", addr,
			"filename", p.Filename,
			"bytes_sent", len(p.Data))
	}

	return Success()
}
