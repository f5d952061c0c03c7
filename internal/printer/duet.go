// Package printer delivers G-code programs to the printer, either uploaded
// over the Duet HTTP API or streamed line by line over a serial port.
package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/provelslice/internal/logger"
)

// Duet err codes returned by rr_connect and rr_upload.
const (
	CodeOK              = 0
	CodePasswordWrong   = 1
	CodeTooManySessions = 2
)

// DuetError is a non-zero err field in a Duet response.
type DuetError struct {
	Op   string
	Code int
}

func (e *DuetError) Error() string {
	switch {
	case e.Op == "connect" && e.Code == CodePasswordWrong:
		return "duet connect: password incorrect"
	case e.Op == "connect" && e.Code == CodeTooManySessions:
		return "duet connect: too many user sessions"
	case e.Op == "upload":
		return fmt.Sprintf("duet upload failed (err %d)", e.Code)
	}
	return fmt.Sprintf("duet %s: err %d", e.Op, e.Code)
}

// errCode accepts the err field as either a JSON number or string; firmware
// versions differ.
type errCode int

func (c *errCode) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid err code %s", b)
	}
	*c = errCode(n)
	return nil
}

// ConnectResponse is the body of rr_connect.
type ConnectResponse struct {
	Err            errCode `json:"err"`
	SessionTimeout int     `json:"sessionTimeout"`
	BoardType      string  `json:"boardType"`
	SessionKey     int64   `json:"sessionKey"`
	FirmwareVer    string  `json:"fwVersion"`
}

// ModelResponse is the body of rr_model.
type ModelResponse struct {
	Key    string          `json:"key"`
	Flags  string          `json:"flags"`
	Result json.RawMessage `json:"result"`
}

type uploadResponse struct {
	Err errCode `json:"err"`
}

// DuetClient talks to a RepRapFirmware board over HTTP.
type DuetClient struct {
	base     *url.URL
	password string
	http     *http.Client
	log      *zap.Logger
}

// NewDuetClient returns a client for address, which may be a bare host
// ("192.168.1.20") or a URL.
func NewDuetClient(address, password string) (*DuetClient, error) {
	if address == "" {
		return nil, fmt.Errorf("printer address is empty")
	}
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid printer address: %w", err)
	}
	return &DuetClient{
		base:     u,
		password: password,
		http:     &http.Client{Timeout: 60 * time.Second},
		log:      logger.Named("duet"),
	}, nil
}

// Address returns the base URL of the board.
func (c *DuetClient) Address() string {
	return c.base.String()
}

// Connect opens a session.
func (c *DuetClient) Connect(ctx context.Context) (ConnectResponse, error) {
	var resp ConnectResponse
	if err := c.do(ctx, http.MethodGet, "rr_connect", url.Values{"password": {c.password}}, nil, &resp); err != nil {
		return resp, err
	}
	if resp.Err != CodeOK {
		return resp, &DuetError{Op: "connect", Code: int(resp.Err)}
	}
	c.log.Debug("connected", zap.String("board", resp.BoardType), zap.String("fw", resp.FirmwareVer))
	return resp, nil
}

// Model queries the first board description.
func (c *DuetClient) Model(ctx context.Context) (ModelResponse, error) {
	var resp ModelResponse
	err := c.do(ctx, http.MethodGet, "rr_model", url.Values{"key": {"boards[0]"}}, nil, &resp)
	return resp, err
}

// Upload stores program under /gcodes/name. The board verifies the CRC32.
func (c *DuetClient) Upload(ctx context.Context, name string, program []byte) error {
	q := url.Values{
		"name":  {"/gcodes/" + name},
		"crc32": {Checksum(program)},
	}
	var resp uploadResponse
	if err := c.do(ctx, http.MethodPost, "rr_upload", q, program, &resp); err != nil {
		return err
	}
	if resp.Err != CodeOK {
		return &DuetError{Op: "upload", Code: int(resp.Err)}
	}
	c.log.Info("program uploaded", zap.String("name", name), zap.Int("bytes", len(program)))
	return nil
}

// Send connects and uploads program.
func (c *DuetClient) Send(ctx context.Context, name string, program []byte) error {
	if _, err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Upload(ctx, name, program)
}

// Checksum returns the IEEE CRC32 of data as uppercase hex without padding.
func Checksum(data []byte) string {
	return strings.ToUpper(strconv.FormatUint(uint64(crc32.ChecksumIEEE(data)), 16))
}

func (c *DuetClient) do(ctx context.Context, method, path string, q url.Values, body []byte, out any) error {
	u := c.base.JoinPath(path)
	u.RawQuery = q.Encode()

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", path, err)
	}
	return nil
}
