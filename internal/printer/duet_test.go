package printer

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	assert.Equal(t, "CBF43926", Checksum([]byte("123456789")))
	assert.Equal(t, "0", Checksum(nil))

	data := []byte("G1 X1\n")
	assert.Equal(t, strings.ToUpper(fmt.Sprintf("%x", crc32.ChecksumIEEE(data))), Checksum(data))
}

func TestNewDuetClient(t *testing.T) {
	c, err := NewDuetClient("192.168.1.20", "")
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.20", c.Address())

	c, err = NewDuetClient("https://printer.local", "")
	require.NoError(t, err)
	assert.Equal(t, "https://printer.local", c.Address())

	_, err = NewDuetClient("", "")
	assert.Error(t, err)
}

func TestConnectErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"ok", `{"err":0,"sessionTimeout":8000,"boardType":"duetwifi"}`, 0},
		{"string ok", `{"err":"0","boardType":"duetwifi"}`, 0},
		{"password", `{"err":1}`, CodePasswordWrong},
		{"sessions", `{"err":"2"}`, CodeTooManySessions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/rr_connect", r.URL.Path)
				assert.Equal(t, "secret", r.URL.Query().Get("password"))
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c, err := NewDuetClient(srv.URL, "secret")
			require.NoError(t, err)

			resp, err := c.Connect(context.Background())
			if tt.code == 0 {
				require.NoError(t, err)
				assert.Equal(t, "duetwifi", resp.BoardType)
				return
			}
			var de *DuetError
			require.True(t, errors.As(err, &de), "got %v", err)
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rr_model", r.URL.Path)
		assert.Equal(t, "boards[0]", r.URL.Query().Get("key"))
		io.WriteString(w, `{"key":"boards[0]","flags":"","result":{"name":"Duet 3"}}`)
	}))
	defer srv.Close()

	c, err := NewDuetClient(srv.URL, "")
	require.NoError(t, err)

	m, err := c.Model(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "boards[0]", m.Key)
	assert.JSONEq(t, `{"name":"Duet 3"}`, string(m.Result))
}

func TestSend(t *testing.T) {
	program := []byte("G28\nG1 X1 Y2 Z3 E0.5 F1000\n")
	var calls []string
	var uploaded []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		switch r.URL.Path {
		case "/rr_connect":
			io.WriteString(w, `{"err":0}`)
		case "/rr_upload":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/gcodes/socket.gcode", r.URL.Query().Get("name"))
			assert.Equal(t, Checksum(program), r.URL.Query().Get("crc32"))
			assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
			uploaded, _ = io.ReadAll(r.Body)
			io.WriteString(w, `{"err":0}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewDuetClient(srv.URL, "")
	require.NoError(t, err)
	require.NoError(t, c.Send(context.Background(), "socket.gcode", program))

	assert.Equal(t, []string{"/rr_connect", "/rr_upload"}, calls)
	assert.Equal(t, program, uploaded)
}

func TestUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"err":1}`)
	}))
	defer srv.Close()

	c, err := NewDuetClient(srv.URL, "")
	require.NoError(t, err)

	err = c.Upload(context.Background(), "x.gcode", []byte("G28\n"))
	var de *DuetError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "upload", de.Op)
}

func TestHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewDuetClient(srv.URL, "")
	require.NoError(t, err)

	_, err = c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
