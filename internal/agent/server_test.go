package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/provelslice/internal/gcode"
	"github.com/Faultbox/provelslice/internal/mesh"
	"github.com/Faultbox/provelslice/internal/pipeline"
	"github.com/Faultbox/provelslice/internal/store"
	"github.com/Faultbox/provelslice/pkg/formats"
	"github.com/Faultbox/provelslice/pkg/math"
)

type memSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memSettings) GetSetting(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[name]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (m *memSettings) SetSetting(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = value
	return nil
}

type fakeUploader struct {
	mu      sync.Mutex
	address string
	name    string
	program []byte
	err     error
}

func (f *fakeUploader) Send(_ context.Context, name string, program []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name = name
	f.program = program
	return f.err
}

func cylinderSTL(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	m := mesh.Cylinder(39, 12, 179, math.AxisY)
	require.NoError(t, formats.WriteSTL(&buf, "cylinder", m.Positions(), false))
	return buf.Bytes()
}

func testParams() pipeline.Params {
	p := pipeline.DefaultParams()
	p.Slice.Segments = 60
	return p
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	if opts.Params.Slice.LayerHeight == 0 {
		opts.Params = testParams()
	}
	srv := httptest.NewServer(NewServer(opts))
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func waitForJob(t *testing.T, base, id string) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/jobs/" + id)
		require.NoError(t, err)
		var snap JobSnapshot
		decode(t, resp, &snap)
		if snap.Status == StatusDone || snap.Status == StatusFailed {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return JobSnapshot{}
}

func startSlice(t *testing.T, base string, body []byte, query string) string {
	t.Helper()
	resp, err := http.Post(base+"/slice"+query, "application/octet-stream", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var out map[string]any
	decode(t, resp, &out)
	id, _ := out["job_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "/jobs/"+id, out["poll_url"])
	return id
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	var out map[string]string
	decode(t, resp, &out)
	assert.Equal(t, "ok", out["status"])
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, Options{})
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/printer_ip", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestPrinterIP(t *testing.T) {
	settings := &memSettings{values: map[string]string{store.SettingIPAddress: "10.0.0.2"}}
	srv := newTestServer(t, Options{Settings: settings})

	resp, err := http.Get(srv.URL + "/printer_ip")
	require.NoError(t, err)
	var out map[string]string
	decode(t, resp, &out)
	assert.Equal(t, "10.0.0.2", out["ip"])

	resp, err = http.Post(srv.URL+"/printer_ip", "application/json", strings.NewReader(`{"ip":" 192.168.1.30 "}`))
	require.NoError(t, err)
	decode(t, resp, &out)
	assert.Equal(t, "192.168.1.30", out["ip"])
	assert.Equal(t, "192.168.1.30", settings.values[store.SettingIPAddress])

	resp, err = http.Post(srv.URL+"/printer_ip", "application/json", strings.NewReader(`{"ip":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/printer_ip", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSliceJob(t *testing.T) {
	up := &fakeUploader{}
	srv := newTestServer(t, Options{
		PrinterIP: "10.1.1.1",
		NewUploader: func(address string) (Uploader, error) {
			up.address = address
			return up, nil
		},
	})

	id := startSlice(t, srv.URL, cylinderSTL(t), "?name=left%20socket.stl")
	snap := waitForJob(t, srv.URL, id)
	require.Equal(t, StatusDone, snap.Status, snap.Error)
	assert.Equal(t, "left socket", snap.Name)
	assert.Equal(t, 1.0, snap.Progress)
	assert.Equal(t, 12, snap.Levels)
	assert.Equal(t, 12*59, snap.Points)
	assert.NotEmpty(t, snap.PrintTime)

	resp, err := http.Get(srv.URL + "/jobs/" + id + "/gcode")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "left socket.gcode")
	assert.Equal(t, 12, strings.Count(string(body), gcode.LevelMarker))

	resp, err = http.Get(srv.URL + "/jobs/" + id + "/feedrate")
	require.NoError(t, err)
	html, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(html), "left socket feedrate")

	resp, err = http.Get(srv.URL + "/jobs/" + id + "/profile.png")
	require.NoError(t, err)
	png, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	resp, err = http.Post(srv.URL+"/jobs/"+id+"/upload", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "10.1.1.1", up.address)
	assert.Equal(t, "left socket.gcode", up.name)
	assert.Equal(t, body, up.program)

	resp, err = http.Get(srv.URL + "/jobs")
	require.NoError(t, err)
	var list struct {
		Jobs []JobSnapshot `json:"jobs"`
	}
	decode(t, resp, &list)
	require.Len(t, list.Jobs, 1)
	assert.Equal(t, id, list.Jobs[0].ID)
}

func TestUploadErrors(t *testing.T) {
	up := &fakeUploader{err: errors.New("board offline")}
	srv := newTestServer(t, Options{
		NewUploader: func(string) (Uploader, error) { return up, nil },
	})

	id := startSlice(t, srv.URL, cylinderSTL(t), "")
	require.Equal(t, StatusDone, waitForJob(t, srv.URL, id).Status)

	resp, err := http.Post(srv.URL+"/jobs/"+id+"/upload", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/printer_ip", "application/json", strings.NewReader(`{"ip":"10.0.0.9"}`))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/jobs/"+id+"/upload", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestSliceRejectsBadMesh(t *testing.T) {
	srv := newTestServer(t, Options{MaxUploadBytes: 1024})

	resp, err := http.Post(srv.URL+"/slice", "application/octet-stream", strings.NewReader("not an stl"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/slice", "application/octet-stream", bytes.NewReader(make([]byte, 4096)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestSliceJobFails(t *testing.T) {
	// All triangles degenerate: the spatial index is empty.
	var buf bytes.Buffer
	require.NoError(t, formats.WriteSTL(&buf, "flat", []float32{0, 0, 0, 1, 1, 1, 2, 2, 2}, false))

	srv := newTestServer(t, Options{})
	id := startSlice(t, srv.URL, buf.Bytes(), "")
	snap := waitForJob(t, srv.URL, id)
	assert.Equal(t, StatusFailed, snap.Status)
	assert.NotEmpty(t, snap.Error)

	resp, err := http.Get(srv.URL + "/jobs/" + id + "/gcode")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUnknownJob(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, path := range []string{"/jobs/nope", "/jobs/nope/gcode"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "socket", sanitizeName("../../socket.stl"))
	assert.Equal(t, "left", sanitizeName(`C:\scans\left.STL`))
	assert.Equal(t, "", sanitizeName(""))
}

func TestJobTableEviction(t *testing.T) {
	jt := newJobTable(2)
	a, b, c := newJob("a", "a"), newJob("b", "b"), newJob("c", "c")
	a.createdAt = time.Unix(1, 0)
	b.createdAt = time.Unix(2, 0)
	c.createdAt = time.Unix(3, 0)
	a.fail(errors.New("x"))
	jt.add(a)
	jt.add(b)
	jt.add(c)

	assert.Nil(t, jt.get("a"))
	assert.NotNil(t, jt.get("b"), "running jobs are never evicted")
	assert.NotNil(t, jt.get("c"))
}

func TestListenAndServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- ListenAndServe(ctx, "127.0.0.1:0", 2, http.NotFoundHandler())
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
