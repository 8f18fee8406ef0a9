// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/dtrig/trig"
)

const base = 0x43c00000

type memRW []byte

func (mem memRW) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(mem)) {
		return 0, io.EOF
	}
	n := copy(p, mem[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (mem memRW) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(mem)) {
		return 0, io.ErrShortWrite
	}
	n := copy(mem[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

var discard = log.New(io.Discard, "", 0)

func newTestServer(t *testing.T) (*Server, *trig.Device, memRW) {
	t.Helper()

	mem := make(memRW, 0x30)
	binary.LittleEndian.PutUint32(mem[0x00:], trig.DeviceID)
	binary.LittleEndian.PutUint32(mem[0x04:], 7)
	binary.LittleEndian.PutUint32(mem[0x08:], 0x5f5e1000)
	binary.LittleEndian.PutUint32(mem[0x10:], 16)
	binary.LittleEndian.PutUint32(mem[0x14:], 4)

	dev, err := trig.Open(trig.NewMemBus(mem, base, uint64(len(mem))), base, trig.WithLogger(discard))
	if err != nil {
		t.Fatalf("could not open device: %+v", err)
	}
	t.Cleanup(func() { _ = dev.Close() })

	return NewServer(dev, discard), dev, mem
}

func TestServer(t *testing.T) {
	srv, _, mem := newTestServer(t)
	h := srv.Handler()

	do := func(method, path, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for _, tc := range []struct {
		method string
		path   string
		body   string
		code   int
		want   string
	}{
		{
			method: "GET", path: "/api/info", code: http.StatusOK,
			want: `{"base":"0x43c00000","id":"0xf7dec7a5","revision":7,"buildtime":1600000000,"symbol_width":16,"symbol_num":4}`,
		},
		{
			method: "GET", path: "/api/status", code: http.StatusOK,
			want: `{"triggered":false,"detail":0,"enabled":false}`,
		},
		{
			method: "POST", path: "/api/enable", code: http.StatusOK,
			body: `{"ut_uh":40,"ut_lh":30,"lt_uh":20,"lt_lh":10,"polarity":"falling"}`,
			want: `{"ut_uh":40,"ut_lh":30,"lt_uh":20,"lt_lh":10,"polarity":"falling"}`,
		},
		{
			method: "GET", path: "/api/status", code: http.StatusOK,
			want: `{"triggered":false,"detail":0,"enabled":true}`,
		},
		{
			method: "GET", path: "/api/config", code: http.StatusOK,
			want: `{"ut_uh":40,"ut_lh":30,"lt_uh":20,"lt_lh":10,"polarity":"falling"}`,
		},
		{
			method: "POST", path: "/api/enable", code: http.StatusBadRequest,
			body: `{"ut_uh":1,"ut_lh":2,"lt_uh":3,"lt_lh":4,"polarity":"rising"}`,
		},
		{
			method: "POST", path: "/api/enable", code: http.StatusBadRequest,
			body: `{"ut_uh":4,"ut_lh":3,"lt_uh":2,"lt_lh":1,"polarity":"sideways"}`,
		},
		{
			method: "POST", path: "/api/enable", code: http.StatusBadRequest,
			body: `{"ut_uh":4,"threshold":3}`,
		},
		{
			method: "POST", path: "/api/disable", code: http.StatusOK,
		},
		{
			method: "GET", path: "/api/disable", code: http.StatusMethodNotAllowed,
		},
		{
			method: "GET", path: "/api/nope", code: http.StatusNotFound,
		},
	} {
		rec := do(tc.method, tc.path, tc.body)
		if rec.Code != tc.code {
			t.Fatalf("%s %s: invalid status code: got=%d, want=%d (%s)",
				tc.method, tc.path, rec.Code, tc.code, rec.Body.String(),
			)
		}
		if tc.want == "" {
			continue
		}
		if got := strings.TrimSpace(rec.Body.String()); got != tc.want {
			t.Fatalf("%s %s: invalid reply:\ngot= %s\nwant=%s", tc.method, tc.path, got, tc.want)
		}
	}

	if got, want := binary.LittleEndian.Uint32(mem[0x18:]), uint32(0x4); got != want {
		t.Fatalf("invalid ctrl register: got=0x%x, want=0x%x", got, want)
	}
	for i, want := range []uint32{40, 30, 20, 10} {
		if got := binary.LittleEndian.Uint32(mem[0x20+4*i:]); got != want {
			t.Fatalf("invalid threshold %d: got=%d, want=%d", i, got, want)
		}
	}
}

func TestServerClosed(t *testing.T) {
	srv, dev, _ := newTestServer(t)
	_ = dev.Close()

	for _, tc := range []struct {
		method string
		path   string
	}{
		{"GET", "/api/info"},
		{"GET", "/api/status"},
		{"GET", "/api/registers"},
		{"POST", "/api/disable"},
	} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if got, want := rec.Code, http.StatusServiceUnavailable; got != want {
			t.Fatalf("%s %s: invalid status code: got=%d, want=%d", tc.method, tc.path, got, want)
		}
	}
}

func TestClient(t *testing.T) {
	srv, dev, _ := newTestServer(t)
	hsrv := httptest.NewServer(srv.Handler())
	defer hsrv.Close()

	cli := NewClient(hsrv.URL)

	info, err := cli.Info()
	if err != nil {
		t.Fatalf("could not retrieve info: %+v", err)
	}
	want, err := dev.Info()
	if err != nil {
		t.Fatalf("could not read info: %+v", err)
	}
	if info != want {
		t.Fatalf("invalid info:\ngot= %+v\nwant=%+v", info, want)
	}

	th := trig.Thresholds{UpperHigh: 400, UpperLow: 300, LowerHigh: 200, LowerLow: 100}
	err = cli.ConfigureAndEnable(th, trig.PolarityBoth)
	if err != nil {
		t.Fatalf("could not enable trigger: %+v", err)
	}
	if !dev.Enabled() || dev.Thresholds() != th {
		t.Fatalf("device not configured: enabled=%v, th=%v", dev.Enabled(), dev.Thresholds())
	}

	gth, gpol, err := cli.Config()
	if err != nil {
		t.Fatalf("could not retrieve config: %+v", err)
	}
	if gth != th || gpol != trig.PolarityBoth {
		t.Fatalf("invalid config: got=(%v, %v), want=(%v, %v)", gth, gpol, th, trig.PolarityBoth)
	}

	st, err := cli.Status()
	if err != nil {
		t.Fatalf("could not retrieve status: %+v", err)
	}
	if !st.Enabled {
		t.Fatalf("invalid status: %+v", st)
	}

	regs, err := cli.Registers()
	if err != nil {
		t.Fatalf("could not retrieve registers: %+v", err)
	}
	wregs, err := dev.Registers()
	if err != nil {
		t.Fatalf("could not read registers: %+v", err)
	}
	if !reflect.DeepEqual(regs, wregs) {
		t.Fatalf("invalid registers:\ngot= %+v\nwant=%+v", regs, wregs)
	}

	out := new(bytes.Buffer)
	err = trig.WriteRegisters(out, info.Base, regs)
	if err != nil {
		t.Fatalf("could not dump registers: %+v", err)
	}
	if !strings.Contains(out.String(), "ctrl          [0x18]= 0x00000007\n") {
		t.Fatalf("invalid dump:\n%s", out.String())
	}

	err = cli.ConfigureAndEnable(trig.Thresholds{UpperHigh: 1, UpperLow: 2, LowerHigh: 3, LowerLow: 4}, trig.PolarityBoth)
	if err == nil || !strings.Contains(err.Error(), "400 Bad Request") {
		t.Fatalf("invalid error: %+v", err)
	}

	err = cli.Disable()
	if err != nil {
		t.Fatalf("could not disable trigger: %+v", err)
	}
	if dev.Enabled() {
		t.Fatalf("trigger still enabled")
	}
}

func TestClientNoServer(t *testing.T) {
	cli := NewClient("127.0.0.1:1")
	if _, err := cli.Info(); err == nil {
		t.Fatalf("expected an error")
	}
	if err := cli.Disable(); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestListenAndServe(t *testing.T) {
	srv, _, _ := newTestServer(t)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("could not find a free port: %+v", err)
	}
	addr := lis.Addr().String()
	_ = lis.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, addr)
	}()

	cli := NewClient(addr)
	var ok bool
	for i := 0; i < 50; i++ {
		if _, err := cli.Status(); err == nil {
			ok = true
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !ok {
		t.Fatalf("server did not start")
	}

	cancel()
	err = <-done
	if err != nil {
		t.Fatalf("could not shutdown server: %+v", err)
	}
}
