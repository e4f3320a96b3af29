package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/autobrr/go-mediafix/internal/config"
	"github.com/autobrr/go-mediafix/internal/ebml"
	"github.com/autobrr/go-mediafix/internal/ebml/ebmltest"
	"github.com/autobrr/go-mediafix/internal/media"
	"github.com/autobrr/go-mediafix/internal/store"
)

func newTestServer(t *testing.T, mutate func(*config.ServerConfig)) (*Server, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default().Server
	cfg.RecordsDir = filepath.Join(dir, "records")
	cfg.DBPath = filepath.Join(dir, "index.db")
	if mutate != nil {
		mutate(&cfg)
	}

	st, err := store.Open(cfg.DBPath, cfg.RecordsDir)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(cfg, st, media.Options{Logger: logger}), st
}

func post(t *testing.T, h http.Handler, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func recording() []byte {
	return ebmltest.Recording(ebmltest.LiveCluster(0, ebmltest.Blocks(3, 0, 20)...))
}

func brokenChunk() []byte {
	return ebmltest.LiveCluster(0, ebmltest.Blocks(3, 0, 20)...)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "OK", rr.Body.String())
}

func TestRepairFlow(t *testing.T) {
	s, st := newTestServer(t, nil)
	h := s.Handler()

	rr := post(t, h, "/audio/user1", "audio/webm;codecs=opus", recording())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = post(t, h, "/repair/user1", "application/octet-stream", brokenChunk())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "audio/webm", rr.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(rr.Body.Bytes(), ebmltest.EBMLHeader()))

	res, err := ebml.DecodeComplete(rr.Body.Bytes(), media.Options{})
	require.NoError(t, err)
	require.Zero(t, res.Pending)

	records, err := st.List("user1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.False(t, records[1].Repaired)
	require.True(t, records[2].Repaired)
	require.Equal(t, records[2].ID, rr.Header().Get("X-Chunk-Id"))

	sane, err := st.LastSane("user1")
	require.NoError(t, err)
	require.Equal(t, records[2].ID, sane.ID)

	// The next chunk is repaired against the previous repair.
	rr = post(t, h, "/repair/user1", "", brokenChunk())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.True(t, bytes.HasPrefix(rr.Body.Bytes(), ebmltest.EBMLHeader()))
}

func TestRepairWithoutSaneChunk(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rr := post(t, s.Handler(), "/repair/user1", "audio/webm", brokenChunk())
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestRepairStoresChunkWithHeaderAsIs(t *testing.T) {
	s, st := newTestServer(t, nil)
	rr := post(t, s.Handler(), "/repair/user1", "audio/webm", recording())
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, recording(), rr.Body.Bytes())

	sane, err := st.LastSane("user1")
	require.NoError(t, err)
	require.False(t, sane.Repaired)
}

func TestMultipartUpload(t *testing.T) {
	s, st := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "ignored"))
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="audio.ogg"`)
	header.Set("Content-Type", "audio/ogg")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("OggS-not-really"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rr := post(t, s.Handler(), "/debug/user1", mw.FormDataContentType(), body.Bytes())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	records, err := st.List("user1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "ogg", records[0].Format)
	require.True(t, records[0].Debug)
	require.Equal(t, "debug-user1-"+records[0].ID+".ogg", filepath.Base(records[0].Path))
}

func TestMultipartWithoutFile(t *testing.T) {
	s, _ := newTestServer(t, nil)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no file"))
	require.NoError(t, mw.Close())

	rr := post(t, s.Handler(), "/audio/user1", mw.FormDataContentType(), body.Bytes())
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInvalidSession(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rr := post(t, s.Handler(), "/audio/bad%20name", "audio/webm", recording())
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUploadTooLarge(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *config.ServerConfig) {
		cfg.MaxUploadBytes = 8
	})
	rr := post(t, s.Handler(), "/audio/user1", "audio/webm", recording())
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestSessionListing(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sessions/user1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, "[]", rr.Body.String())

	post(t, h, "/audio/user1", "audio/webm", recording())
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sessions/user1", nil))
	var records []store.ChunkRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))
	require.Len(t, records, 1)
	require.Equal(t, "webm", records[0].Format)
}

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	s, _ := newTestServer(t, func(cfg *config.ServerConfig) {
		cfg.Auth = config.AuthConfig{Username: "admin", PasswordHash: string(hash)}
	})
	h := s.Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sessions/user1", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))

	for _, tc := range []struct {
		user, pass string
		want       int
	}{
		{"admin", "wrong", http.StatusUnauthorized},
		{"root", "secret", http.StatusUnauthorized},
		{"admin", "secret", http.StatusOK},
	} {
		req := httptest.NewRequest(http.MethodGet, "/sessions/user1", nil)
		req.SetBasicAuth(tc.user, tc.pass)
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, tc.want, rr.Code, "%s:%s", tc.user, tc.pass)
	}
}

func TestWebSocketChunks(t *testing.T) {
	s, st := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/user1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	send := func(kind int, data []byte) Ack {
		t.Helper()
		require.NoError(t, conn.WriteMessage(kind, data))
		var ack Ack
		require.NoError(t, conn.ReadJSON(&ack))
		return ack
	}

	ack := send(websocket.BinaryMessage, recording())
	require.Equal(t, http.StatusOK, ack.Status, ack.Error)
	require.False(t, ack.Repaired)
	require.Equal(t, uint64(1), ack.Seq)

	ack = send(websocket.BinaryMessage, brokenChunk())
	require.Equal(t, http.StatusOK, ack.Status, ack.Error)
	require.True(t, ack.Repaired)

	ack = send(websocket.TextMessage, []byte("hello"))
	require.Equal(t, http.StatusBadRequest, ack.Status)

	sane, err := st.LastSane("user1")
	require.NoError(t, err)
	require.True(t, sane.Repaired)
}

func TestWebSocketWithoutSaneChunk(t *testing.T) {
	s, _ := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/user1?format=webm"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, brokenChunk()))
	var ack Ack
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, http.StatusConflict, ack.Status)
	require.NotEmpty(t, ack.Error)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{media.MissingStructure(media.FormatMP4, "moov box"), http.StatusUnprocessableEntity},
		{fmt.Errorf("detect: %w", media.ErrUnknownFormat), http.StatusUnsupportedMediaType},
		{fmt.Errorf("decode: %w", ebml.ErrUnrepresentableLength), http.StatusBadRequest},
		{store.ErrNoSane, http.StatusConflict},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestSessionLocksCleanUp(t *testing.T) {
	l := newSessionLocks()
	unlock := l.lock("a")
	require.Len(t, l.locks, 1)
	unlock()
	require.Empty(t, l.locks)
}
