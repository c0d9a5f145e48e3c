package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/lms/internal/uploader"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestConfig_EnvAndFlags(t *testing.T) {
	t.Setenv("LMS_UPLOAD_API_URL", "http://lms.test")
	t.Setenv("LMS_UPLOAD_TIMEOUT", "5s")

	v := newViper()
	root := newRootCommand(v)

	if got := v.GetString(keyAPIURL); got != "http://lms.test" {
		t.Errorf("api-url = %q, ожидается значение из окружения", got)
	}
	if got := v.GetDuration(keyTimeout); got != 5*time.Second {
		t.Errorf("timeout = %v, ожидается 5s", got)
	}

	if err := root.PersistentFlags().Parse([]string{"--api-url", "http://flag.test"}); err != nil {
		t.Fatalf("Parse() вернул ошибку: %v", err)
	}
	if got := v.GetString(keyAPIURL); got != "http://flag.test" {
		t.Errorf("api-url = %q, флаг должен иметь приоритет", got)
	}
}

func TestNewClient_RequiresToken(t *testing.T) {
	v := newViper()
	newRootCommand(v)

	if _, err := newClient(v, discardLogger()); err == nil {
		t.Error("newClient() без токена должен вернуть ошибку")
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	v := newViper()
	newRootCommand(v)
	v.Set(keyLogLevel, "verbose")

	if _, err := newLogger(v); err == nil {
		t.Error("newLogger() с неизвестным уровнем должен вернуть ошибку")
	}
}

func TestScreen_PlainOutputPrintsPhaseChanges(t *testing.T) {
	var out bytes.Buffer
	s := newScreen(&out, false, 40)

	s.draw(uploader.Snapshot{Phase: uploader.PhaseUploading, FileName: "a.png", Progress: 10})
	s.draw(uploader.Snapshot{Phase: uploader.PhaseUploading, FileName: "a.png", Progress: 50})
	s.draw(uploader.Snapshot{Phase: uploader.PhaseSuccess, Key: "k-a.png", Progress: 100})

	text := out.String()
	if n := strings.Count(text, "a.png"); n != 2 {
		t.Errorf("имя файла выведено %d раз, ожидается 2 (Uploading один раз + ключ):\n%s", n, text)
	}
	if strings.Contains(text, "\033[J") {
		t.Error("вывод без терминала не должен содержать управляющих последовательностей")
	}
}

// lmsStub — LMS API и хранилище в одном тестовом сервере.
type lmsStub struct {
	uploaded []byte
	deleted  string
	auth     string
}

func (s *lmsStub) handler(base func() string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/s3/upload", func(w http.ResponseWriter, r *http.Request) {
		s.auth = r.Header.Get("Authorization")
		var meta uploader.FileMeta
		_ = json.NewDecoder(r.Body).Decode(&meta)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"preSignedUrl": base() + "/bucket/k-" + meta.FileName,
			"key":          "k-" + meta.FileName,
		})
	})
	mux.HandleFunc("PUT /bucket/{key}", func(w http.ResponseWriter, r *http.Request) {
		s.uploaded, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("DELETE /api/v1/s3/delete", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Key string `json:"key"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.deleted = body.Key
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})
	return mux
}

func newStubServer(t *testing.T) (*lmsStub, *httptest.Server) {
	t.Helper()
	stub := &lmsStub{}
	var srv *httptest.Server
	srv = httptest.NewServer(stub.handler(func() string { return srv.URL }))
	t.Cleanup(srv.Close)
	return stub, srv
}

func TestRunPut_UploadsAndPrintsKey(t *testing.T) {
	stub, srv := newStubServer(t)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	path := filepath.Join(t.TempDir(), "cover.png")
	if err := os.WriteFile(path, png, 0o600); err != nil {
		t.Fatal(err)
	}

	v := newViper()
	newRootCommand(v)
	v.Set(keyAPIURL, srv.URL)
	v.Set(keyToken, "secret")

	var stdout, stderr bytes.Buffer
	if err := runPut(context.Background(), v, path, false, &stdout, &stderr); err != nil {
		t.Fatalf("runPut() вернул ошибку: %v\n%s", err, stderr.String())
	}

	if got := strings.TrimSpace(stdout.String()); got != "k-cover.png" {
		t.Errorf("stdout = %q, ожидается ключ k-cover.png", got)
	}
	if !bytes.Equal(stub.uploaded, png) {
		t.Errorf("в хранилище передано %d байт, ожидается %d", len(stub.uploaded), len(png))
	}
	if stub.auth != "Bearer secret" {
		t.Errorf("Authorization = %q", stub.auth)
	}
}

func TestRunPut_RejectsNonImage(t *testing.T) {
	_, srv := newStubServer(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("просто текст"), 0o600); err != nil {
		t.Fatal(err)
	}

	v := newViper()
	newRootCommand(v)
	v.Set(keyAPIURL, srv.URL)
	v.Set(keyToken, "secret")

	var stdout, stderr bytes.Buffer
	if err := runPut(context.Background(), v, path, false, &stdout, &stderr); err == nil {
		t.Fatal("runPut() для текстового файла должен вернуть ошибку")
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, ожидается пустой", stdout.String())
	}
}

func TestRmCommand(t *testing.T) {
	stub, srv := newStubServer(t)

	root := newRootCommand(newViper())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--api-url", srv.URL, "--token", "secret", "rm", "k-cover.png"})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute() вернул ошибку: %v", err)
	}
	if stub.deleted != "k-cover.png" {
		t.Errorf("удалён ключ %q, ожидается k-cover.png", stub.deleted)
	}
	if !strings.Contains(out.String(), "k-cover.png") {
		t.Errorf("вывод = %q", out.String())
	}
}
