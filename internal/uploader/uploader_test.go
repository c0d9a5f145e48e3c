package uploader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeIssuer — Issuer с заданным ответом.
type fakeIssuer struct {
	mu    sync.Mutex
	calls []FileMeta
	cred  Credential
	err   error
}

func (f *fakeIssuer) RequestUpload(_ context.Context, meta FileMeta) (Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, meta)
	if f.err != nil {
		return Credential{}, f.err
	}
	return f.cred, nil
}

func (f *fakeIssuer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeDeleter — Deleter с заданной ошибкой.
type fakeDeleter struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeDeleter) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return f.err
}

func (f *fakeDeleter) deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

// scriptTransport — передача с заранее заданным прогрессом.
// gate != nil — передача ждёт закрытия gate или отмены контекста.
type scriptTransport struct {
	mu    sync.Mutex
	urls  []string
	steps []int
	err   error
	gate  chan struct{}
}

func (s *scriptTransport) Start(ctx context.Context, url string, _ File) *Task {
	s.mu.Lock()
	s.urls = append(s.urls, url)
	steps, err, gate := s.steps, s.err, s.gate
	s.mu.Unlock()

	return RunTask(ctx, func(ctx context.Context, report func(int)) error {
		for _, p := range steps {
			report(p)
		}
		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return err
	})
}

func (s *scriptTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

// countingPreviews считает создания и освобождения каждого превью.
type countingPreviews struct {
	mu      sync.Mutex
	created []string
	revoked map[string]int
}

func newCountingPreviews() *countingPreviews {
	return &countingPreviews{revoked: make(map[string]int)}
}

func (p *countingPreviews) Create(File) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	url := fmt.Sprintf("blob:test-%d", len(p.created)+1)
	p.created = append(p.created, url)
	return url, nil
}

func (p *countingPreviews) Revoke(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked[url]++
}

func (p *countingPreviews) revokes(url string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revoked[url]
}

func (p *countingPreviews) createdCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.created)
}

// audit проверяет, что каждое превью освобождено ровно один раз.
func (p *countingPreviews) audit(t *testing.T) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	known := make(map[string]bool, len(p.created))
	for _, url := range p.created {
		known[url] = true
		if n := p.revoked[url]; n != 1 {
			t.Errorf("превью %s освобождено %d раз, ожидается 1", url, n)
		}
	}
	for url := range p.revoked {
		if !known[url] {
			t.Errorf("освобождено неизвестное превью %s", url)
		}
	}
}

// recorder собирает уведомления, значения поля и снимки.
type recorder struct {
	mu      sync.Mutex
	notices []Notice
	values  []string
	states  []Snapshot
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) onChange(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, key)
}

func (r *recorder) onState(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) noticeKinds() []NoticeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]NoticeKind, 0, len(r.notices))
	for _, n := range r.notices {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func (r *recorder) lastNotice() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

func (r *recorder) changes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func (r *recorder) phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	phases := make([]Phase, 0, len(r.states))
	for _, s := range r.states {
		phases = append(phases, s.Phase)
	}
	return phases
}

func (r *recorder) progressValues() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var values []int
	for _, s := range r.states {
		if s.Phase == PhaseUploading || s.Phase == PhaseSuccess {
			values = append(values, s.Progress)
		}
	}
	return values
}

// harness — машина с тестовыми зависимостями.
type harness struct {
	issuer    *fakeIssuer
	deleter   *fakeDeleter
	transport *scriptTransport
	previews  *countingPreviews
	rec       *recorder
	m         *Machine
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		issuer: &fakeIssuer{cred: Credential{
			URL: "https://bucket.example.com/upload?sig=abc",
			Key: "0b6c7a1e-cover.jpg",
		}},
		deleter:   &fakeDeleter{},
		transport: &scriptTransport{steps: []int{10, 45, 80}},
		previews:  newCountingPreviews(),
		rec:       &recorder{},
	}
	opts := Options{
		Issuer:    h.issuer,
		Deleter:   h.deleter,
		Transport: h.transport,
		Previews:  h.previews,
		Notifier:  h.rec,
		OnChange:  h.rec.onChange,
		OnState:   h.rec.onState,
		Logger:    testLogger(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	m, err := New(opts)
	if err != nil {
		t.Fatalf("New() вернул ошибку: %v", err)
	}
	h.m = m
	t.Cleanup(func() {
		m.Dispose()
		m.Wait()
	})
	return h
}

func imageFile(name, contentType string, size int) File {
	return BytesFile(name, contentType, make([]byte, size))
}

const mb = 1000 * 1000
