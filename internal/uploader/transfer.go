// transfer.go — прямая передача файла в хранилище по pre-signed URL.
package uploader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Task — отменяемая передача: упорядоченный поток прогресса и один итог.
// Значения прогресса строго возрастают, до завершения не превышают 99;
// 100 публикуется только при успехе. Канал прогресса закрывается до итога.
type Task struct {
	progress chan int
	done     chan struct{}
	err      error
}

// RunTask запускает fn в отдельной горутине. fn сообщает процент через report.
func RunTask(ctx context.Context, fn func(ctx context.Context, report func(int)) error) *Task {
	t := &Task{
		// 0..100 — не больше 101 значения, отправка никогда не блокируется.
		progress: make(chan int, 101),
		done:     make(chan struct{}),
	}

	go func() {
		// net/http может вернуть ответ раньше, чем писатель дочитает тело
		// (например, 403 до приёма данных): поздние report отбрасываются.
		var (
			mu       sync.Mutex
			last     = -1
			finished bool
		)
		report := func(pct int) {
			if pct > 99 {
				pct = 99
			}
			mu.Lock()
			defer mu.Unlock()
			if finished || pct <= last {
				return
			}
			last = pct
			t.progress <- pct
		}

		err := fn(ctx, report)

		mu.Lock()
		finished = true
		if err == nil {
			t.progress <- 100
		}
		close(t.progress)
		mu.Unlock()

		t.err = err
		close(t.done)
	}()
	return t
}

// Progress — поток процентов передачи.
func (t *Task) Progress() <-chan int { return t.progress }

// Wait блокируется до завершения и возвращает итог.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Transport выполняет передачу файла по выданному URL.
type Transport interface {
	Start(ctx context.Context, url string, f File) *Task
}

// HTTPTransport — передача HTTP PUT напрямую в объектное хранилище.
// Отдельного таймаута нет: зависшая передача ограничена только контекстом
// и сроком действия URL.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport создаёт транспорт. client == nil — клиент без таймаута.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &HTTPTransport{client: client}
}

// Start запускает PUT с телом файла и заголовком Content-Type.
func (t *HTTPTransport) Start(ctx context.Context, url string, f File) *Task {
	return RunTask(ctx, func(ctx context.Context, report func(int)) error {
		body, err := f.Open()
		if err != nil {
			return fmt.Errorf("%w: открытие файла: %v", ErrTransfer, err)
		}
		defer body.Close()

		report(0)
		pr := &progressReader{r: body, total: f.Size, report: report}
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, pr)
		if err != nil {
			return fmt.Errorf("%w: создание запроса: %v", ErrTransfer, err)
		}
		req.ContentLength = f.Size
		req.Header.Set("Content-Type", f.ContentType)

		resp, err := t.client.Do(req) //nolint:gosec // URL выдан API
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransfer, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &StatusError{
				Status:  resp.StatusCode,
				Message: strings.TrimSpace(string(snippet)),
				kind:    ErrTransfer,
			}
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	})
}

// progressReader сообщает долю прочитанных байтов.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		p.report(int(p.read * 100 / p.total))
	}
	return n, err
}
