// put.go — команда put: загрузка файла с отображением прогресса.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bigkaa/lms/internal/render"
	"github.com/bigkaa/lms/internal/uploader"
)

func newPutCommand(v *viper.Viper) *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Загрузить изображение и вывести ключ объекта",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPut(ctx, v, args[0], interactive, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "после загрузки предложить удалить файл")
	return cmd
}

func runPut(ctx context.Context, v *viper.Viper, path string, interactive bool, stdout, stderr io.Writer) error {
	logger, err := newLogger(v)
	if err != nil {
		return err
	}
	client, err := newClient(v, logger)
	if err != nil {
		return err
	}

	f, err := uploader.OpenFile(path)
	if err != nil {
		return err
	}

	screen := newScreen(stderr, isTTY(), termWidth())
	m, err := uploader.New(uploader.Options{
		Issuer:        client,
		Deleter:       client,
		Notifier:      uploader.NotifierFunc(screen.notice),
		OnState:       screen.draw,
		PublicBaseURL: v.GetString(keyPublicBaseURL),
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer m.Dispose()

	// Прерывание отменяет незавершённую передачу.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.Dispose()
		case <-done:
		}
	}()

	if err := m.Drop([]uploader.File{f}); err != nil {
		return err
	}
	m.Wait()

	snap := m.Snapshot()
	if snap.Phase != uploader.PhaseSuccess {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.New("загрузка не завершена")
	}
	fmt.Fprintln(stdout, snap.Key)

	if !interactive || !isTTY() {
		return nil
	}

	confirm := promptui.Prompt{
		Label:     "Удалить загруженный файл",
		IsConfirm: true,
	}
	if _, err := confirm.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return nil
		}
		return err
	}

	if err := m.Remove(); err != nil {
		return err
	}
	m.Wait()
	if m.Snapshot().Phase != uploader.PhaseEmpty {
		return errors.New("файл не удалён")
	}
	return nil
}

// screen выводит состояние загрузчика в stderr.
// В терминале предыдущий кадр перерисовывается, иначе печатаются
// только смены фазы.
type screen struct {
	mu        sync.Mutex
	out       io.Writer
	tty       bool
	width     int
	lastLines int
	lastPhase uploader.Phase
}

func newScreen(out io.Writer, tty bool, width int) *screen {
	return &screen{out: out, tty: tty, width: width, lastPhase: uploader.PhaseEmpty}
}

func (s *screen) draw(snap uploader.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tty && snap.Phase == s.lastPhase {
		return
	}
	s.lastPhase = snap.Phase

	frame := render.Terminal(render.FromSnapshot(snap), s.width)
	if s.tty && s.lastLines > 0 {
		// Курсор вверх на высоту прошлого кадра и очистка до конца экрана.
		fmt.Fprintf(s.out, "\033[%dA\033[J", s.lastLines)
	}
	fmt.Fprintln(s.out, frame)
	s.lastLines = lipgloss.Height(frame)
}

func (s *screen) notice(n uploader.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintln(s.out, strings.TrimSpace(render.Notice(n)))
	s.lastLines = 0
}
