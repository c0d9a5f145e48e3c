// machine.go — машина состояний одного вложения, привязанного к полю формы.
//
// Переходы:
//
//	Empty → Uploading → {Success, Error}
//	Success → Deleting → {Empty, Success}
//	Error → Uploading (новый drop, новая идентичность)
//
// Сетевые операции выполняются в отдельных горутинах и возвращают результат
// через те же переходы; результат, относящийся к заменённому вложению или
// пришедший после Dispose, отбрасывается.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Options — зависимости и параметры машины.
type Options struct {
	Issuer    Issuer
	Deleter   Deleter
	Transport Transport
	Previews  PreviewStore
	Notifier  Notifier

	// OnChange получает новое значение поля формы: ключ объекта или "".
	// Ограничения те же, что у OnState.
	OnChange func(key string)
	// OnState получает снимок после каждого изменения состояния.
	// Слушатели вызываются последовательно и не должны синхронно вызывать
	// методы машины, кроме Snapshot.
	OnState func(Snapshot)

	// Constraints — ограничения drop-зоны; нулевое значение — DefaultConstraints.
	Constraints Constraints
	// PublicBaseURL — публичный адрес бакета. Если задан, после успешной
	// загрузки локальное превью заменяется удалённым URL.
	PublicBaseURL string
	// InitialKey — уже сохранённое значение поля (форма редактирования).
	InitialKey string

	Logger *slog.Logger
}

// Snapshot — неизменяемый снимок вложения для рендеринга.
type Snapshot struct {
	ID           string
	Phase        Phase
	Progress     int
	PreviewURL   string
	PreviewLocal bool
	Key          string
	FileName     string
	FileType     string
	FileSize     int64
	DragActive   bool
	ErrorMessage string
}

// Machine управляет жизненным циклом одного вложения.
type Machine struct {
	opts        Options
	constraints Constraints
	logger      *slog.Logger

	// emitMu упорядочивает переходы вместе с рассылкой событий.
	emitMu sync.Mutex
	// mu защищает state и disposed.
	mu       sync.Mutex
	state    Snapshot
	disposed bool

	ctx         context.Context
	cancel      context.CancelFunc
	inflight    sync.WaitGroup
	disposeOnce sync.Once
}

// effects — побочные эффекты перехода, рассылаемые после снятия блокировки.
type effects struct {
	notices []Notice
	change  *string
}

func (fx *effects) notify(kind NoticeKind, msg string) {
	fx.notices = append(fx.notices, Notice{Kind: kind, Message: msg})
}

func (fx *effects) setValue(key string) {
	fx.change = &key
}

// New создаёт машину. Issuer и Deleter обязательны.
func New(opts Options) (*Machine, error) {
	if opts.Issuer == nil || opts.Deleter == nil {
		return nil, errors.New("uploader: Issuer и Deleter обязательны")
	}
	if opts.Transport == nil {
		opts.Transport = NewHTTPTransport(nil)
	}
	if opts.Previews == nil {
		opts.Previews = NewMemoryPreviews()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	constraints := opts.Constraints
	if constraints.isZero() {
		constraints = DefaultConstraints()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Machine{
		opts:        opts,
		constraints: constraints,
		logger:      opts.Logger.With(slog.String("component", "uploader")),
		ctx:         ctx,
		cancel:      cancel,
	}
	m.state.ID = uuid.NewString()

	if opts.InitialKey != "" {
		m.state.Phase = PhaseSuccess
		m.state.Key = opts.InitialKey
		m.state.Progress = 100
		m.state.PreviewURL = m.remoteURL(opts.InitialKey)
	}
	return m, nil
}

func (c Constraints) isZero() bool {
	return c.MaxFiles == 0 && c.MaxSize == 0 && c.MinSize == 0 && len(c.Accept) == 0
}

// Constraints — действующие ограничения drop-зоны.
func (m *Machine) Constraints() Constraints { return m.constraints }

// Snapshot возвращает текущее состояние.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Wait блокируется до завершения всех сетевых операций.
func (m *Machine) Wait() {
	m.inflight.Wait()
}

// Drop — событие drop-зоны: проверяет ограничения, затем принимает
// единственный файл или классифицирует отказ.
func (m *Machine) Drop(files []File) error {
	snap := m.Snapshot()
	if m.isDisposed() {
		return ErrDisposed
	}
	if !snap.Phase.acceptsDrop() {
		return ErrDropDisabled
	}

	accepted, rejected := m.constraints.Evaluate(files)
	if len(rejected) > 0 {
		return fmt.Errorf("%w: %s", ErrRejected, m.RejectDrop(rejected))
	}
	if len(accepted) == 0 {
		return fmt.Errorf("%w: файлы не выбраны", ErrRejected)
	}
	return m.AcceptDrop(accepted[0])
}

// AcceptDrop принимает файл: освобождает прежнее превью, создаёт новое
// вложение в фазе Uploading и запускает запрос учётных данных и передачу.
func (m *Machine) AcceptDrop(f File) error {
	if _, rejected := m.constraints.Evaluate([]File{f}); len(rejected) > 0 {
		return fmt.Errorf("%w: %s", ErrRejected, m.RejectDrop(rejected))
	}

	var id string
	err := m.transition("accept_drop", func(s *Snapshot, _ *effects) error {
		if !s.Phase.acceptsDrop() {
			return ErrDropDisabled
		}
		m.releasePreview(s)

		preview, err := m.opts.Previews.Create(f)
		if err != nil {
			m.logger.Warn("Не удалось создать превью",
				slog.String("file", f.Name),
				slog.String("error", err.Error()),
			)
			preview = ""
		}

		*s = Snapshot{
			ID:           uuid.NewString(),
			Phase:        PhaseUploading,
			PreviewURL:   preview,
			PreviewLocal: preview != "",
			FileName:     f.Name,
			FileType:     f.ContentType,
			FileSize:     f.Size,
		}
		id = s.ID
		m.inflight.Add(1)
		return nil
	})
	if err != nil {
		return err
	}

	go m.upload(id, f)
	return nil
}

// upload — двухфазный протокол: учётные данные, затем прямая передача.
func (m *Machine) upload(id string, f File) {
	defer m.inflight.Done()

	cred, err := m.opts.Issuer.RequestUpload(m.ctx, FileMeta{
		FileName: f.Name,
		FileType: f.ContentType,
		FileSize: f.Size,
		IsImage:  strings.HasPrefix(f.ContentType, "image/"),
	})
	if err != nil {
		m.ignore("credential_failed", m.credentialFailed(id, err))
		return
	}

	task := m.opts.Transport.Start(m.ctx, cred.URL, f)
	for pct := range task.Progress() {
		m.ignore("report_progress", m.reportProgress(id, pct))
	}
	if err := task.Wait(); err != nil {
		m.ignore("complete_failure", m.completeFailure(id, err))
		return
	}
	m.ignore("complete_success", m.completeSuccess(id, cred.Key))
}

// RejectDrop классифицирует отказы и публикует уведомление.
// Состояние вложения не меняется.
func (m *Machine) RejectDrop(rejections []FileRejection) Category {
	cat := Classify(rejections)
	if len(rejections) == 0 {
		return cat
	}

	_ = m.transition("reject_drop", func(_ *Snapshot, fx *effects) error {
		switch cat {
		case CategoryTooLarge:
			fx.notify(NoticeTooLarge, fmt.Sprintf("Файл слишком большой. Максимальный размер — %s", formatSize(m.constraints.MaxSize)))
		case CategoryTooManyFiles:
			fx.notify(NoticeTooManyFiles, "Можно загрузить только один файл")
		default:
			msg := "Файл не может быть загружен"
			if errs := rejections[0].Errors; len(errs) > 0 {
				msg = errs[0].Message
			}
			fx.notify(NoticeInvalidFile, msg)
		}
		return nil
	})
	return cat
}

// ReportProgress записывает прогресс текущей передачи.
func (m *Machine) ReportProgress(pct int) error {
	return m.reportProgress(m.Snapshot().ID, pct)
}

// CompleteSuccess завершает текущую передачу с ключом объекта.
func (m *Machine) CompleteSuccess(key string) error {
	return m.completeSuccess(m.Snapshot().ID, key)
}

// CompleteFailure завершает текущую передачу ошибкой. err == nil — ErrTransfer.
func (m *Machine) CompleteFailure(err error) error {
	if err == nil {
		err = ErrTransfer
	}
	return m.completeFailure(m.Snapshot().ID, err)
}

func (m *Machine) reportProgress(id string, pct int) error {
	return m.transition("report_progress", func(s *Snapshot, _ *effects) error {
		if err := expect(s, id, PhaseUploading); err != nil {
			return err
		}
		pct = min(max(pct, 0), 100)
		if pct <= s.Progress {
			return nil
		}
		s.Progress = pct
		return nil
	})
}

func (m *Machine) completeSuccess(id, key string) error {
	if key == "" {
		return fmt.Errorf("%w: пустой ключ объекта", ErrInvalidPhase)
	}
	return m.transition("complete_success", func(s *Snapshot, fx *effects) error {
		if err := expect(s, id, PhaseUploading); err != nil {
			return err
		}
		s.Phase = PhaseSuccess
		s.Progress = 100
		s.Key = key
		s.ErrorMessage = ""
		if remote := m.remoteURL(key); remote != "" {
			m.releasePreview(s)
			s.PreviewURL = remote
		}
		fx.setValue(key)
		fx.notify(NoticeUploaded, "Файл загружен")
		return nil
	})
}

func (m *Machine) completeFailure(id string, cause error) error {
	return m.transition("complete_failure", func(s *Snapshot, fx *effects) error {
		if err := expect(s, id, PhaseUploading); err != nil {
			return err
		}
		msg := errorText(cause, "Не удалось загрузить файл")
		s.Phase = PhaseError
		s.Key = ""
		s.ErrorMessage = msg
		fx.notify(NoticeUploadFailed, msg)
		m.logger.Warn("Передача файла завершилась ошибкой",
			slog.String("attachment_id", id),
			slog.String("file", s.FileName),
			slog.String("error", cause.Error()),
		)
		return nil
	})
}

// credentialFailed обрабатывает отказ в выдаче учётных данных.
// Отказ авторизации, лимита или валидации откатывает вложение в Empty;
// остальные ошибки переводят его в Error.
// Uploading к этому моменту уже наблюдался: Drop входит в него синхронно,
// до ответа на запрос учётных данных.
func (m *Machine) credentialFailed(id string, cause error) error {
	if !isDenial(cause) {
		return m.completeFailure(id, cause)
	}
	return m.transition("credential_denied", func(s *Snapshot, fx *effects) error {
		if err := expect(s, id, PhaseUploading); err != nil {
			return err
		}
		m.releasePreview(s)
		*s = Snapshot{ID: uuid.NewString(), DragActive: s.DragActive}
		kind, msg := denialNotice(cause)
		fx.notify(kind, msg)
		return nil
	})
}

// Remove удаляет загруженный объект. Доступно только в фазе Success;
// в остальных фазах возвращает ErrNotRemovable без изменения состояния.
func (m *Machine) Remove() error {
	var id, key string
	err := m.transition("remove", func(s *Snapshot, _ *effects) error {
		if s.Phase != PhaseSuccess {
			return ErrNotRemovable
		}
		s.Phase = PhaseDeleting
		id, key = s.ID, s.Key
		m.inflight.Add(1)
		return nil
	})
	if err != nil {
		return err
	}

	go func() {
		defer m.inflight.Done()
		err := m.opts.Deleter.DeleteObject(m.ctx, key)
		m.ignore("delete_settled", m.deleteSettled(id, err))
	}()
	return nil
}

// deleteSettled: при ошибке вложение возвращается в Success, объект
// считается сохранённым; при успехе — сброс в Empty.
func (m *Machine) deleteSettled(id string, cause error) error {
	return m.transition("delete_settled", func(s *Snapshot, fx *effects) error {
		if err := expect(s, id, PhaseDeleting); err != nil {
			return err
		}
		if cause != nil {
			s.Phase = PhaseSuccess
			kind, msg := NoticeDeleteFailed, errorText(cause, "Не удалось удалить файл")
			if errors.Is(cause, ErrUnauthorized) || errors.Is(cause, ErrForbidden) {
				kind = NoticeDenied
			} else if errors.Is(cause, ErrRateLimited) {
				kind, msg = denialNotice(cause)
			}
			fx.notify(kind, msg)
			m.logger.Warn("Удаление объекта завершилось ошибкой",
				slog.String("key", s.Key),
				slog.String("error", cause.Error()),
			)
			return nil
		}

		m.releasePreview(s)
		*s = Snapshot{ID: uuid.NewString(), DragActive: s.DragActive}
		fx.setValue("")
		fx.notify(NoticeDeleted, "Файл удалён")
		return nil
	})
}

// SetDragActive отмечает, что над drop-зоной находится перетаскиваемый файл.
func (m *Machine) SetDragActive(active bool) error {
	return m.transition("drag", func(s *Snapshot, _ *effects) error {
		s.DragActive = active
		return nil
	})
}

// Dispose освобождает локальное превью и отменяет сетевые операции.
// Повторные вызовы ничего не делают.
func (m *Machine) Dispose() {
	m.disposeOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.disposed = true
		m.cancel()
		m.releasePreview(&m.state)
		m.logger.Debug("Загрузчик освобождён",
			slog.String("attachment_id", m.state.ID),
			slog.String("phase", m.state.Phase.String()),
		)
	})
}

func (m *Machine) isDisposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

// transition применяет fn к состоянию и рассылает события.
// fn возвращает ошибку только до изменения состояния.
func (m *Machine) transition(op string, fn func(s *Snapshot, fx *effects) error) error {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return ErrDisposed
	}
	before := m.state
	var fx effects
	if err := fn(&m.state, &fx); err != nil {
		m.mu.Unlock()
		return err
	}
	after := m.state
	m.mu.Unlock()

	if before.Phase != after.Phase {
		m.logger.Debug("Переход состояния",
			slog.String("op", op),
			slog.String("from", before.Phase.String()),
			slog.String("to", after.Phase.String()),
			slog.String("attachment_id", after.ID),
		)
	}

	if after != before && m.opts.OnState != nil {
		m.opts.OnState(after)
	}
	if fx.change != nil && m.opts.OnChange != nil {
		m.opts.OnChange(*fx.change)
	}
	if m.opts.Notifier != nil {
		for _, n := range fx.notices {
			m.opts.Notifier.Notify(n)
		}
	}
	return nil
}

// ignore логирует отброшенный результат фоновой операции.
func (m *Machine) ignore(op string, err error) {
	if err != nil {
		m.logger.Debug("Результат операции отброшен",
			slog.String("op", op),
			slog.String("reason", err.Error()),
		)
	}
}

// releasePreview освобождает локальное превью. Вызывается под mu.
func (m *Machine) releasePreview(s *Snapshot) {
	if s.PreviewLocal && s.PreviewURL != "" {
		m.opts.Previews.Revoke(s.PreviewURL)
	}
	s.PreviewURL = ""
	s.PreviewLocal = false
}

// remoteURL — публичный адрес объекта или "", если PublicBaseURL не задан.
func (m *Machine) remoteURL(key string) string {
	if m.opts.PublicBaseURL == "" {
		return ""
	}
	return normalizeURL(m.opts.PublicBaseURL) + "/" + url.PathEscape(key)
}

// expect проверяет, что событие относится к текущему вложению и фазе.
func expect(s *Snapshot, id string, phase Phase) error {
	if s.ID != id || s.Phase != phase {
		return fmt.Errorf("%w: ожидается %s, текущая %s", ErrInvalidPhase, phase, s.Phase)
	}
	return nil
}

func denialNotice(err error) (NoticeKind, string) {
	var se *StatusError
	switch {
	case errors.Is(err, ErrRateLimited):
		if errors.As(err, &se) && se.RetryAfter > 0 {
			return NoticeRateLimited, fmt.Sprintf("Слишком много запросов. Повторите через %d с", int(se.RetryAfter.Seconds()))
		}
		return NoticeRateLimited, "Слишком много запросов. Повторите позже"
	case errors.Is(err, ErrValidation):
		return NoticeInvalidFile, errorText(err, "Файл не прошёл проверку")
	default:
		return NoticeDenied, errorText(err, "Недостаточно прав для загрузки файла")
	}
}

// errorText — сообщение сервера, если оно есть.
func errorText(err error, fallback string) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}

// formatSize — человекочитаемый размер (5 МБ, 512 КБ).
func formatSize(n int64) string {
	const (
		kib = 1024
		mib = 1024 * kib
	)
	switch {
	case n >= mib && n%mib == 0:
		return fmt.Sprintf("%d МБ", n/mib)
	case n >= mib:
		return fmt.Sprintf("%.1f МБ", float64(n)/mib)
	case n >= kib:
		return fmt.Sprintf("%d КБ", n/kib)
	default:
		return fmt.Sprintf("%d Б", n)
	}
}
