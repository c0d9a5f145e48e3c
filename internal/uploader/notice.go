package uploader

// NoticeKind — вид всплывающего уведомления.
type NoticeKind string

const (
	NoticeTooLarge     NoticeKind = "too_large"
	NoticeTooManyFiles NoticeKind = "too_many_files"
	NoticeInvalidFile  NoticeKind = "invalid_file"
	NoticeDenied       NoticeKind = "denied"
	NoticeRateLimited  NoticeKind = "rate_limited"
	NoticeUploadFailed NoticeKind = "upload_failed"
	NoticeUploaded     NoticeKind = "uploaded"
	NoticeDeleteFailed NoticeKind = "delete_failed"
	NoticeDeleted      NoticeKind = "deleted"
)

// Notice — уведомление для пользователя.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// IsError — уведомление об ошибке (в отличие от подтверждения успеха).
func (n Notice) IsError() bool {
	return n.Kind != NoticeUploaded && n.Kind != NoticeDeleted
}

// Notifier получает уведомления машины состояний.
// Notify вызывается под блокировкой рассылки: синхронный вызов методов
// машины, кроме Snapshot, приведёт к взаимоблокировке.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc — адаптер функции к Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }
