// Пакет render — представления состояния загрузчика: HTML-фрагменты
// для страниц администратора и строки для терминала.
// Функции чистые: вход — View, выход — разметка.
package render

import (
	"strings"

	"github.com/bigkaa/lms/internal/uploader"
)

// View — данные, необходимые для отрисовки одного состояния.
type View struct {
	Phase        uploader.Phase
	Progress     int
	PreviewURL   string
	Key          string
	FileName     string
	DragActive   bool
	ErrorMessage string
}

// FromSnapshot строит View из снимка машины состояний.
func FromSnapshot(s uploader.Snapshot) View {
	return View{
		Phase:        s.Phase,
		Progress:     s.Progress,
		PreviewURL:   s.PreviewURL,
		Key:          s.Key,
		FileName:     s.FileName,
		DragActive:   s.DragActive,
		ErrorMessage: s.ErrorMessage,
	}
}

// progress — процент в пределах [0, 100].
func (v View) progress() int {
	return min(max(v.Progress, 0), 100)
}

// safePreviewURL пропускает только http(s), blob: и относительные адреса.
func safePreviewURL(u string) string {
	lower := strings.ToLower(strings.TrimSpace(u))
	for _, prefix := range []string{"https://", "http://", "blob:"} {
		if strings.HasPrefix(lower, prefix) {
			return u
		}
	}
	if strings.HasPrefix(lower, "/") && !strings.HasPrefix(lower, "//") {
		return u
	}
	return ""
}

const (
	textDrop       = "Перетащите изображение сюда или нажмите, чтобы выбрать"
	textDropActive = "Отпустите файл для загрузки"
	textLimits     = "PNG, JPEG, GIF, WEBP или SVG, до 5 МБ"
	textUploading  = "Загрузка"
	textDeleting   = "Удаление"
	textRemove     = "Удалить"
	textError      = "Ошибка загрузки"
	textRetry      = "Перетащите файл снова, чтобы повторить"
)
