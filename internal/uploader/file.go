package uploader

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	issvg "github.com/h2non/go-is-svg"
)

// File — выбранный пользователем файл: метаданные и источник байтов.
type File struct {
	Name        string
	ContentType string
	Size        int64
	// Open открывает содержимое для передачи. Вызывается один раз на попытку.
	Open func() (io.ReadCloser, error)
}

const (
	// sniffLen — объём заголовка файла для определения MIME-типа.
	sniffLen       = 512
	svgContentType = "image/svg+xml"
)

// OpenFile описывает файл на диске. MIME-тип определяется по содержимому;
// SVG распознаётся отдельно, так как http.DetectContentType отдаёт для него text/xml.
func OpenFile(name string) (File, error) {
	info, err := os.Stat(name)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s: это каталог", name)
	}

	f, err := os.Open(name)
	if err != nil {
		return File{}, fmt.Errorf("открытие %s: %w", name, err)
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	_ = f.Close()
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return File{}, fmt.Errorf("чтение %s: %w", name, err)
	}

	contentType := DetectContentType(head[:n])
	// SVG определяется только по документу целиком.
	if strings.HasPrefix(contentType, "text/") && info.Size() <= DefaultMaxSize {
		if data, err := os.ReadFile(name); err == nil && issvg.Is(data) {
			contentType = svgContentType
		}
	}

	return File{
		Name:        filepath.Base(name),
		ContentType: contentType,
		Size:        info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(name)
		},
	}, nil
}

// DetectContentType определяет MIME-тип по первым байтам файла.
func DetectContentType(head []byte) string {
	if issvg.Is(head) {
		return svgContentType
	}
	return http.DetectContentType(head)
}

// BytesFile — файл в памяти (тесты, вставка из буфера обмена).
func BytesFile(name, contentType string, data []byte) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}
