package uploader

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// PreviewStore создаёт и освобождает локальные превью выбранных файлов.
// Каждый URL, выданный Create, должен быть освобождён через Revoke ровно один раз.
type PreviewStore interface {
	Create(f File) (string, error)
	Revoke(url string)
}

// MemoryPreviews — реестр превью в памяти с адресами вида blob:<uuid>.
type MemoryPreviews struct {
	mu    sync.Mutex
	files map[string]File
}

// NewMemoryPreviews создаёт пустой реестр.
func NewMemoryPreviews() *MemoryPreviews {
	return &MemoryPreviews{files: make(map[string]File)}
}

// Create регистрирует файл и возвращает адрес превью.
func (p *MemoryPreviews) Create(f File) (string, error) {
	url := fmt.Sprintf("blob:%s", uuid.NewString())
	p.mu.Lock()
	p.files[url] = f
	p.mu.Unlock()
	return url, nil
}

// Revoke освобождает превью. Неизвестный адрес игнорируется.
func (p *MemoryPreviews) Revoke(url string) {
	p.mu.Lock()
	delete(p.files, url)
	p.mu.Unlock()
}

// Lookup возвращает файл по адресу превью.
func (p *MemoryPreviews) Lookup(url string) (File, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.files[url]
	return f, ok
}

// Len — число неосвобождённых превью.
func (p *MemoryPreviews) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.files)
}
