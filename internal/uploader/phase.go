// Пакет uploader — клиентская машина состояний загрузки одного файла:
// приём файла, запрос pre-signed URL, прямая передача в хранилище
// с прогрессом, удаление и освобождение локального превью.
package uploader

import "fmt"

// Phase — фаза вложения.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseUploading
	PhaseSuccess
	PhaseError
	PhaseDeleting
)

var phaseNames = [...]string{
	PhaseEmpty:     "empty",
	PhaseUploading: "uploading",
	PhaseSuccess:   "success",
	PhaseError:     "error",
	PhaseDeleting:  "deleting",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// ParsePhase разбирает строковое имя фазы.
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return PhaseEmpty, fmt.Errorf("неизвестная фаза %q", s)
}

// acceptsDrop — можно ли принять новый файл в этой фазе.
// Error допускает повторный drop (единственный способ повторить попытку).
func (p Phase) acceptsDrop() bool {
	return p == PhaseEmpty || p == PhaseError
}
