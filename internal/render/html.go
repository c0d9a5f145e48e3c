package render

// Разметка — uploader.templ; uploader_templ.go генерируется
// `templ generate` из корня модуля.

import "github.com/a-h/templ"

// HTML — фрагмент загрузчика для текущей фазы.
func HTML(v View) templ.Component {
	return uploaderFragment(v)
}

func dropText(active bool) string {
	if active {
		return textDropActive
	}
	return textDrop
}

func errorText(msg string) string {
	if msg == "" {
		return textError
	}
	return msg
}

// previewSrc — адрес превью, если он безопасен для атрибута src.
func (v View) previewSrc() string {
	return safePreviewURL(v.PreviewURL)
}
