package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/bigkaa/lms/internal/uploader"
)

var (
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleBold    = lipgloss.NewStyle().Bold(true)
	styleSuccess = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleActive  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
)

// Terminal — строка состояния загрузчика шириной не более width колонок.
func Terminal(v View, width int) string {
	if width < 20 {
		width = 20
	}

	switch v.Phase {
	case uploader.PhaseUploading:
		bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(width))
		return styleBold.Render(fmt.Sprintf("%s %s", textUploading, v.FileName)) + "\n" +
			bar.ViewAs(float64(v.progress())/100)
	case uploader.PhaseSuccess:
		return styleSuccess.Render("✓ "+v.Key) + "\n" + styleMuted.Render(v.PreviewURL)
	case uploader.PhaseDeleting:
		return styleMuted.Render(fmt.Sprintf("%s %s…", textDeleting, v.Key))
	case uploader.PhaseError:
		msg := v.ErrorMessage
		if msg == "" {
			msg = textError
		}
		return styleError.Render("✗ "+msg) + "\n" + styleMuted.Render(textRetry)
	default:
		if v.DragActive {
			return styleActive.Render(textDropActive)
		}
		return strings.Join([]string{textDrop, styleMuted.Render(textLimits)}, "\n")
	}
}

// Notice — строка уведомления для терминала.
func Notice(n uploader.Notice) string {
	if n.IsError() {
		return styleError.Render("! " + n.Message)
	}
	return styleSuccess.Render(n.Message)
}
