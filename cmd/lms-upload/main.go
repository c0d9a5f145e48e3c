// Точка входа lms-upload — загрузка обложек курсов из терминала
// через тот же протокол, что и форма администратора:
// запрос pre-signed URL у LMS API, затем прямая передача в хранилище.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/bigkaa/lms/internal/config"
	"github.com/bigkaa/lms/internal/uploader"
)

// Ключи конфигурации; переменные окружения — LMS_UPLOAD_<КЛЮЧ>.
const (
	keyAPIURL        = "api-url"
	keyToken         = "token"
	keyTimeout       = "timeout"
	keyPublicBaseURL = "public-base-url"
	keyLogLevel      = "log-level"
)

func main() {
	if err := newRootCommand(newViper()).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// newViper — конфигурация с чтением переменных LMS_UPLOAD_*.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("LMS_UPLOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// newRootCommand создаёт корневую команду с общими флагами.
// Значение берётся из флага, затем из окружения, затем по умолчанию.
func newRootCommand(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:          "lms-upload",
		Short:        "Загрузка и удаление изображений курсов LMS",
		Version:      config.Version,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String(keyAPIURL, "http://localhost:8080", "адрес LMS API")
	flags.String(keyToken, "", "Bearer-токен администратора")
	flags.Duration(keyTimeout, 30*time.Second, "таймаут запросов к LMS API")
	flags.String(keyPublicBaseURL, "", "публичный адрес бакета для ссылок на загруженные файлы")
	flags.String(keyLogLevel, "warn", "уровень логирования (debug, info, warn, error)")
	_ = v.BindPFlags(flags)

	root.AddCommand(newPutCommand(v), newRmCommand(v))
	return root
}

// newLogger создаёт логгер CLI: текстовый формат в stderr.
func newLogger(v *viper.Viper) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(keyLogLevel))); err != nil {
		return nil, fmt.Errorf("%s: %w", keyLogLevel, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// newClient создаёт клиент LMS API из конфигурации.
func newClient(v *viper.Viper, logger *slog.Logger) (*uploader.APIClient, error) {
	token := v.GetString(keyToken)
	if token == "" {
		return nil, fmt.Errorf("не задан токен: --%s или LMS_UPLOAD_TOKEN", keyToken)
	}
	return uploader.NewAPIClient(v.GetString(keyAPIURL), v.GetDuration(keyTimeout), uploader.StaticToken(token), logger), nil
}

// isTTY — stdout подключён к терминалу.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// termWidth — ширина терминала для прогресс-бара.
func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 60
	}
	return min(w, 80)
}
