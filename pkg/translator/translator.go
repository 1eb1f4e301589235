package translator

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var locales embed.FS

const (
	LanguageEn = "en"
	LanguageRu = "ru"
)

type Translator struct {
	bundle *i18n.Bundle
}

// New загружает встроенные переводы и, если задан, дополнительный каталог
func New(extraFolder string) (*Translator, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil, fmt.Errorf("чтение встроенных переводов: %w", err)
	}
	for _, e := range entries {
		if _, err := bundle.LoadMessageFileFS(locales, path.Join("locales", e.Name())); err != nil {
			return nil, fmt.Errorf("загрузка %s: %w", e.Name(), err)
		}
	}

	if extraFolder != "" {
		loadFolder(bundle, extraFolder)
	}
	return &Translator{bundle: bundle}, nil
}

func loadFolder(bundle *i18n.Bundle, folder string) {
	files, err := os.ReadDir(folder)
	if err != nil {
		zap.L().Warn("failed to list translation folder", zap.String("folder", folder), zap.Error(err))
		return
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if _, err := bundle.LoadMessageFile(path.Join(folder, f.Name())); err != nil {
			zap.L().Warn("failed to load translation file", zap.String("file", f.Name()), zap.Error(err))
		}
	}
}

// Localize переводит сообщение; при отсутствии перевода возвращает fallback
func (t *Translator) Localize(lang, messageID string, data map[string]any, fallback string) string {
	localizer := i18n.NewLocalizer(t.bundle, lang, LanguageEn)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	// шаблону не хватило данных: сообщение сервиса информативнее
	if err != nil || msg == "" || strings.Contains(msg, "<no value>") {
		return fallback
	}
	return msg
}

// Languages - языки, для которых есть переводы
func (t *Translator) Languages() []string {
	tags := t.bundle.LanguageTags()
	res := make([]string, 0, len(tags))
	for _, tag := range tags {
		res = append(res, tag.String())
	}
	return res
}
