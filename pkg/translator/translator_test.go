package translator_test

import (
	"os"
	"path/filepath"
	"taskflow/pkg/translator"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalize(t *testing.T) {
	tr, err := translator.New("")
	require.NoError(t, err)

	details := map[string]any{"resource": "task", "id": "42"}

	tests := []struct {
		name string
		lang string
		id   string
		data map[string]any
		want string
	}{
		{name: "english", lang: "en", id: "NOT_FOUND", data: details, want: "task 42 was not found."},
		{name: "russian", lang: "ru", id: "NOT_FOUND", data: details, want: "task 42 не найден(а)."},
		{name: "region falls back to base", lang: "ru-RU", id: "INVALID_ID", want: "Неверный идентификатор."},
		{name: "unsupported language", lang: "de", id: "INVALID_ID", want: "Invalid identifier."},
		{name: "unknown message", lang: "en", id: "NO_SUCH_CODE", want: "fallback"},
		{name: "template without data", lang: "en", id: "NOT_FOUND", want: "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Localize(tt.lang, tt.id, tt.data, "fallback"))
		})
	}
}

func TestLanguages(t *testing.T) {
	tr, err := translator.New("")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{translator.LanguageEn, translator.LanguageRu}, tr.Languages())
}

func TestExtraFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "de.toml"), []byte(`INVALID_ID = "Ungültige Kennung."`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.toml"), []byte(`= =`), 0o600))

	tr, err := translator.New(dir)
	require.NoError(t, err)

	assert.Equal(t, "Ungültige Kennung.", tr.Localize("de", "INVALID_ID", nil, "fallback"))
	assert.Contains(t, tr.Languages(), "de")

	// отсутствующий каталог не ошибка
	_, err = translator.New(filepath.Join(dir, "missing"))
	assert.NoError(t, err)
}
