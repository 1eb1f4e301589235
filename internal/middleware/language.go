package middleware

import (
	"context"
	"net/http"
	"taskflow/pkg/translator"

	"golang.org/x/text/language"
)

const langKey contextKey = "lang"
const translatorKey contextKey = "translator"

var supported = []language.Tag{language.English, language.Russian}
var matcher = language.NewMatcher(supported)

// Language выбирает язык ответа по Accept-Language, по умолчанию английский
func Language(tr *translator.Translator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := MatchLanguage(r.Header.Get("Accept-Language"))
			ctx := context.WithValue(r.Context(), langKey, lang)
			if tr != nil {
				ctx = context.WithValue(ctx, translatorKey, tr)
			}
			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func MatchLanguage(header string) string {
	if header == "" {
		return translator.LanguageEn
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return translator.LanguageEn
	}
	_, idx, _ := matcher.Match(tags...)
	base, _ := supported[idx].Base()
	return base.String()
}

func LanguageFrom(ctx context.Context) string {
	if lang, ok := ctx.Value(langKey).(string); ok {
		return lang
	}
	return translator.LanguageEn
}

func translatorFrom(ctx context.Context) *translator.Translator {
	tr, _ := ctx.Value(translatorKey).(*translator.Translator)
	return tr
}

// TranslatorFrom нужен обработчикам для локализации бизнес-ошибок
func TranslatorFrom(ctx context.Context) *translator.Translator {
	return translatorFrom(ctx)
}
