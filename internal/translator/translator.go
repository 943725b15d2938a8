package translator

import (
	"embed"
	"io/fs"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const (
	LanguageRu = "ru"
	LanguageEn = "en"
)

//go:embed translation/*.toml
var catalogs embed.FS

// Translator resolves message ids into the language a client asked for.
type Translator struct {
	bundle      *i18n.Bundle
	defaultLang string
}

// New loads the embedded catalogs. defaultLang is used when the client's
// Accept-Language matches nothing we ship.
func New(defaultLang string) (*Translator, error) {
	base := language.Russian
	if defaultLang == LanguageEn {
		base = language.English
	} else {
		defaultLang = LanguageRu
	}
	bundle := i18n.NewBundle(base)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(catalogs, "translation/*.toml")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(catalogs, f); err != nil {
			zap.L().Warn("не удалось загрузить файл перевода", zap.String("file", path.Base(f)), zap.Error(err))
			return nil, err
		}
	}
	return &Translator{bundle: bundle, defaultLang: defaultLang}, nil
}

func (t *Translator) DefaultLang() string {
	return t.defaultLang
}

// Message localizes id for the given Accept-Language value and falls back to
// the id itself when no catalog has it.
func (t *Translator) Message(lang, id string) string {
	localizer := i18n.NewLocalizer(t.bundle, lang, t.defaultLang)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil {
		zap.L().Warn("перевод не найден", zap.String("lang", lang), zap.String("message_id", id), zap.Error(err))
		return id
	}
	return msg
}
