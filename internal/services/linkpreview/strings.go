package linkpreview

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	msgCallLinkDescription = "call_link.description"
	msgDefaultCallTitle    = "call_link.default_title"
)

var translations = map[language.Tag]map[string]string{
	language.English: {
		msgCallLinkDescription: "Use this link to join a Zentra call",
		msgDefaultCallTitle:    "Zentra call",
	},
	language.German: {
		msgCallLinkDescription: "Verwende diesen Link, um einem Zentra-Anruf beizutreten",
		msgDefaultCallTitle:    "Zentra-Anruf",
	},
	language.Spanish: {
		msgCallLinkDescription: "Usa este enlace para unirte a una llamada de Zentra",
		msgDefaultCallTitle:    "Llamada de Zentra",
	},
	language.French: {
		msgCallLinkDescription: "Utilisez ce lien pour rejoindre un appel Zentra",
		msgDefaultCallTitle:    "Appel Zentra",
	},
	language.BrazilianPortuguese: {
		msgCallLinkDescription: "Use este link para entrar em uma chamada do Zentra",
		msgDefaultCallTitle:    "Chamada do Zentra",
	},
}

var (
	stringCatalog = buildCatalog()

	// English first: the matcher falls back to the first entry.
	supportedLanguages = []language.Tag{
		language.English,
		language.German,
		language.Spanish,
		language.French,
		language.BrazilianPortuguese,
	}
	languageMatcher = language.NewMatcher(supportedLanguages)
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, messages := range translations {
		for key, msg := range messages {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Localizer supplies the fixed strings a preview may carry.
type Localizer interface {
	CallLinkDescription() string
	DefaultCallTitle() string
}

// Strings is a Localizer backed by the built-in catalog.
type Strings struct {
	tag     language.Tag
	printer *message.Printer
}

// NewStrings picks the closest supported language for locale, an IETF tag or an
// Accept-Language value. Unknown locales get English.
func NewStrings(locale string) *Strings {
	tag := language.English
	if desired, _, err := language.ParseAcceptLanguage(locale); err == nil && len(desired) > 0 {
		if _, idx, confidence := languageMatcher.Match(desired...); confidence != language.No {
			tag = supportedLanguages[idx]
		}
	}
	return &Strings{tag: tag, printer: message.NewPrinter(tag, message.Catalog(stringCatalog))}
}

func (s *Strings) Language() language.Tag {
	return s.tag
}

func (s *Strings) CallLinkDescription() string {
	return s.printer.Sprintf(msgCallLinkDescription)
}

func (s *Strings) DefaultCallTitle() string {
	return s.printer.Sprintf(msgDefaultCallTitle)
}
