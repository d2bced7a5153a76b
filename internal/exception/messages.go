package exception

import (
	"golang.org/x/text/language"
)

var supported = []language.Tag{
	language.English, // first entry is the fallback
	language.BrazilianPortuguese,
	language.German,
}

var matcher = language.NewMatcher(supported)

var catalog = map[language.Tag]map[Kind]string{
	language.English: {
		KindValidation: "The document could not be saved because its structure is invalid.",
		KindNotFound:   "The requested post or version does not exist.",
		KindStorage:    "The history store is temporarily unavailable. Please try again.",
		KindConflict:   "Someone else saved this post at the same time.",
		KindInternal:   "Something went wrong.",
	},
	language.BrazilianPortuguese: {
		KindValidation: "O documento não pôde ser salvo porque sua estrutura é inválida.",
		KindNotFound:   "O post ou a versão solicitada não existe.",
		KindStorage:    "O histórico está temporariamente indisponível. Tente novamente.",
		KindConflict:   "Outra pessoa salvou este post ao mesmo tempo.",
		KindInternal:   "Algo deu errado.",
	},
	language.German: {
		KindValidation: "Das Dokument konnte nicht gespeichert werden, weil seine Struktur ungültig ist.",
		KindNotFound:   "Der angeforderte Beitrag oder die Version existiert nicht.",
		KindStorage:    "Der Verlauf ist vorübergehend nicht verfügbar. Bitte erneut versuchen.",
		KindConflict:   "Jemand anderes hat diesen Beitrag gleichzeitig gespeichert.",
		KindInternal:   "Etwas ist schiefgelaufen.",
	},
}

// LocalizedMessage picks a user-facing message for err from an Accept-Language value.
func LocalizedMessage(err error, acceptLanguage string) string {
	tags, _, _ := language.ParseAcceptLanguage(acceptLanguage)
	_, idx, _ := matcher.Match(tags...)
	return catalog[supported[idx]][KindOf(err)]
}
