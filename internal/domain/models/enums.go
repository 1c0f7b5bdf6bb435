package models

import "fmt"

// Enum values below are the worker wire strings and are stored verbatim in
// the task table, so they are case-sensitive.

// Language is the translation target language.
type Language string

const (
	LanguageCHS Language = "CHS"
	LanguageCHT Language = "CHT"
	LanguageCSY Language = "CSY"
	LanguageNLD Language = "NLD"
	LanguageENG Language = "ENG"
	LanguageFRA Language = "FRA"
	LanguageDEU Language = "DEU"
	LanguageHUN Language = "HUN"
	LanguageITA Language = "ITA"
	LanguageJPN Language = "JPN"
	LanguageKOR Language = "KOR"
	LanguagePLK Language = "PLK"
	LanguagePTB Language = "PTB"
	LanguageROM Language = "ROM"
	LanguageRUS Language = "RUS"
	LanguageESP Language = "ESP"
	LanguageTRK Language = "TRK"
	LanguageUKR Language = "UKR"
	LanguageVIN Language = "VIN"
)

var languages = map[string]Language{
	"CHS": LanguageCHS, "CHT": LanguageCHT, "CSY": LanguageCSY,
	"NLD": LanguageNLD, "ENG": LanguageENG, "FRA": LanguageFRA,
	"DEU": LanguageDEU, "HUN": LanguageHUN, "ITA": LanguageITA,
	"JPN": LanguageJPN, "KOR": LanguageKOR, "PLK": LanguagePLK,
	"PTB": LanguagePTB, "ROM": LanguageROM, "RUS": LanguageRUS,
	"ESP": LanguageESP, "TRK": LanguageTRK, "UKR": LanguageUKR,
	"VIN": LanguageVIN,
}

// ParseLanguage parses a wire language string.
func ParseLanguage(s string) (Language, error) {
	if l, ok := languages[s]; ok {
		return l, nil
	}
	return "", fmt.Errorf("invalid language: %q", s)
}

func (l Language) String() string { return string(l) }

// Detector selects the text detection model.
type Detector string

const (
	DetectorDefault Detector = "default"
	DetectorCTD     Detector = "ctd"
)

// ParseDetector parses a wire detector string.
func ParseDetector(s string) (Detector, error) {
	switch s {
	case "default":
		return DetectorDefault, nil
	case "ctd":
		return DetectorCTD, nil
	}
	return "", fmt.Errorf("invalid detector: %q", s)
}

func (d Detector) String() string { return string(d) }

// Direction is the text rendering direction. DirectionDefault is accepted on
// ingress only; ResolveDirection substitutes the per-language default before
// anything is persisted.
type Direction string

const (
	DirectionDefault    Direction = "default"
	DirectionAuto       Direction = "auto"
	DirectionHorizontal Direction = "h"
	DirectionVertical   Direction = "v"
)

// ParseDirection parses a wire direction string. The long forms "horizontal"
// and "vertical" are accepted on ingress.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "default":
		return DirectionDefault, nil
	case "auto":
		return DirectionAuto, nil
	case "h", "horizontal":
		return DirectionHorizontal, nil
	case "v", "vertical":
		return DirectionVertical, nil
	}
	return "", fmt.Errorf("invalid direction: %q", s)
}

func (d Direction) String() string { return string(d) }

// ResolveDirection replaces DirectionDefault with the conventional direction
// for the target language: auto for CJK scripts, horizontal otherwise.
func ResolveDirection(d Direction, lang Language) Direction {
	if d != DirectionDefault {
		return d
	}
	switch lang {
	case LanguageCHS, LanguageCHT, LanguageJPN, LanguageKOR:
		return DirectionAuto
	default:
		return DirectionHorizontal
	}
}

// Translator selects the translation backend.
type Translator string

const (
	TranslatorYoudao   Translator = "youdao"
	TranslatorBaidu    Translator = "baidu"
	TranslatorGoogle   Translator = "google"
	TranslatorDeepL    Translator = "deepl"
	TranslatorPapago   Translator = "papago"
	TranslatorOffline  Translator = "offline"
	TranslatorNone     Translator = "none"
	TranslatorOriginal Translator = "original"
)

var translators = map[string]Translator{
	"youdao": TranslatorYoudao, "baidu": TranslatorBaidu,
	"google": TranslatorGoogle, "deepl": TranslatorDeepL,
	"papago": TranslatorPapago, "offline": TranslatorOffline,
	"none": TranslatorNone, "original": TranslatorOriginal,
}

// ParseTranslator parses a wire translator string.
func ParseTranslator(s string) (Translator, error) {
	if t, ok := translators[s]; ok {
		return t, nil
	}
	return "", fmt.Errorf("invalid translator: %q", s)
}

func (t Translator) String() string { return string(t) }

// Size is the target output size class.
type Size string

const (
	SizeS Size = "S"
	SizeM Size = "M"
	SizeL Size = "L"
	SizeX Size = "X"
)

// ParseSize parses a wire size string.
func ParseSize(s string) (Size, error) {
	switch s {
	case "S":
		return SizeS, nil
	case "M":
		return SizeM, nil
	case "L":
		return SizeL, nil
	case "X":
		return SizeX, nil
	}
	return "", fmt.Errorf("invalid size: %q", s)
}

func (s Size) String() string { return string(s) }
