package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// Message keys of the public verification API.
const (
	MsgVerifySuccess      = "verify_success"
	MsgVerifyCountSuccess = "verify_count_success"
	MsgVerifyReverified   = "verify_reverified"
	MsgVerifyRebound      = "verify_rebound"
	MsgInvalidOrBound     = "card_invalid_or_bound"
	MsgCardDisabled       = "card_disabled"
	MsgReverifyNotAllowed = "card_reverify_not_allowed"
	MsgCountExhausted     = "card_count_exhausted"
	MsgAPIDisabled        = "api_disabled"
	MsgAPIKeyMissing      = "api_key_missing"
	MsgAPIKeyInvalid      = "api_key_invalid"
	MsgAPIKeyDisabled     = "api_key_disabled"
	MsgAPIKeyValid        = "api_key_valid"
	MsgRateLimited        = "rate_limited"
	MsgSystemError        = "system_error"
	MsgHealthy            = "healthy"
)

type Translator struct {
	translations map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	return newTranslatorFromBytes(data)
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T returns the message for key, formatted with args. Unknown keys are
// returned as-is.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
