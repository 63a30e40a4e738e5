package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslationsComplete(t *testing.T) {
	for key := range translations[RU] {
		_, ok := translations[EN][key]
		assert.True(t, ok, "EN misses %s", key)
	}
	for key := range translations[EN] {
		_, ok := translations[RU][key]
		assert.True(t, ok, "RU misses %s", key)
	}
}

func TestT(t *testing.T) {
	defer SetLanguage(GetLanguage())

	SetLanguage(EN)
	assert.Equal(t, "Cancel", T("tray_cancel"))
	assert.Equal(t, "voice: slt", Tf("console_voice", "slt"))
	assert.Equal(t, "missing_key", T("missing_key"))

	SetLanguage("de")
	assert.Equal(t, EN, GetLanguage())

	SetLanguage(RU)
	assert.Equal(t, "Отменить", T("tray_cancel"))
	assert.Equal(t, "English", LanguageName(EN))
}
