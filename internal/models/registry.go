// Package models управляет моделями распознавания речи Vosk.
package models

// ModelInfo информация о модели.
type ModelInfo struct {
	ID       string // Уникальный идентификатор: "vosk-en-small"
	Name     string // Отображаемое имя: "English Small"
	Language string // Язык модели: "en", "ru"
	Dirname  string // Имя директории после распаковки
	URL      string // URL архива
	Size     int64  // Размер архива в байтах (для прогресса)
}

// Registry все доступные модели.
var Registry = []ModelInfo{
	{
		ID:       "vosk-en-small",
		Name:     "English Small",
		Language: "en",
		Dirname:  "vosk-model-small-en-us-0.15",
		URL:      "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
		Size:     40 * 1024 * 1024,
	},
	{
		ID:       "vosk-en",
		Name:     "English Large",
		Language: "en",
		Dirname:  "vosk-model-en-us-0.22",
		URL:      "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22.zip",
		Size:     1800 * 1024 * 1024,
	},
	{
		ID:       "vosk-ru-small",
		Name:     "Russian Small",
		Language: "ru",
		Dirname:  "vosk-model-small-ru-0.22",
		URL:      "https://alphacephei.com/vosk/models/vosk-model-small-ru-0.22.zip",
		Size:     45 * 1024 * 1024,
	},
	{
		ID:       "vosk-ru",
		Name:     "Russian Large",
		Language: "ru",
		Dirname:  "vosk-model-ru-0.42",
		URL:      "https://alphacephei.com/vosk/models/vosk-model-ru-0.42.zip",
		Size:     1800 * 1024 * 1024,
	},
}

// DefaultModelID модель по умолчанию.
func DefaultModelID() string {
	return "vosk-en-small"
}

// GetModel возвращает модель по ID.
func GetModel(id string) (ModelInfo, bool) {
	for _, m := range Registry {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// ByLanguage возвращает модели для языка.
func ByLanguage(lang string) []ModelInfo {
	var result []ModelInfo
	for _, m := range Registry {
		if m.Language == lang {
			result = append(result, m)
		}
	}
	return result
}
