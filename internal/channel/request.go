// Package channel предоставляет почтовый ящик запросов между фронтендом и движком.
//
// Управляющие команды (Cancel, SetVoice, ...) всегда обслуживаются раньше
// запросов на запуск задачи, поэтому отмена не может застрять за очередью работы.
package channel

// Request - запрос от фронтенда к движку. Каждый запрос потребляется ровно один раз.
type Request interface {
	request()
}

// StartJob запускает цикл синтез -> воспроизведение -> распознавание.
type StartJob struct {
	Text       string
	Iterations int
}

// SetVoice меняет голос синтеза.
type SetVoice struct {
	Voice string
}

// EnableAudio включает/выключает воспроизведение.
type EnableAudio struct {
	Enable bool
}

// Cancel отменяет текущую задачу и всё, что стоит за ней в обычной очереди.
type Cancel struct{}

// Shutdown завершает цикл движка.
type Shutdown struct{}

// Save сохраняет накопленные сэмплы последней задачи.
type Save struct {
	Path string
}

// StartRecording начинает запись с микрофона.
type StartRecording struct{}

// EndRecording останавливает запись с микрофона.
type EndRecording struct{}

func (StartJob) request()       {}
func (SetVoice) request()       {}
func (EnableAudio) request()    {}
func (Cancel) request()         {}
func (Shutdown) request()       {}
func (Save) request()           {}
func (StartRecording) request() {}
func (EndRecording) request()   {}

// IsPriority возвращает true для управляющих команд.
// Только StartJob попадает в обычную очередь.
func IsPriority(req Request) bool {
	_, regular := req.(StartJob)
	return !regular
}

// Kind возвращает короткое имя запроса для логов и метрик.
func Kind(req Request) string {
	switch req.(type) {
	case StartJob:
		return "start_job"
	case SetVoice:
		return "set_voice"
	case EnableAudio:
		return "enable_audio"
	case Cancel:
		return "cancel"
	case Shutdown:
		return "shutdown"
	case Save:
		return "save"
	case StartRecording:
		return "start_recording"
	case EndRecording:
		return "end_recording"
	default:
		return "unknown"
	}
}
