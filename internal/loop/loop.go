// Package loop содержит состояние одной задачи цикла синтез -> воспроизведение -> распознавание.
package loop

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Phase - этап цикла.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSynthesize
	PhasePlayback
	PhaseRecognize
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSynthesize:
		return "synthesize"
	case PhasePlayback:
		return "playback"
	case PhaseRecognize:
		return "recognize"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ErrInvalidIterations возвращается Begin при числе итераций меньше 1.
var ErrInvalidIterations = errors.New("число итераций должно быть не меньше 1")

// BusyError - задача уже выполняется. Activity называет, чем занят движок.
type BusyError struct {
	Activity string
}

func (e *BusyError) Error() string {
	return "движок занят: " + e.Activity
}

// Synthesizer превращает текст в сэмплы.
type Synthesizer interface {
	Synthesize(text, voice string) ([]int16, error)
}

// Player воспроизводит сэмплы и возвращается только после окончания.
type Player interface {
	PlayBlocking(samples []int16, sampleRate int) error
}

// Recognizer превращает сэмплы в текст.
type Recognizer interface {
	Transcribe(samples []int16) (string, error)
}

// Deps - внешние зависимости шага.
type Deps struct {
	Synth      Synthesizer
	Player     Player
	Recognizer Recognizer
	SampleRate int
}

// Settings - изменяемые настройки, читаемые при выполнении шага.
type Settings struct {
	Voice        string
	AudioEnabled bool
}

// Event - результат одного шага.
type Event struct {
	// Recognized выставляется после шага Recognize.
	Recognized bool
	Text       string
	// Done означает, что итерации закончились и задача завершена.
	Done bool
}

// State - состояние активной задачи. Принадлежит только движку.
//
// Инвариант: len(Samples) >= LastSegment.
type State struct {
	Phase       Phase
	JobID       uuid.UUID
	Text        string
	Samples     []int16
	LastSegment int
	Remaining   int
	Iteration   int
}

// Active возвращает true, если задача выполняется.
func (s *State) Active() bool {
	return s.Phase != PhaseIdle
}

// Busy описывает активную задачу как причину отказа.
func (s *State) Busy() *BusyError {
	return &BusyError{Activity: fmt.Sprintf("выполняется цикл (этап %s, итерация %d)", s.Phase, s.Iteration)}
}

// Begin начинает новую задачу, полностью заменяя предыдущее состояние.
func (s *State) Begin(text string, iterations int) error {
	if s.Active() {
		return s.Busy()
	}
	if iterations < 1 {
		return ErrInvalidIterations
	}

	*s = State{
		Phase:     PhaseSynthesize,
		JobID:     uuid.New(),
		Text:      text,
		Remaining: iterations,
		Iteration: 1,
	}
	return nil
}

// Abort переводит задачу в Idle. Накопленные сэмплы сохраняются для Save.
func (s *State) Abort() {
	s.Phase = PhaseIdle
}

// Segment возвращает последний синтезированный сегмент.
func (s *State) Segment() []int16 {
	return s.Samples[len(s.Samples)-s.LastSegment:]
}

// Step выполняет ровно один этап. Ошибка прерывает задачу (Phase -> Idle).
func (s *State) Step(d Deps, set Settings) (Event, error) {
	ev, err := s.step(d, set)
	if err != nil {
		s.Abort()
	}
	return ev, err
}

func (s *State) step(d Deps, set Settings) (Event, error) {
	switch s.Phase {
	case PhaseSynthesize:
		seg, err := d.Synth.Synthesize(s.Text, set.Voice)
		if err != nil {
			return Event{}, err
		}
		s.Samples = append(s.Samples, seg...)
		s.LastSegment = len(seg)
		s.Phase = PhasePlayback
		return Event{}, nil

	case PhasePlayback:
		if set.AudioEnabled {
			if err := d.Player.PlayBlocking(s.Segment(), d.SampleRate); err != nil {
				return Event{}, err
			}
		}
		s.Phase = PhaseRecognize
		return Event{}, nil

	case PhaseRecognize:
		text, err := d.Recognizer.Transcribe(s.Segment())
		if err != nil {
			return Event{}, err
		}
		s.Remaining--
		ev := Event{Recognized: true, Text: text}
		if s.Remaining <= 0 {
			s.Phase = PhaseIdle
			ev.Done = true
			return ev, nil
		}
		s.Text = text
		s.Iteration++
		s.Phase = PhaseSynthesize
		return ev, nil

	default:
		return Event{}, nil
	}
}
