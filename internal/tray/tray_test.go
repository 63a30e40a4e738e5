package tray

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttsloop/embedded"
	"ttsloop/internal/channel"
	"ttsloop/internal/dialog"
)

type fakeSender struct {
	reqs []channel.Request
	err  error
}

func (f *fakeSender) Send(req channel.Request) error {
	f.reqs = append(f.reqs, req)
	return f.err
}

func newTestTray(tx Sender) (*Tray, *[]string) {
	var shown []string
	tr := New(Options{
		Sender:       tx,
		Voices:       []string{"kal", "slt"},
		Voice:        "kal",
		AudioEnabled: true,
		AskJob: func(lastText string, lastIterations int) (dialog.Job, error) {
			return dialog.Job{Text: "hello " + lastText, Iterations: lastIterations + 1}, nil
		},
		AskSavePath: func(def string) (string, error) {
			return "/tmp/" + def, nil
		},
		ShowError: func(title, message string) {
			shown = append(shown, message)
		},
	})
	return tr, &shown
}

func TestStart(t *testing.T) {
	tx := &fakeSender{}
	tr, _ := newTestTray(tx)

	tr.start()
	tr.start()

	assert.Equal(t, []channel.Request{
		channel.StartJob{Text: "hello ", Iterations: 2},
		channel.StartJob{Text: "hello hello ", Iterations: 3},
	}, tx.reqs)
}

func TestStart_DialogCanceled(t *testing.T) {
	tx := &fakeSender{}
	tr, _ := newTestTray(tx)
	tr.askJob = func(string, int) (dialog.Job, error) { return dialog.Job{}, dialog.ErrCanceled }

	tr.start()
	assert.Empty(t, tx.reqs)
}

func TestSave(t *testing.T) {
	tx := &fakeSender{}
	tr, shown := newTestTray(tx)

	tr.save()
	require.Equal(t, []channel.Request{channel.Save{Path: "/tmp/output.wav"}}, tx.reqs)

	tr.askSavePath = func(string) (string, error) { return "", dialog.ErrCanceled }
	tr.save()
	assert.Len(t, tx.reqs, 1)
	assert.Empty(t, *shown)

	tr.askSavePath = func(string) (string, error) { return "", errors.New("no display") }
	tr.save()
	assert.Equal(t, []string{"no display"}, *shown)
}

func TestToggleRecording(t *testing.T) {
	tx := &fakeSender{}
	tr, _ := newTestTray(tx)

	tr.toggleRecording()
	tr.RecordingChanged(true)
	tr.toggleRecording()

	assert.Equal(t, []channel.Request{channel.StartRecording{}, channel.EndRecording{}}, tx.reqs)
}

func TestToggleAudio(t *testing.T) {
	tx := &fakeSender{}
	tr, _ := newTestTray(tx)

	tr.toggleAudio()
	// Без подтверждения от движка флажок не меняется
	tr.toggleAudio()
	tr.AudioChanged(false)
	tr.toggleAudio()

	assert.Equal(t, []channel.Request{
		channel.EnableAudio{Enable: false},
		channel.EnableAudio{Enable: false},
		channel.EnableAudio{Enable: true},
	}, tx.reqs)
}

func TestAudioChanged_FromOtherFrontend(t *testing.T) {
	tx := &fakeSender{}
	tr, _ := newTestTray(tx)

	// audio off из консоли
	tr.AudioChanged(false)
	tr.toggleAudio()

	assert.Equal(t, []channel.Request{channel.EnableAudio{Enable: true}}, tx.reqs)
}

func TestState(t *testing.T) {
	tr, _ := newTestTray(&fakeSender{})
	assert.Equal(t, StateIdle, tr.State())

	tr.StateChanged(true)
	assert.Equal(t, StateBusy, tr.State())

	tr.RecordingChanged(true)
	assert.Equal(t, StateRecording, tr.State())

	tr.RecordingChanged(false)
	tr.StateChanged(false)
	assert.Equal(t, StateIdle, tr.State())

	assert.Equal(t, embedded.IconBusy, StateBusy.Icon())
	assert.Equal(t, embedded.IconIdle, StateIdle.Icon())
	assert.NotEmpty(t, StateRecording.Icon())
}

func TestSendError(t *testing.T) {
	tr, shown := newTestTray(&fakeSender{err: channel.ErrReceiverGone})
	tr.send(channel.Cancel{})
	assert.Equal(t, []string{channel.ErrReceiverGone.Error()}, *shown)
}
