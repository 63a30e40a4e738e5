package channel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRecv_PriorityBeforeRegular(t *testing.T) {
	tx, rx := New()

	require.NoError(t, tx.Send(StartJob{Text: "a", Iterations: 1}))
	require.NoError(t, tx.Send(SetVoice{Voice: "kal"}))
	require.NoError(t, tx.Send(StartJob{Text: "b", Iterations: 1}))
	require.NoError(t, tx.Send(EnableAudio{Enable: true}))

	var got []Request
	for {
		req, ok := rx.TryRecv()
		if !ok {
			break
		}
		got = append(got, req)
	}

	assert.Equal(t, []Request{
		SetVoice{Voice: "kal"},
		EnableAudio{Enable: true},
		StartJob{Text: "a", Iterations: 1},
		StartJob{Text: "b", Iterations: 1},
	}, got)
}

func TestTryRecv_Empty(t *testing.T) {
	_, rx := New()

	req, ok := rx.TryRecv()
	assert.False(t, ok)
	assert.Nil(t, req)
}

func TestCancel_ObservedFirstAndReportsDiscard(t *testing.T) {
	tx, rx := New()

	require.NoError(t, tx.Send(Cancel{}))
	for i := 0; i < 10; i++ {
		require.NoError(t, tx.Send(StartJob{Text: "x", Iterations: 1}))
	}

	req, ok := rx.Recv()
	require.True(t, ok)
	assert.Equal(t, Cancel{}, req)

	// Метка стоит перед десятью задачами, поэтому ничего не выброшено
	assert.False(t, rx.ExecuteCancel())
	assert.Equal(t, 10, rx.Len())
}

func TestCancel_DiscardsQueuedJobs(t *testing.T) {
	tx, rx := New()

	for i := 0; i < 10; i++ {
		require.NoError(t, tx.Send(StartJob{Text: "x", Iterations: 1}))
	}
	require.NoError(t, tx.Send(Cancel{}))
	require.NoError(t, tx.Send(StartJob{Text: "after", Iterations: 1}))

	req, ok := rx.Recv()
	require.True(t, ok)
	assert.Equal(t, Cancel{}, req)
	assert.True(t, rx.ExecuteCancel())

	req, ok = rx.TryRecv()
	require.True(t, ok)
	assert.Equal(t, StartJob{Text: "after", Iterations: 1}, req)

	_, ok = rx.TryRecv()
	assert.False(t, ok)
}

func TestCancelPending(t *testing.T) {
	tx, rx := New()
	assert.False(t, rx.CancelPending())

	require.NoError(t, tx.Send(SetVoice{Voice: "slt"}))
	assert.False(t, rx.CancelPending())

	require.NoError(t, tx.Send(Cancel{}))
	assert.True(t, rx.CancelPending())
}

func TestStrayMarkerIsSkipped(t *testing.T) {
	tx, rx := New()

	require.NoError(t, tx.Send(Cancel{}))
	require.NoError(t, tx.Send(StartJob{Text: "x", Iterations: 1}))

	// Получатель забирает Cancel, но не выполняет отмену
	req, ok := rx.TryRecv()
	require.True(t, ok)
	assert.Equal(t, Cancel{}, req)

	req, ok = rx.TryRecv()
	require.True(t, ok)
	assert.Equal(t, StartJob{Text: "x", Iterations: 1}, req)
}

func TestRecv_BlocksUntilSend(t *testing.T) {
	tx, rx := New()

	got := make(chan Request, 1)
	go func() {
		req, _ := rx.Recv()
		got <- req
	}()

	select {
	case <-got:
		t.Fatal("Recv returned before Send")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, tx.Send(Shutdown{}))

	select {
	case req := <-got:
		assert.Equal(t, Shutdown{}, req)
	case <-time.After(time.Second):
		t.Fatal("Recv did not wake up")
	}
}

func TestClose(t *testing.T) {
	tx, rx := New()
	require.NoError(t, tx.Send(Save{Path: "out.wav"}))

	rx.Close()
	assert.ErrorIs(t, tx.Send(Cancel{}), ErrReceiverGone)

	req, ok := rx.Recv()
	require.True(t, ok)
	assert.Equal(t, Save{Path: "out.wav"}, req)

	_, ok = rx.Recv()
	assert.False(t, ok)
}

func TestClose_WakesBlockedRecv(t *testing.T) {
	_, rx := New()

	done := make(chan bool, 1)
	go func() {
		_, ok := rx.Recv()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	rx.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Recv did not return after Close")
	}
}

func TestSend_ConcurrentSendersKeepPerSenderOrder(t *testing.T) {
	tx, rx := New()

	const senders, perSender = 8, 50
	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				_ = tx.Send(StartJob{Text: string(rune('a' + s)), Iterations: i + 1})
			}
		}(s)
	}
	wg.Wait()

	last := make(map[string]int)
	count := 0
	for {
		req, ok := rx.TryRecv()
		if !ok {
			break
		}
		job := req.(StartJob)
		assert.Greater(t, job.Iterations, last[job.Text])
		last[job.Text] = job.Iterations
		count++
	}
	assert.Equal(t, senders*perSender, count)
}

func TestKindAndPriority(t *testing.T) {
	tests := []struct {
		req      Request
		kind     string
		priority bool
	}{
		{StartJob{}, "start_job", false},
		{SetVoice{}, "set_voice", true},
		{EnableAudio{}, "enable_audio", true},
		{Cancel{}, "cancel", true},
		{Shutdown{}, "shutdown", true},
		{Save{}, "save", true},
		{StartRecording{}, "start_recording", true},
		{EndRecording{}, "end_recording", true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.kind, Kind(tt.req))
			assert.Equal(t, tt.priority, IsPriority(tt.req))
		})
	}
}

func genRequest() *rapid.Generator[Request] {
	return rapid.OneOf(
		rapid.Custom(func(t *rapid.T) Request {
			return StartJob{Text: rapid.StringMatching(`[a-z]{1,5}`).Draw(t, "text"), Iterations: rapid.IntRange(1, 5).Draw(t, "iters")}
		}),
		rapid.Just[Request](Cancel{}),
		rapid.Just[Request](SetVoice{Voice: "kal"}),
		rapid.Just[Request](EnableAudio{Enable: true}),
		rapid.Just[Request](StartRecording{}),
	)
}

// Приоритетные запросы всегда выходят раньше обычных, порядок внутри классов сохраняется.
func TestProperty_PriorityThenFIFO(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tx, rx := New()
		reqs := rapid.SliceOf(genRequest()).Draw(rt, "requests")

		var wantPriority, wantRegular []Request
		for _, req := range reqs {
			require.NoError(rt, tx.Send(req))
			if IsPriority(req) {
				wantPriority = append(wantPriority, req)
			} else {
				wantRegular = append(wantRegular, req)
			}
		}

		var got []Request
		for {
			req, ok := rx.TryRecv()
			if !ok {
				break
			}
			got = append(got, req)
		}

		want := append(wantPriority, wantRegular...)
		if len(want) == 0 {
			want = nil
		}
		assert.Equal(rt, want, got)
	})
}

// После Cancel и ExecuteCancel в обычной очереди остаётся только то, что было отправлено после Cancel.
func TestProperty_CancelDiscardsBacklog(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tx, rx := New()
		before := rapid.IntRange(0, 20).Draw(rt, "before")
		after := rapid.IntRange(0, 20).Draw(rt, "after")

		for i := 0; i < before; i++ {
			require.NoError(rt, tx.Send(StartJob{Text: "before", Iterations: 1}))
		}
		require.NoError(rt, tx.Send(Cancel{}))
		for i := 0; i < after; i++ {
			require.NoError(rt, tx.Send(StartJob{Text: "after", Iterations: 1}))
		}

		req, ok := rx.Recv()
		require.True(rt, ok)
		require.Equal(rt, Cancel{}, req)
		assert.Equal(rt, before > 0, rx.ExecuteCancel())

		n := 0
		for {
			req, ok := rx.TryRecv()
			if !ok {
				break
			}
			assert.Equal(rt, "after", req.(StartJob).Text)
			n++
		}
		assert.Equal(rt, after, n)
	})
}
