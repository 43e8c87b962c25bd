package log_test

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/crdview/log"
)

func drain(sub *log.Subscription) []string {
	var got []string

	for {
		select {
		case b, ok := <-sub.C():
			if !ok {
				return got
			}

			got = append(got, string(b))
		default:
			return got
		}
	}
}

func TestPublisherBuffer(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		opts   []log.PublisherOption
		writes []string
		want   []string
	}{
		"default keeps everything": {
			writes: []string{"a", "b", "c"},
			want:   []string{"a", "b", "c"},
		},
		"full buffer drops oldest": {
			opts:   []log.PublisherOption{log.WithBufferSize(2)},
			writes: []string{"a", "b", "c", "d"},
			want:   []string{"c", "d"},
		},
		"size raised to one": {
			opts:   []log.PublisherOption{log.WithBufferSize(0)},
			writes: []string{"a", "b"},
			want:   []string{"b"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			pub := log.NewPublisher(tc.opts...)
			sub := pub.Subscribe()

			for _, w := range tc.writes {
				n, err := pub.Write([]byte(w))
				require.NoError(t, err)
				assert.Equal(t, len(w), n)
			}

			assert.Equal(t, tc.want, drain(sub))
		})
	}
}

func TestPublisherFanOut(t *testing.T) {
	t.Parallel()

	pub := log.NewPublisher()
	a, b := pub.Subscribe(), pub.Subscribe()

	buf := []byte("reloading")
	_, err := pub.Write(buf)
	require.NoError(t, err)

	buf[0] = 'X'

	assert.Equal(t, []string{"reloading"}, drain(a))
	assert.Equal(t, []string{"reloading"}, drain(b))
}

func TestSubscriptionClose(t *testing.T) {
	t.Parallel()

	pub := log.NewPublisher()
	closed, open := pub.Subscribe(), pub.Subscribe()

	closed.Close()
	closed.Close()

	_, err := pub.Write([]byte("entry"))
	require.NoError(t, err)

	_, ok := <-closed.C()
	assert.False(t, ok)
	assert.Equal(t, []string{"entry"}, drain(open))
}

func TestPublisherClose(t *testing.T) {
	t.Parallel()

	pub := log.NewPublisher()
	sub := pub.Subscribe()

	_, err := pub.Write([]byte("before"))
	require.NoError(t, err)

	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close())

	n, err := pub.Write([]byte("after"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assert.Equal(t, []string{"before"}, drain(sub), "buffered entries survive close")

	late := pub.Subscribe()
	_, ok := <-late.C()
	assert.False(t, ok)

	sub.Close()
}

func TestPublisherConcurrentWrites(t *testing.T) {
	t.Parallel()

	pub := log.NewPublisher(log.WithBufferSize(1000))
	sub := pub.Subscribe()

	var wg sync.WaitGroup

	for i := range 10 {
		wg.Go(func() {
			for j := range 50 {
				fmt.Fprintf(pub, "%d-%d", i, j)
			}
		})
	}

	wg.Wait()

	assert.Len(t, drain(sub), 500)
}

func TestPublisherAsHandlerOutput(t *testing.T) {
	t.Parallel()

	pub := log.NewPublisher()
	sub := pub.Subscribe()

	logger := slog.New(log.NewHandler(pub, log.LevelInfo, log.FormatJSON))
	logger.Info("loaded definitions", slog.String("source", "crds.yaml"))

	e, err := log.ParseEntry(<-sub.C())
	require.NoError(t, err)
	assert.Equal(t, "INFO loaded definitions source=crds.yaml", e.String())
}
