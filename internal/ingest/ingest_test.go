package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dustforce-relay/internal/shared/logger"
)

type fakePublisher struct {
	mu      sync.Mutex
	records [][]byte
}

func (p *fakePublisher) Publish(_ context.Context, record []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := append([]byte(nil), record...)
	p.records = append(p.records, cp)
	return nil
}

func (p *fakePublisher) snapshot() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.records))
	copy(out, p.records)
	return out
}

func TestIngester_FramingRoundTrip_SplitAcrossChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		// A record split across two writes, followed by a heartbeat and
		// one more complete record -- exercises the tail-holdover logic.
		fmt.Fprint(w, `{"user":1,"level":"a.dust"`)
		flusher.Flush()
		fmt.Fprintf(w, `,"time":1000}%c`, recordSeparator)
		flusher.Flush()
		fmt.Fprintf(w, "%c", recordSeparator) // heartbeat
		fmt.Fprintf(w, `{"user":2,"level":"b.dust","time":2000}%c`, recordSeparator)
		flusher.Flush()
	}))
	defer srv.Close()

	pub := &fakePublisher{}
	l := logger.New("error", false)
	ing := New(srv.URL, pub, l)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	published, err := ing.connectAndRead(ctx)
	require.NoError(t, err)
	assert.True(t, published)

	records := pub.snapshot()
	require.Len(t, records, 2)
	assert.Contains(t, string(records[0]), `"level":"a.dust"`)
	assert.Contains(t, string(records[1]), `"level":"b.dust"`)
}

func TestIngester_DropsUnparseableRecordWithoutCrashing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "not json%c", recordSeparator)
		fmt.Fprintf(w, `{"user":1,"level":"a.dust","time":1000}%c`, recordSeparator)
	}))
	defer srv.Close()

	pub := &fakePublisher{}
	l := logger.New("error", false)
	ing := New(srv.URL, pub, l)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	published, err := ing.connectAndRead(ctx)
	require.NoError(t, err)
	assert.True(t, published)
	assert.Len(t, pub.snapshot(), 1)
}

func TestIngester_Run_PublishesAndReturnsOnContextDone(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			fmt.Fprintf(w, `{"user":1,"level":"a.dust","time":1000}%c`, recordSeparator)
			return
		}
		// second connection: hang until ctx cancellation via client disconnect
		<-r.Context().Done()
	}))
	defer srv.Close()

	pub := &fakePublisher{}
	l := logger.New("error", false)
	ing := New(srv.URL, pub, l)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	ing.Run(ctx)

	assert.GreaterOrEqual(t, len(pub.snapshot()), 1)
}
