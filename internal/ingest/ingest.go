// Package ingest implements the Event Ingester (component A): it pulls
// the upstream record-separator-framed event stream over an
// indefinitely-read HTTP GET, parses records, and republishes each
// successfully-parsed record verbatim on the internal bus.
package ingest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"dustforce-relay/internal/bus"
	"dustforce-relay/internal/module/event"
	"dustforce-relay/internal/shared/logger"
)

// recordSeparator is the ASCII record-separator byte (0x1E) upstream
// records are split on.
const recordSeparator = 0x1E

const (
	initialBackoff = 1 * time.Second
	readChunkSize  = 4096
)

// Ingester runs the long-lived upstream stream read.
type Ingester struct {
	url        string
	httpClient *http.Client
	publisher  bus.Publisher
	logger     *logger.Logger
}

// New creates an Ingester pulling from url and publishing parsed records
// on pub. The HTTP client has no timeout: the read is meant to run
// forever, cancelled only through ctx.
func New(url string, pub bus.Publisher, l *logger.Logger) *Ingester {
	return &Ingester{
		url:        url,
		httpClient: &http.Client{Timeout: 0},
		publisher:  pub,
		logger:     l,
	}
}

// Run connects, reads, and reconnects with exponential backoff until ctx
// is done. It never returns an error: every failure is logged and
// recovered locally, per the ingester's "never crash" contract.
func (ing *Ingester) Run(ctx context.Context) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		publishedAny, err := ing.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}

		// A connection that published at least one event resets the
		// backoff to its initial value; the reconnect sleep itself happens
		// after every disconnect regardless.
		if publishedAny {
			backoff = initialBackoff
		}
		if err != nil {
			ing.logger.Warnf(ctx, "event stream error, reconnecting in %s: %v", backoff, err)
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}

		if !publishedAny {
			backoff *= 2
		}
	}
}

// connectAndRead opens one HTTP GET to the event stream and reads until
// it ends, errors, or ctx is cancelled. It returns whether at least one
// event was successfully published during this connection, used to reset
// the backoff per the "Backoff reset" law.
func (ing *Ingester) connectAndRead(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ing.url, nil)
	if err != nil {
		return false, err
	}

	resp, err := ing.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, httpStatusError(resp.StatusCode)
	}

	return ing.readFrames(ctx, resp.Body)
}

type httpStatusError int

func (e httpStatusError) Error() string {
	return "unexpected status code"
}

// readFrames reads chunks from r, splits on recordSeparator, parses and
// publishes each non-empty record. An empty record is a heartbeat and is
// discarded. The tail after the last separator in a chunk is held over
// and prefixed to the next chunk, so a record split across chunk
// boundaries is assembled correctly -- the "Event framing round-trip"
// law.
func (ing *Ingester) readFrames(ctx context.Context, r io.Reader) (bool, error) {
	var tail []byte
	buf := make([]byte, readChunkSize)
	publishedAny := false

	for {
		if ctx.Err() != nil {
			return publishedAny, nil
		}

		n, err := r.Read(buf)
		if n > 0 {
			tail = append(tail, buf[:n]...)

			for {
				idx := bytes.IndexByte(tail, recordSeparator)
				if idx < 0 {
					break
				}
				record := tail[:idx]
				tail = tail[idx+1:]

				if len(record) == 0 {
					continue // heartbeat
				}

				if ing.publishRecord(ctx, record) {
					publishedAny = true
				}
			}
		}

		if err != nil {
			if err == io.EOF {
				return publishedAny, nil
			}
			return publishedAny, err
		}
	}
}

// publishRecord parses and republishes one non-empty record. Parse
// failure is logged and the record dropped -- no crash, no retry.
func (ing *Ingester) publishRecord(ctx context.Context, record []byte) bool {
	parsed, err := event.Parse(record)
	if err != nil {
		ing.logger.Warnf(ctx, "dropping unparseable event record: %v", err)
		return false
	}

	if err := ing.publisher.Publish(ctx, parsed.Raw()); err != nil {
		ing.logger.Warnf(ctx, "failed to publish event: %v", err)
		return false
	}
	return true
}
