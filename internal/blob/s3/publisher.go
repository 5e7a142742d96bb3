package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/quantfable/oracle/internal/domain"
)

// Publisher uploads pipeline artifacts to object storage under a
// date-stamped prefix, plus stable "latest" keys that downstream consumers
// can poll without listing the bucket.
//
// Key schema:
//
//	oracle/2026/08/26/timeline.json
//	oracle/2026/08/26/narrative.json
//	oracle/2026/08/26/markets_raw.json
//	oracle/latest/timeline.json
//	oracle/latest/narrative.json
type Publisher struct {
	writer domain.BlobWriter

	// now is swappable in tests.
	now func() time.Time
}

// NewPublisher creates a Publisher that uploads through the given writer.
func NewPublisher(writer domain.BlobWriter) *Publisher {
	return &Publisher{
		writer: writer,
		now:    time.Now,
	}
}

func (p *Publisher) datedKey(name string) string {
	t := p.now().UTC()
	return fmt.Sprintf("oracle/%04d/%02d/%02d/%s", t.Year(), t.Month(), t.Day(), name)
}

func (p *Publisher) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal %s: %w", key, err)
	}
	if err := p.writer.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return err
	}
	return nil
}

// PublishTimeline uploads the timeline snapshot to the dated prefix and the
// latest key.
func (p *Publisher) PublishTimeline(ctx context.Context, t domain.Timeline) error {
	if err := p.putJSON(ctx, p.datedKey("timeline.json"), t); err != nil {
		return err
	}
	return p.putJSON(ctx, "oracle/latest/timeline.json", t)
}

// PublishNarrative uploads the narrative to the dated prefix and the latest
// key.
func (p *Publisher) PublishNarrative(ctx context.Context, n domain.Narrative) error {
	if err := p.putJSON(ctx, p.datedKey("narrative.json"), n); err != nil {
		return err
	}
	return p.putJSON(ctx, "oracle/latest/narrative.json", n)
}

// PublishRawMarkets uploads the raw market payload from one fetch pass for
// later replay and debugging. The payload is whatever the fetcher returned,
// serialized as a JSON array.
func (p *Publisher) PublishRawMarkets(ctx context.Context, markets any) error {
	data, err := json.Marshal(markets)
	if err != nil {
		return fmt.Errorf("s3blob: marshal raw markets: %w", err)
	}

	key := p.datedKey("markets_raw.json")

	// Hand large dumps to the multipart uploader when the writer supports it.
	if mp, ok := p.writer.(multipartPutter); ok && int64(len(data)) > minPartSize {
		return mp.PutMultipart(ctx, key, bytes.NewReader(data), minPartSize)
	}

	return p.writer.Put(ctx, key, bytes.NewReader(data), "application/json")
}

// multipartPutter is satisfied by *Writer.
type multipartPutter interface {
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}
