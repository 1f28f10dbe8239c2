package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type reply struct {
	text string
	err  error
}

type fakeVision struct {
	mu      sync.Mutex
	replies map[string]reply
	calls   []string
	mimes   []string
}

func (f *fakeVision) ExtractFromImage(_ context.Context, model string, _ []byte, mimeType, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, model)
	f.mimes = append(f.mimes, mimeType)
	r, ok := f.replies[model]
	if !ok {
		return "", &BackendError{Kind: KindNotFound, Model: model, Err: errors.New("404")}
	}
	return r.text, r.err
}

type fakeText struct {
	replies map[string]reply
	calls   []string
	prompts []string
}

func (f *fakeText) ParseText(_ context.Context, model, prompt string) (string, error) {
	f.calls = append(f.calls, model)
	f.prompts = append(f.prompts, prompt)
	r, ok := f.replies[model]
	if !ok {
		return "", &BackendError{Kind: KindNotFound, Model: model, Err: errors.New("404")}
	}
	return r.text, r.err
}

type fakeOCR struct {
	text  string
	err   error
	calls int
}

func (f *fakeOCR) Recognize(context.Context, []byte, string) (string, error) {
	f.calls++
	return f.text, f.err
}

var testModels = []string{"m1", "m2", "m3"}

func allEnabled() Config {
	return Config{VisionEnabled: true, TextEnabled: true, OCREnabled: true, Models: testModels}
}

const cardText = "Roop Varsha Jewellery\nCall +91 98295 50499\nMobile: 9829550499\nAlt 9829550499\nsales@roopvarsha.in"

func TestExtract_SentinelWhenNothingConfigured(t *testing.T) {
	e := New(Config{Models: testModels}, Backends{}, discard())
	rec, err := e.ExtractBytes(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, IsSentinel(rec))
	assert.Equal(t, FailureSentinel, rec.RawText)
	assert.NotNil(t, rec.Phones)
}

func TestExtract_SentinelWhenOCRFails(t *testing.T) {
	ocr := &fakeOCR{err: errors.New("ocr.space: 500")}
	e := New(Config{OCREnabled: true, Models: testModels}, Backends{OCR: ocr}, discard())

	rec, err := e.ExtractBytes(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, IsSentinel(rec))
	assert.Equal(t, 1, ocr.calls)
}

func TestExtract_VisionSuccess(t *testing.T) {
	vision := &fakeVision{replies: map[string]reply{
		"m2": {text: "```json\n{\"Company\":\"रूप वर्षा ज्वैलरी\",\"name\":null,\"phones\":[\"+91 98295 50499\"],\"email\":\"\",\"address\":\"MI Road, Jaipur\",\"rawText\":\"" +
			strings.ReplaceAll(cardText, "\n", `\n`) + "\"}\n```"},
	}}
	ocr := &fakeOCR{text: "should not be used"}
	text := &fakeText{}
	e := New(allEnabled(), Backends{Vision: vision, Text: text, OCR: ocr}, discard())

	rec, err := e.ExtractBytes(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "Roop Varsha Jvailari", rec.Company)
	assert.Equal(t, "", rec.PersonName)
	assert.Equal(t, []string{"+91 98295 50499"}, rec.Phones)
	assert.Equal(t, "sales@roopvarsha.in", rec.Email, "email is backfilled from raw text")
	assert.Equal(t, "MI Road, Jaipur", rec.Address)
	assert.Equal(t, cardText, rec.RawText)

	assert.Equal(t, []string{"m1", "m2"}, vision.calls)
	assert.Equal(t, 0, ocr.calls)
	assert.Empty(t, text.calls)
}

func TestExtract_VisionTransportErrorFallsBackToOCR(t *testing.T) {
	reset := reply{err: errors.New("read tcp 192.168.1.5:54031->142.250.183.10:443: read: connection reset by peer")}
	vision := &fakeVision{replies: map[string]reply{"m1": reset, "m2": reset, "m3": reset}}
	ocr := &fakeOCR{text: cardText}
	e := New(Config{VisionEnabled: true, OCREnabled: true, Models: testModels}, Backends{Vision: vision, OCR: ocr}, discard())

	rec, err := e.ExtractBytes(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Len(t, vision.calls, 3)
	assert.Equal(t, 1, ocr.calls)
	assert.False(t, IsSentinel(rec))
	assert.Equal(t, "sales@roopvarsha.in", rec.Email)
}

func TestExtract_VisionQuotaFallsBackToOCRAndText(t *testing.T) {
	quota := reply{err: errors.New("429 RESOURCE_EXHAUSTED: quota exceeded")}
	vision := &fakeVision{replies: map[string]reply{"m1": quota, "m2": quota, "m3": quota}}
	ocr := &fakeOCR{text: "  " + cardText + "\n"}
	text := &fakeText{replies: map[string]reply{
		"m1": {text: `{"company":"Roop Varsha Jewellery","phones":"+91 98295 50499, 0141-2370000"}`},
	}}
	e := New(allEnabled(), Backends{Vision: vision, Text: text, OCR: ocr}, discard())

	rec, err := e.ExtractBytes(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)

	assert.Len(t, vision.calls, 3)
	assert.Equal(t, 1, ocr.calls)
	require.Len(t, text.prompts, 1)
	assert.Contains(t, text.prompts[0], "sales@roopvarsha.in")

	assert.Equal(t, "Roop Varsha Jewellery", rec.Company)
	assert.Equal(t, []string{"+91 98295 50499", "0141-2370000"}, rec.Phones)
	assert.Equal(t, "sales@roopvarsha.in", rec.Email)
	assert.Equal(t, cardText, rec.RawText)
	assert.False(t, IsSentinel(rec))
}

func TestExtract_VisionInvalidKeyIsFatal(t *testing.T) {
	vision := &fakeVision{replies: map[string]reply{
		"m1": {err: errors.New("400 INVALID_ARGUMENT: API key not valid. Please pass a valid API key.")},
	}}
	ocr := &fakeOCR{text: cardText}
	e := New(allEnabled(), Backends{Vision: vision, OCR: ocr}, discard())

	_, err := e.ExtractBytes(context.Background(), []byte("img"), "image/jpeg")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatalBackend)
	assert.Equal(t, []string{"m1"}, vision.calls)
	assert.Equal(t, 0, ocr.calls)
}

func TestExtract_TextInvalidKeyFallsToRegex(t *testing.T) {
	ocr := &fakeOCR{text: cardText}
	text := &fakeText{replies: map[string]reply{
		"m1": {err: &BackendError{Kind: KindInvalidCredential, Err: errors.New("bad key")}},
	}}
	cfg := Config{TextEnabled: true, OCREnabled: true, Models: testModels}
	e := New(cfg, Backends{Text: text, OCR: ocr}, discard())

	rec, err := e.ExtractBytes(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, []string{"m1"}, text.calls)
	assert.Equal(t, "", rec.Company)
	assert.Equal(t, []string{"+91 98295 50499", "9829550499"}, rec.Phones)
	assert.Equal(t, "sales@roopvarsha.in", rec.Email)
	assert.Equal(t, cardText, rec.RawText)
}

func TestExtract_UnparseableVisionAnswerUsesOCR(t *testing.T) {
	vision := &fakeVision{replies: map[string]reply{"m1": {text: "I could not read this card, sorry."}}}
	ocr := &fakeOCR{text: "Acme\n+1 555-123-4567"}
	e := New(Config{VisionEnabled: true, OCREnabled: true, Models: testModels}, Backends{Vision: vision, OCR: ocr}, discard())

	rec, err := e.ExtractBytes(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, 1, ocr.calls)
	assert.Equal(t, []string{"555-123-4567"}, rec.Phones)
}

func TestExtract_EmptyOCRTextIsNotFailure(t *testing.T) {
	e := New(Config{OCREnabled: true, Models: testModels}, Backends{OCR: &fakeOCR{text: "   "}}, discard())

	rec, err := e.ExtractBytes(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.False(t, IsSentinel(rec))
	assert.Empty(t, rec.Phones)
	assert.Equal(t, "", rec.RawText)
}

func TestExtract_DisabledBackendIsSkipped(t *testing.T) {
	vision := &fakeVision{}
	e := New(Config{OCREnabled: true, Models: testModels}, Backends{Vision: vision, OCR: &fakeOCR{text: cardText}}, discard())

	_, err := e.ExtractBytes(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Empty(t, vision.calls)
}

type fakePreparer struct {
	out      string
	cleaned  bool
	prepared []string
}

func (p *fakePreparer) Prepare(_ context.Context, path string) (string, func(), error) {
	p.prepared = append(p.prepared, path)
	return p.out, func() { p.cleaned = true }, nil
}

func TestExtract_FromPath(t *testing.T) {
	dir := t.TempDir()
	heic := filepath.Join(dir, "card.heic")
	png := filepath.Join(dir, "card.png")
	require.NoError(t, os.WriteFile(heic, []byte("heic"), 0o644))
	require.NoError(t, os.WriteFile(png, []byte("png"), 0o644))

	vision := &fakeVision{replies: map[string]reply{"m1": {text: `{"company":"Acme","phones":[]}`}}}
	prep := &fakePreparer{out: png}
	e := New(Config{VisionEnabled: true, Models: testModels}, Backends{Vision: vision}, discard(), WithPreparer(prep))

	rec, err := e.Extract(context.Background(), heic)
	require.NoError(t, err)
	assert.Equal(t, "Acme", rec.Company)
	assert.Equal(t, []string{heic}, prep.prepared)
	assert.True(t, prep.cleaned)
	assert.Equal(t, []string{"image/png"}, vision.mimes)

	_, err = New(Config{}, Backends{}, discard()).Extract(context.Background(), filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)
}

func TestExtract_DefaultModels(t *testing.T) {
	vision := &fakeVision{}
	e := New(Config{VisionEnabled: true}, Backends{Vision: vision}, discard())
	rec, err := e.ExtractBytes(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, IsSentinel(rec))
	assert.Equal(t, DefaultModels, vision.calls)
}

func TestExtract_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.Same(t, m.results, NewMetrics(reg).results)

	e := New(Config{Models: testModels}, Backends{}, discard(), WithMetrics(m))
	_, err := e.ExtractBytes(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.results.WithLabelValues("sentinel")))

	e = New(Config{OCREnabled: true, Models: testModels}, Backends{OCR: &fakeOCR{text: cardText}}, discard(), WithMetrics(m))
	_, err = e.ExtractBytes(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.results.WithLabelValues("regex")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("ocr", "ok")))
}

func TestMergeSides(t *testing.T) {
	front := ContactRecord{Company: "Acme", Phones: []string{"98295 50499"}, RawText: "front"}
	back := ContactRecord{Company: "Other", PersonName: "R. Sharma", Phones: []string{"9829550499", "0141-2370000"}, Email: "a@b.in", RawText: "back"}

	got := MergeSides(front, back)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, "R. Sharma", got.PersonName)
	assert.Equal(t, []string{"98295 50499", "0141-2370000"}, got.Phones)
	assert.Equal(t, "a@b.in", got.Email)
	assert.Equal(t, "front\n\n--- BACK ---\n\nback", got.RawText)

	assert.Equal(t, back, MergeSides(SentinelRecord(), back))
	assert.Equal(t, front, MergeSides(front, SentinelRecord()))
	assert.True(t, IsSentinel(MergeSides(SentinelRecord(), SentinelRecord())))
}
