package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/productimport/pkg/audit"
	"github.com/ruslano69/productimport/pkg/core/product"
)

type countingObserver struct{ n int }

func (c *countingObserver) ProductImported(*product.Product) { c.n++ }

func okProduct(sku string) *product.Product {
	p := product.NewProduct(sku, product.KindSimple, product.NewReference("Default"), 1)
	p.MarkOk()
	return p
}

func failedProduct(sku, msg string) *product.Product {
	p := product.NewProduct(sku, product.KindSimple, product.NewReference("Default"), 2)
	p.AddError(msg)
	return p
}

func TestReporter_Counts(t *testing.T) {
	var out bytes.Buffer
	obs := &countingObserver{}
	r := NewReporter(zerolog.New(&out), WithObserver(obs))

	r.ProductImported(okProduct("a"))
	r.ProductImported(failedProduct("b", "attribute set not found: X"))
	r.ProductImported(okProduct("c"))

	assert.Equal(t, 2, r.OkCount())
	assert.Equal(t, 1, r.FailedCount())
	assert.False(t, r.HasFatal())
	assert.Equal(t, 3, obs.n)
	assert.Contains(t, out.String(), "attribute set not found: X")
}

func TestReporter_FatalKeepsFirstMessage(t *testing.T) {
	r := NewReporter(zerolog.Nop())
	r.Error("unknown element <category> on line 3")
	r.Error("second")

	s := r.Finish()
	assert.True(t, s.Fatal)
	assert.Equal(t, "unknown element <category> on line 3", s.Error)
	assert.Equal(t, "failed", s.Status())
}

func TestReporter_FinishWritesSummaryAndAudit(t *testing.T) {
	var out, auditOut bytes.Buffer
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := func() time.Time {
		at = at.Add(time.Second)
		return at
	}

	al := audit.NewLogger(audit.LoggerConfig{RunID: "run-7"},
		audit.NewWriterAppender(&auditOut, audit.LevelFull, true))
	r := NewReporter(zerolog.New(&out), WithAudit(al), WithClock(clock))
	r.ProductImported(failedProduct("b", "missing sku"))

	s := r.Finish()
	assert.Equal(t, "run-7", s.RunID)
	assert.Equal(t, time.Second, s.Duration)
	assert.Equal(t, "partial", s.Status())
	assert.Contains(t, out.String(), `"message":"import finished"`)

	lines := strings.Split(strings.TrimSpace(auditOut.String()), "\n")
	require.Len(t, lines, 2)

	var run audit.Entry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &run))
	assert.Equal(t, audit.OpRun, run.Operation)
	assert.Equal(t, "run-7", run.RunID)
	assert.Equal(t, "partial", run.Message)
}

func TestSummaryStatus(t *testing.T) {
	assert.Equal(t, "success", Summary{OK: 3}.Status())
	assert.Equal(t, "partial", Summary{OK: 3, Failed: 1}.Status())
	assert.Equal(t, "failed", Summary{Fatal: true}.Status())
}
