package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/productimport/pkg/core/product"
)

func TestProductEntry(t *testing.T) {
	p := product.NewProduct("tee", product.KindConfigurable, product.NewReference("Default"), 12)
	p.AddError("variant not found: tee-red")

	e := ProductEntry(p)
	_, err := uuid.Parse(e.ID)
	require.NoError(t, err)
	assert.Equal(t, OpProduct, e.Operation)
	assert.Equal(t, StatusFailure, e.Status)
	assert.Equal(t, "tee", e.SKU)
	assert.Equal(t, "configurable", e.Kind)
	assert.Equal(t, 12, e.Line)
	assert.Equal(t, []string{"variant not found: tee-red"}, e.Errors)

	ok := product.NewProduct("a", product.KindSimple, product.NewReference("Default"), 1)
	ok.MarkOk()
	assert.Equal(t, StatusSuccess, ProductEntry(ok).Status)
	assert.NotEqual(t, e.ID, ProductEntry(ok).ID)
}

func TestEntry_FilterByLevel(t *testing.T) {
	e := NewEntry(OpProduct, StatusFailure).
		WithError(errors.New("attribute set not found: X")).
		WithMetadata("batch", 3)

	minimal := e.FilterByLevel(LevelMinimal)
	assert.Nil(t, minimal.Errors)
	assert.Nil(t, minimal.Metadata)

	standard := e.FilterByLevel(LevelStandard)
	assert.Len(t, standard.Errors, 1)
	assert.Nil(t, standard.Metadata)

	full := e.FilterByLevel(LevelFull)
	assert.Equal(t, 3, full.Metadata["batch"])

	assert.Len(t, e.Errors, 1, "filtering never touches the original")
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("FULL")
	require.NoError(t, err)
	assert.Equal(t, LevelFull, l)

	l, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelStandard, l)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

type failingAppender struct{}

func (failingAppender) Append(context.Context, *Entry) error { return errors.New("disk full") }
func (failingAppender) Close() error                         { return nil }

func TestLogger_StampsRunIDAndReportsErrors(t *testing.T) {
	var buf bytes.Buffer
	var appendErrs []error

	l := NewLogger(LoggerConfig{
		RunID:   "run-1",
		OnError: func(err error) { appendErrs = append(appendErrs, err) },
	}, NewWriterAppender(&buf, LevelStandard, true), failingAppender{})

	l.Log(context.Background(), NewEntry(OpRun, StatusSuccess).WithMessage("done"))
	require.NoError(t, l.Close())

	var decoded Entry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, "done", decoded.Message)
	assert.Len(t, appendErrs, 1)
}

func TestMultiAndFailuresAppender(t *testing.T) {
	var all, failures bytes.Buffer
	m := NewMultiAppender(NewWriterAppender(&all, LevelMinimal, false))
	m.Add(NewFailuresAppender(NewWriterAppender(&failures, LevelMinimal, false)))
	assert.Equal(t, 2, m.Len())

	ctx := context.Background()
	require.NoError(t, m.Append(ctx, NewEntry(OpProduct, StatusSuccess)))
	require.NoError(t, m.Append(ctx, NewEntry(OpProduct, StatusFailure)))
	require.NoError(t, m.Close())

	assert.Equal(t, 2, strings.Count(all.String(), "\n"))
	assert.Equal(t, 1, strings.Count(failures.String(), "\n"))
	assert.Contains(t, failures.String(), "product failure")
}

func TestFileAppender_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	fa, err := NewFileAppender(FileAppenderConfig{FilePath: path, FormatJSON: true, Level: LevelStandard})
	require.NoError(t, err)

	ctx := context.Background()
	for _, sku := range []string{"a", "b", "c"} {
		e := NewEntry(OpProduct, StatusSuccess)
		e.SKU = sku
		require.NoError(t, fa.Append(ctx, e))
	}
	assert.Positive(t, fa.CurrentSize())
	require.NoError(t, fa.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var skus []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		skus = append(skus, e.SKU)
	}
	assert.Equal(t, []string{"a", "b", "c"}, skus)
}

func TestFileAppender_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	fa, err := NewFileAppender(FileAppenderConfig{FilePath: path, MaxBackups: 2})
	require.NoError(t, err)
	fa.maxSize = 10 // every entry exceeds it

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, fa.Append(ctx, NewEntry(OpProduct, StatusSuccess)))
	}
	require.NoError(t, fa.Close())

	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")
}

func TestNewFileAppender_EmptyPath(t *testing.T) {
	_, err := NewFileAppender(FileAppenderConfig{})
	assert.Error(t, err)
}
