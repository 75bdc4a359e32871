// Package source opens the import document: a local file, stdin or an S3
// object, transparently decompressing gzip and zstd input.
package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/xxh3"
)

// Stdin is the location that reads standard input
const Stdin = "-"

const s3Scheme = "s3://"

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Compression of the input
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// Config configures S3 access
type Config struct {
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"` // for S3 compatible stores; enables path style
}

// ObjectGetter is the part of the S3 client the opener uses
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opener resolves locations to readers
type Opener struct {
	cfg   Config
	s3    ObjectGetter
	stdin io.Reader
}

// OpenerOption configures an Opener
type OpenerOption func(*Opener)

// WithObjectGetter replaces the S3 client built from the AWS default config
func WithObjectGetter(g ObjectGetter) OpenerOption {
	return func(o *Opener) { o.s3 = g }
}

// WithStdin replaces os.Stdin
func WithStdin(r io.Reader) OpenerOption {
	return func(o *Opener) { o.stdin = r }
}

// NewOpener creates an opener
func NewOpener(cfg Config, opts ...OpenerOption) *Opener {
	o := &Opener{cfg: cfg, stdin: os.Stdin}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Source is an opened import document. Reading yields the decompressed
// content; Digest covers the bytes read so far.
type Source struct {
	name        string
	compression Compression
	reader      io.Reader
	hash        *xxh3.Hasher
	closers     []io.Closer
}

// Open opens location: "-" for stdin, "s3://bucket/key", or a file path
func (o *Opener) Open(ctx context.Context, location string) (*Source, error) {
	raw, err := o.openRaw(ctx, location)
	if err != nil {
		return nil, err
	}

	src, err := newSource(location, raw)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return src, nil
}

func (o *Opener) openRaw(ctx context.Context, location string) (io.ReadCloser, error) {
	switch {
	case location == Stdin:
		return io.NopCloser(o.stdin), nil

	case strings.HasPrefix(location, s3Scheme):
		bucket, key, err := ParseS3Location(location)
		if err != nil {
			return nil, err
		}
		client, err := o.s3Client(ctx)
		if err != nil {
			return nil, err
		}
		out, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", location, err)
		}
		return out.Body, nil

	default:
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		return f, nil
	}
}

func (o *Opener) s3Client(ctx context.Context) (ObjectGetter, error) {
	if o.s3 != nil {
		return o.s3, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if o.cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(o.cfg.S3Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := o.cfg.S3Endpoint
	o.s3 = s3.NewFromConfig(cfg, func(opt *s3.Options) {
		if endpoint != "" {
			opt.BaseEndpoint = aws.String(endpoint)
			opt.UsePathStyle = true
		}
	})
	return o.s3, nil
}

// ParseS3Location splits "s3://bucket/key"
func ParseS3Location(location string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(location, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 location %q, want s3://bucket/key", location)
	}
	return bucket, key, nil
}

func newSource(name string, raw io.ReadCloser) (*Source, error) {
	buffered := bufio.NewReader(raw)
	src := &Source{
		name:        name,
		compression: CompressionNone,
		hash:        xxh3.New(),
		closers:     []io.Closer{raw},
	}

	head, err := buffered.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var content io.Reader = buffered
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip input: %w", err)
		}
		src.compression = CompressionGzip
		src.closers = append([]io.Closer{zr}, src.closers...)
		content = zr

	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd input: %w", err)
		}
		src.compression = CompressionZstd
		src.closers = append([]io.Closer{zstdCloser{zr}}, src.closers...)
		content = zr
	}

	src.reader = io.TeeReader(content, src.hash)
	return src, nil
}

// Read implements io.Reader
func (s *Source) Read(p []byte) (int, error) { return s.reader.Read(p) }

// Name returns the location the source was opened from
func (s *Source) Name() string { return s.name }

// Compression returns the detected compression
func (s *Source) Compression() Compression { return s.compression }

// Digest returns the xxh3 hash of the decompressed content read so far, hex encoded
func (s *Source) Digest() string { return fmt.Sprintf("%016x", s.hash.Sum64()) }

// Close releases the decompressor and the underlying stream
func (s *Source) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type zstdCloser struct{ d *zstd.Decoder }

func (z zstdCloser) Close() error {
	z.d.Close()
	return nil
}
