package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ruslano69/productimport/pkg/core/product"
	"github.com/ruslano69/productimport/pkg/report"
)

// Run streams products from r into imp and performs the terminal flush.
// The first fatal error is reported through log.Error and returned; nothing
// after it is read or stored.
func Run(ctx context.Context, r io.Reader, imp *Importer, log report.Logger) error {
	if err := run(ctx, r, imp); err != nil {
		log.Error(err.Error())
		return err
	}
	return nil
}

func run(ctx context.Context, r io.Reader, imp *Importer) error {
	parser := product.NewParser(r)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("import cancelled: %w", err)
		}

		p, err := parser.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to parse input: %w", err)
		}

		if err := imp.Insert(ctx, p); err != nil {
			return err
		}
	}

	return imp.Flush(ctx)
}
