package invoice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"termomaz/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrBrowserUnavailable means no Chrome/Chromium binary could be found for PDF output.
var ErrBrowserUnavailable = errors.New("no headless browser available")

// Printer turns an HTML document into a PDF.
type Printer interface {
	PDF(ctx context.Context, html string) ([]byte, error)
}

// RodPrinter prints through a headless Chrome driven by rod. A browser is launched per document.
type RodPrinter struct {
	// ChromePath overrides the browser lookup. Empty searches the usual install locations.
	ChromePath string
}

// ConfiguredPrinter prints with the browser path currently set in config.
type ConfiguredPrinter struct{}

func (ConfiguredPrinter) PDF(ctx context.Context, html string) ([]byte, error) {
	return RodPrinter{ChromePath: config.Get().Invoice.ChromePath}.PDF(ctx, html)
}

func (p RodPrinter) bin() (string, error) {
	if p.ChromePath != "" {
		if _, err := os.Stat(p.ChromePath); err != nil {
			return "", fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
		}
		return p.ChromePath, nil
	}
	if path, found := launcher.LookPath(); found {
		return path, nil
	}
	return "", ErrBrowserUnavailable
}

func (p RodPrinter) PDF(ctx context.Context, html string) ([]byte, error) {
	bin, err := p.bin()
	if err != nil {
		return nil, err
	}

	// Leakless(false) keeps antivirus software from flagging the helper binary.
	l := launcher.New().Bin(bin).Headless(true).Leakless(false).Context(ctx)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("failed to load invoice HTML: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed waiting for invoice page: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return nil, fmt.Errorf("failed to print PDF: %w", err)
	}
	return io.ReadAll(stream)
}
