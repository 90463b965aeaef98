package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// ChromeOptions configures the headless browser.
type ChromeOptions struct {
	Headless  bool
	UserAgent string
	ExecPath  string
}

// Chrome renders pages in a real browser tab through chromedp.
type Chrome struct {
	allocCancel context.CancelFunc
	tab         context.Context
	tabCancel   context.CancelFunc

	closeOnce sync.Once
	closed    chan struct{}
}

// NewChrome launches a browser and opens one tab.
func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	// The browser outlives any single call context; Close releases it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tab, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		slog.Debug(fmt.Sprintf(format, args...))
	}))

	c := &Chrome{
		allocCancel: allocCancel,
		tab:         tab,
		tabCancel:   tabCancel,
		closed:      make(chan struct{}),
	}
	if err := ctx.Err(); err != nil {
		c.Close()
		return nil, err
	}
	// The first Run ties the browser's lifetime to its context, so it must be
	// the tab context itself rather than a per-call child.
	if err := chromedp.Run(tab); err != nil {
		c.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return c, nil
}

// ChromeOpener returns an Opener launching a browser per crawl.
func ChromeOpener(opts ChromeOptions) Opener {
	return func(ctx context.Context) (Renderer, error) {
		return NewChrome(ctx, opts)
	}
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) CurrentMarkup(ctx context.Context) (string, error) {
	var markup string
	if err := c.run(ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return markup, nil
}

func (c *Chrome) WaitForElement(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := c.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Element{}, fmt.Errorf("%w: %s after %s", ErrElementTimeout, selector, timeout)
		}
		return Element{}, err
	}

	found, err := c.FindElements(ctx, selector)
	if err != nil {
		return Element{}, err
	}
	if len(found) == 0 {
		return Element{}, fmt.Errorf("%w: %s detached", ErrElementTimeout, selector)
	}
	return found[0], nil
}

func (c *Chrome) FindElements(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := c.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}

	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		var text string
		if err := c.run(ctx, chromedp.TextContent([]cdp.NodeID{n.NodeID}, &text, chromedp.ByNodeID)); err != nil {
			return nil, fmt.Errorf("read text of %s: %w", selector, err)
		}
		out = append(out, NewElement(strings.Join(strings.Fields(text), " "), nodeAttrs(n), n))
	}
	return out, nil
}

func (c *Chrome) Click(ctx context.Context, el Element) error {
	n, ok := el.Ref().(*cdp.Node)
	if !ok || n == nil {
		return ErrNotClickable
	}
	return c.run(ctx, chromedp.MouseClickNode(n))
}

func (c *Chrome) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = chromedp.Cancel(c.tab)
		c.tabCancel()
		c.allocCancel()
	})
	return err
}

// run executes actions on the tab while honouring the caller's context.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	runCtx, cancel := context.WithCancel(c.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func nodeAttrs(n *cdp.Node) map[string]string {
	attrs := make(map[string]string, len(n.Attributes)/2)
	for i := 0; i+1 < len(n.Attributes); i += 2 {
		attrs[n.Attributes[i]] = n.Attributes[i+1]
	}
	return attrs
}
