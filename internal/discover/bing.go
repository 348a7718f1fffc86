package discover

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BingHost is the search engine's own domain; result links pointing back at
// it are excluded from discovery.
const BingHost = "bing.com"

const (
	bingSearchURL = "https://www.bing.com/"
	searchBoxSel  = "#sb_form_q"
)

// nextPageSelectors are tried in order; Bing reshuffles its pagination markup
// between experiments, so several patterns are kept around.
var nextPageSelectors = []string{
	`a[aria-label="Next page"]`,
	`a.pgn_nxtpg_btn`,
	`a[title="Next page"]`,
	`#b_pag a.sb_pagN`,
}

const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"

// BingDriver implements SearchDriver on a headless Chrome via chromedp.
type BingDriver struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	timeout     time.Duration
	rng         *rand.Rand
	logger      *zap.Logger
}

// NewBingDriver starts a browser context. The caller must Close it.
func NewBingDriver(headless bool, pageLoadTimeout time.Duration, logger *zap.Logger) (*BingDriver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(desktopUserAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	return &BingDriver{
		ctx:         ctx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		timeout:     pageLoadTimeout,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:      logger,
	}, nil
}

// Navigate opens the search engine and submits the query.
func (b *BingDriver) Navigate(query string) error {
	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.Navigate(bingSearchURL),
		chromedp.WaitVisible(searchBoxSel, chromedp.ByQuery),
		chromedp.SendKeys(searchBoxSel, query, chromedp.ByQuery),
		chromedp.Submit(searchBoxSel, chromedp.ByQuery),
		chromedp.Sleep(b.jitter(2, 4)),
	)
	if err != nil {
		return fmt.Errorf("submit search query: %w", err)
	}
	return nil
}

// ScrollAndWait scrolls to the bottom of the page with a randomized pause so
// lazy-loaded results render.
func (b *BingDriver) ScrollAndWait() error {
	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	return chromedp.Run(ctx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight);`, nil),
		chromedp.Sleep(b.jitter(2, 4)),
	)
}

// ExtractVisibleLinks returns every anchor href on the rendered page.
func (b *BingDriver) ExtractVisibleLinks() ([]string, error) {
	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	var hrefs []string
	err := chromedp.Run(ctx,
		chromedp.Evaluate(`Array.from(document.querySelectorAll('a[href]')).map(a => a.href)`, &hrefs),
	)
	if err != nil {
		return nil, fmt.Errorf("extract links: %w", err)
	}
	return hrefs, nil
}

// ClickNextPage tries the known pagination selectors and reports whether one
// was found and clicked.
func (b *BingDriver) ClickNextPage() (bool, error) {
	for _, sel := range nextPageSelectors {
		ctx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
		err := chromedp.Run(ctx,
			chromedp.ScrollIntoView(sel, chromedp.ByQuery),
			chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible),
		)
		cancel()
		if err != nil {
			continue
		}
		b.logger.Debug("clicked next page", zap.String("selector", sel))
		// Let the next result page settle before the caller scrapes it.
		waitCtx, waitCancel := context.WithTimeout(b.ctx, b.timeout)
		_ = chromedp.Run(waitCtx, chromedp.Sleep(b.jitter(3, 5)))
		waitCancel()
		return true, nil
	}
	return false, nil
}

// Close tears down the browser and its allocator.
func (b *BingDriver) Close() error {
	b.cancelCtx()
	b.cancelAlloc()
	return nil
}

func (b *BingDriver) jitter(minSec, maxSec float64) time.Duration {
	sec := minSec + b.rng.Float64()*(maxSec-minSec)
	return time.Duration(sec * float64(time.Second))
}
