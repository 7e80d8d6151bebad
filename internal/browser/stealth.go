package browser

import (
	"context"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

const stealthScript = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`

// RandomDelay waits for a random duration in [min, max] or until ctx ends.
func RandomDelay(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min + 1)))
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// HumanScroll scrolls down the result list in steps and back up a little.
func HumanScroll(ctx context.Context, page playwright.Page) error {
	for i := 0; i < 3; i++ {
		if err := page.Mouse().Wheel(0, float64(300+rand.Intn(300))); err != nil {
			return err
		}
		if err := RandomDelay(ctx, 300*time.Millisecond, 800*time.Millisecond); err != nil {
			return err
		}
	}
	//human-like correction
	return page.Mouse().Wheel(0, -200)
}

// MouseJiggle moves the mouse to a few random points inside the viewport.
func MouseJiggle(ctx context.Context, page playwright.Page) error {
	width, height := 1000, 700
	if vp := page.ViewportSize(); vp != nil && vp.Width > 0 && vp.Height > 0 {
		width, height = vp.Width, vp.Height
	}
	for i := 0; i < 3; i++ {
		x := float64(rand.Intn(width))
		y := float64(rand.Intn(height))
		if err := page.Mouse().Move(x, y); err != nil {
			return err
		}
		if err := RandomDelay(ctx, 100*time.Millisecond, 300*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}
