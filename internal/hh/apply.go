package hh

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"go-hh-autoapply/internal/browser"
	"go-hh-autoapply/internal/filter"
	"go-hh-autoapply/internal/traversal"
)

const (
	dropdownSettle = 700 * time.Millisecond
	submitSettle   = 1500 * time.Millisecond
)

// AttemptAction runs the application flow for one card. Only unexpected
// browser failures come back as errors; every known dead end is an Outcome.
func (d *Driver) AttemptAction(ctx context.Context, h traversal.Handle, req traversal.ApplyRequest) (traversal.Attempt, error) {
	c, ok := h.(*card)
	if !ok {
		return traversal.Attempt{}, fmt.Errorf("unexpected handle %T", h)
	}
	if err := ctx.Err(); err != nil {
		return traversal.Attempt{}, err
	}

	att, err := d.apply(ctx, c, req)
	if err != nil || (att.Outcome != traversal.OutcomeApplied && att.Outcome != traversal.OutcomeAlreadyApplied) {
		d.capture(c, att, err)
	}
	return att, err
}

func (d *Driver) apply(ctx context.Context, c *card, req traversal.ApplyRequest) (traversal.Attempt, error) {
	startURL := d.page.URL()
	inCard := browser.Within(c.loc)
	inPage := browser.InPage(d.page)

	if _, _, ok := browser.FirstMatch(inCard, RespondedSelectors); ok {
		return traversal.Attempt{Outcome: traversal.OutcomeAlreadyApplied}, nil
	}

	btn, _, ok := browser.FirstMatch(inCard, ApplyButtonSelectors)
	if !ok {
		return traversal.Failed("apply button not found"), nil
	}
	if err := browser.SafeClick(btn, d.clickTimeout()); err != nil {
		return clickFailure("apply button", err)
	}

	//"vacancy is in another country" warning
	if confirm, ok := browser.WaitAny(inPage, RelocationConfirmSelectors, d.cfg.Timeouts.ElementWait); ok {
		d.logger.Debug("Confirming relocation warning")
		if err := browser.SafeClick(confirm, d.clickTimeout()); err != nil {
			if !browser.IsTimeout(err) {
				return traversal.Attempt{}, fmt.Errorf("confirm relocation: %w", err)
			}
			d.logger.Debug("Relocation warning went away before the click")
		}
	}

	_, ok = browser.WaitAny(inPage, ModalSelectors, d.cfg.Timeouts.ModalWait)
	if !sameLocation(startURL, d.page.URL()) {
		d.restore(startURL)
		return traversal.Attempt{Outcome: traversal.OutcomeMandatoryTestRedirect}, nil
	}
	if !ok {
		// single-résumé accounts are applied without a dialog
		if _, _, done := browser.FirstMatch(inCard, RespondedSelectors); done {
			return traversal.Attempt{Outcome: traversal.OutcomeApplied}, nil
		}
		return traversal.Failed("application dialog did not open"), nil
	}

	if _, _, ok := browser.FirstMatch(inPage, RequiredQuestionSelectors); ok {
		d.closeModal()
		return traversal.Attempt{Outcome: traversal.OutcomeMandatoryTest}, nil
	}

	d.selectResume(ctx, req)

	letter := false
	if req.CoverLetter != "" {
		if err := d.fillCoverLetter(req.CoverLetter); err != nil {
			d.logger.Debug("Cover letter failed", "error", err)
			d.closeModal()
			return traversal.Attempt{Outcome: traversal.OutcomeCoverLetterFailed, Detail: err.Error()}, nil
		}
		letter = true
	}

	submit, _, ok := browser.FirstMatch(inPage, SubmitSelectors)
	if !ok {
		d.closeModal()
		return traversal.Attempt{Outcome: traversal.OutcomeSubmitFailed, Detail: "submit button not found"}, nil
	}
	if err := browser.SafeClick(submit, d.clickTimeout()); err != nil {
		d.closeModal()
		return traversal.Attempt{Outcome: traversal.OutcomeSubmitFailed, Detail: err.Error()}, nil
	}

	if err := browser.RandomDelay(ctx, submitSettle, submitSettle+500*time.Millisecond); err != nil {
		return traversal.Attempt{}, err
	}
	if !sameLocation(startURL, d.page.URL()) {
		d.restore(startURL)
		return traversal.Attempt{Outcome: traversal.OutcomeMandatoryTestRedirect}, nil
	}

	if _, ok := browser.FirstVisible(inPage, ModalSelectors); ok {
		d.closeModal()
	}
	return traversal.Attempt{Outcome: traversal.OutcomeApplied, CoverLetter: letter}, nil
}

// selectResume opens the résumé dropdown and picks an option by the rules.
// A missing dropdown is fine: accounts with one résumé do not get one.
func (d *Driver) selectResume(ctx context.Context, req traversal.ApplyRequest) {
	dropdown, ok := browser.FirstVisible(browser.InPage(d.page), ResumeSelectSelectors)
	if !ok {
		d.logger.Debug("No résumé dropdown")
		return
	}
	if err := browser.SafeClick(dropdown, d.clickTimeout()); err != nil {
		d.logger.Debug("Could not open résumé dropdown", "error", err)
		return
	}
	_ = browser.RandomDelay(ctx, dropdownSettle, dropdownSettle)

	options, _ := browser.AllMatches(browser.InPage(d.page), ResumeOptionSelectors)
	if len(options) == 0 {
		d.logger.Debug("No résumé options")
		return
	}
	texts := make([]string, len(options))
	for i, opt := range options {
		texts[i] = browser.TextOf(opt, d.cfg.Timeouts.ElementWait)
	}

	idx, rule := filter.SelectResume(req.ResumeRules, req.Title, texts)
	if idx < 0 {
		return
	}
	if rule != nil {
		d.logger.Info("📄 Résumé chosen by rule", "resume", texts[idx], "rule", rule.Title)
	} else {
		d.logger.Info("📄 Résumé chosen by default", "resume", texts[idx])
	}
	if err := browser.SafeClick(options[idx], d.clickTimeout()); err != nil {
		d.logger.Debug("Could not click résumé option", "error", err)
	}
}

func (d *Driver) fillCoverLetter(text string) error {
	inPage := browser.InPage(d.page)

	if toggle, ok := browser.FirstVisible(inPage, CoverLetterToggleSelectors); ok {
		if err := browser.SafeClick(toggle, d.clickTimeout()); err != nil {
			return fmt.Errorf("open cover letter: %w", err)
		}
	}

	input, ok := browser.WaitAny(inPage, CoverLetterInputSelectors, d.cfg.Timeouts.ElementWait)
	if !ok {
		return fmt.Errorf("cover letter field not found")
	}
	if err := input.Fill(text, playwright.LocatorFillOptions{Timeout: ms(d.clickTimeout())}); err != nil {
		return fmt.Errorf("fill cover letter: %w", err)
	}
	return nil
}

func (d *Driver) closeModal() {
	if btn, _, ok := browser.FirstMatch(browser.InPage(d.page), CloseSelectors); ok {
		if err := browser.SafeClick(btn, d.clickTimeout()); err == nil {
			return
		}
	}
	if err := d.page.Keyboard().Press("Escape"); err != nil {
		d.logger.Debug("Could not close dialog", "error", err)
	}
}

// restore brings the browser back to the result page after a redirect.
func (d *Driver) restore(startURL string) {
	d.logger.Info("↩️ Redirected away from results, going back", "url", d.page.URL())
	if _, err := d.page.GoBack(playwright.PageGoBackOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   ms(d.cfg.Timeouts.PageLoad),
	}); err == nil && sameLocation(startURL, d.page.URL()) {
		return
	}
	if _, err := d.page.Goto(startURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   ms(d.cfg.Timeouts.PageLoad),
	}); err != nil {
		d.logger.Warn("⚠️ Could not return to results", "url", startURL, "error", err)
	}
}

func (d *Driver) capture(c *card, att traversal.Attempt, err error) {
	if !d.cfg.Debug || d.shots == nil {
		return
	}
	name, reason := "apply-"+string(att.Outcome), att.Reason()
	if err != nil {
		name, reason = "apply-exception", err.Error()
	}
	if c.identity != nil {
		name += "-" + *c.identity
	}
	_, _ = d.shots.CaptureAndLog(d.page, name, "Apply flow ended with "+reason)
}

// clickFailure turns a click that timed out into an error outcome. Other
// failures stay errors.
func clickFailure(what string, err error) (traversal.Attempt, error) {
	if browser.IsTimeout(err) {
		return traversal.Failed(what + " not clickable"), nil
	}
	return traversal.Attempt{}, fmt.Errorf("click %s: %w", what, err)
}
