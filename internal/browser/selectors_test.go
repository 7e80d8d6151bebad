package browser

import (
	"errors"
	"fmt"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
)

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(playwright.ErrTimeout))
	assert.True(t, IsTimeout(fmt.Errorf("click: %w", playwright.ErrTimeout)))
	assert.False(t, IsTimeout(errors.New("target closed")))
	assert.False(t, IsTimeout(nil))
}
