package legisync

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/logging"
)

// Compile-time interface check to ensure proper implementation.
var _ AutoImporter = (*client)(nil)

// AutoImporter provides controls for periodic imports of the current session.
type AutoImporter interface {
	// AutoImportsOn starts importing the current session every interval
	AutoImportsOn() error

	// AutoImportsOff stops periodic imports and waits for a running one
	AutoImportsOff() error
}

// AutoImportsOn starts periodic imports.
func (c *client) AutoImportsOn() error {
	if c.options.autoImportInterval <= 0 {
		return &errors.ValidationError{
			Field:   "autoImportInterval",
			Value:   c.options.autoImportInterval,
			Message: "import interval must be positive",
		}
	}

	// Stop any existing auto-imports to prevent resource leaks
	if err := c.AutoImportsOff(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopCh = make(chan struct{})
	c.importTicker = time.NewTicker(c.options.autoImportInterval)

	ctx, cancel := context.WithCancel(context.Background())
	c.importCancel = cancel

	ticker, stopCh := c.importTicker, c.stopCh
	c.importWG.Add(1)
	go func(parentCtx context.Context) {
		defer c.importWG.Done()
		for {
			select {
			case <-ticker.C:
				if !c.autoImport(parentCtx) {
					return
				}
			case <-parentCtx.Done():
				return
			case <-stopCh:
				return
			}
		}
	}(ctx)

	logging.Info().Dur("interval", c.options.autoImportInterval).Msg("Auto-imports enabled")
	return nil
}

// autoImport runs one scheduled import and reports whether the loop should
// keep going.
func (c *client) autoImport(ctx context.Context) bool {
	importCtx, cancel := context.WithTimeout(ctx, c.options.importTimeout)
	defer cancel()

	_, err := c.ImportCurrent(importCtx)
	switch {
	case err == nil:
		return true
	case ctx.Err() != nil && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)):
		return false
	case errors.IsLocked(err):
		logging.Info().Err(err).Msg("Import already running, skipping")
	default:
		logging.Error().Err(err).Msg("Auto-import failed")
	}
	return true
}

// AutoImportsOff stops periodic imports.
func (c *client) AutoImportsOff() error {
	c.mu.Lock()
	if c.importTicker != nil {
		c.importTicker.Stop()
		c.importTicker = nil
	}
	if c.importCancel != nil {
		c.importCancel()
		c.importCancel = nil
	}
	select {
	case <-c.stopCh:
		// Already closed
	default:
		close(c.stopCh)
	}
	c.mu.Unlock()

	c.importWG.Wait()
	return nil
}
