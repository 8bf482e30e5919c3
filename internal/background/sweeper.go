package background

import (
	"context"
	"log/slog"
	"time"
)

// BlockSweeper periodically lifts system blocks whose deadline has passed.
// Login already clears an expired block lazily when the user returns; the
// sweeper keeps the stored state honest for admin listings in between.
type BlockSweeper struct {
	users    BlockClearer
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// BlockClearer is the single repository operation the sweeper needs.
type BlockClearer interface {
	ClearExpiredBlocks(ctx context.Context, now time.Time) (int64, error)
}

// NewBlockSweeper creates a new block sweeper
func NewBlockSweeper(users BlockClearer, logger *slog.Logger, interval time.Duration) *BlockSweeper {
	return &BlockSweeper{
		users:    users,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (bs *BlockSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(bs.interval)
	defer ticker.Stop()

	// Run immediately on startup
	bs.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			bs.runSweep(ctx)
		case <-bs.stopCh:
			bs.logger.Info("block sweeper stopped")
			return
		case <-ctx.Done():
			bs.logger.Info("block sweeper context cancelled")
			return
		}
	}
}

func (bs *BlockSweeper) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cleared, err := bs.users.ClearExpiredBlocks(sweepCtx, time.Now())
	if err != nil {
		bs.logger.Error("failed to clear expired blocks", slog.Any("error", err))
		return
	}

	if cleared > 0 {
		bs.logger.Info("expired blocks cleared", slog.Int64("accounts", cleared))
	}
}

// Stop signals the sweeper to stop
func (bs *BlockSweeper) Stop() {
	close(bs.stopCh)
}
