// Package services содержит фоновую задачу очистки: пользователи, не
// подтвердившие почту до истечения кода, периодически удаляются.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

// Purger описывает контракт хранилища для удаления неподтвержденных аккаунтов.
type Purger interface {
	PurgeUnverified(ctx context.Context, now time.Time) (int64, error)
}

// CleanerService периодически удаляет аккаунты с истекшим кодом подтверждения.
type CleanerService struct {
	purger   Purger
	interval time.Duration
	log      *slog.Logger
}

// NewCleanerService создает новый экземпляр CleanerService.
func NewCleanerService(purger Purger, interval time.Duration, log *slog.Logger) *CleanerService {
	return &CleanerService{
		purger:   purger,
		interval: interval,
		log:      log,
	}
}

// Run запускает цикл очистки и блокируется до отмены контекста.
func (s *CleanerService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("cleaner started", slog.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("cleaner stopped")
			return
		case <-ticker.C:
			s.purge(ctx)
		}
	}
}

func (s *CleanerService) purge(ctx context.Context) {
	count, err := s.purger.PurgeUnverified(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("failed to purge unverified users", sl.Err(err))
		return
	}
	if count > 0 {
		s.log.Info("unverified users purged", slog.Int64("count", count))
	}
}
