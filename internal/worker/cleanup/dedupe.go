package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/storefront/internal/metrics"
)

// dedupeQuery は(user_id, product_id)ごとに最も古い行だけを残す。
// saved_atが同じ場合はidの小さい行を残す。
const dedupeQuery = `DELETE FROM saved_designs s
USING saved_designs keep
WHERE s.user_id = keep.user_id
  AND s.product_id = keep.product_id
  AND (keep.saved_at, keep.id) < (s.saved_at, s.id)`

// DedupeJob は同時保存で生じた保存済みデザインの重複を解消するジョブ。
type DedupeJob struct {
	db        Executor
	logger    *slog.Logger
	collector metrics.MetricsCollector
}

// NewDedupeJob は新しいDedupeJobを生成する。
func NewDedupeJob(db Executor, logger *slog.Logger, collector metrics.MetricsCollector) *DedupeJob {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &DedupeJob{
		db:        db,
		logger:    logger,
		collector: collector,
	}
}

// Run は重複した保存済みデザインを削除し、削除件数を返す。
func (j *DedupeJob) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	result, err := j.db.ExecContext(ctx, dedupeQuery)
	if err != nil {
		j.logger.Error("重複解消ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("重複解消の実行に失敗: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	j.collector.RecordDuplicatesRemoved(removed)

	level := slog.LevelDebug
	if removed > 0 {
		level = slog.LevelInfo
	}
	j.logger.Log(ctx, level, "重複解消ジョブが完了しました",
		slog.Int64("removed_count", removed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return removed, nil
}
