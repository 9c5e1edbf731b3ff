package notifier

import (
	"log/slog"

	"github.com/amishk599/jobmatch/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new matches to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each job via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each job with its score, rating, and link.
func (n *LogNotifier) Notify(jobs []model.Job) error {
	for _, j := range jobs {
		args := []any{
			"source", j.Source, "company", j.Company, "title", j.Title,
			"location", j.Location, "score", j.MatchScore, "url", j.URL,
		}
		if j.Rating > 0 {
			args = append(args, "rating", j.Rating)
		}
		n.logger.Info("new match", args...)
	}
	return nil
}
