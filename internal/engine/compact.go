package engine

import (
	"go.uber.org/zap"

	"github.com/rcliao/teachbot/internal/model"
)

// Compress folds the oldest entries into the archive until at most maxKeep
// remain. A negative maxKeep uses the profile default. Every evicted
// entry's user and bot tokens are counted once in the archive.
func (e *Engine) Compress(maxKeep int) {
	if maxKeep < 0 {
		maxKeep = e.profile.MaxKeep
	}
	if len(e.memory) <= maxKeep {
		return
	}

	excess := len(e.memory) - maxKeep
	old := e.memory[:excess]
	if e.archive.TokenFrequency == nil {
		e.archive.TokenFrequency = map[string]int{}
	}
	for _, m := range old {
		for _, tok := range e.profile.Tokenize(m.User) {
			e.archive.TokenFrequency[tok]++
		}
		for _, tok := range e.profile.Tokenize(m.Bot) {
			e.archive.TokenFrequency[tok]++
		}
		e.archive.TotalForgotten++
	}

	kept := make([]model.Entry, maxKeep)
	copy(kept, e.memory[excess:])
	e.memory = kept

	e.logger.Info("compressed memory",
		zap.Int("evicted", excess),
		zap.Int("kept", maxKeep),
		zap.Int("total_forgotten", e.archive.TotalForgotten))
	e.persist()
}
