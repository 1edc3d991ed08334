package events

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pondelion/mplm/internal/orchestrator"
)

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Notifier forwards orchestrator transitions to a publisher. Delivery is best
// effort: a publish failure is logged and the run continues.
type Notifier struct {
	pub Publisher
	log logrus.FieldLogger
}

func NewNotifier(pub Publisher, log logrus.FieldLogger) *Notifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Notifier{pub: pub, log: log}
}

func (n *Notifier) Observe(ctx context.Context, t orchestrator.Transition) {
	evt := FromTransition(t)
	if err := n.pub.Publish(ctx, evt); err != nil {
		n.log.WithFields(logrus.Fields{
			"run_id":   evt.RunID,
			"event_id": evt.ID,
		}).WithError(err).Warn("failed to publish transition event")
	}
}
