package notify

import (
	"time"

	"github.com/kurirhub/kurir/core/notify"
	"github.com/kurirhub/kurir/infra/logger"
)

// LogNotifier writes notifications to the log instead of a transport. Used in
// development and simulation runs where no broker is available.
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: logger.New("notify")}
}

// OfferToDriver logs the offer.
func (n *LogNotifier) OfferToDriver(contact string, offer notify.OfferSummary, deadline time.Duration) error {
	n.logger.Infof("offer %s (%s) to driver %s, %ds to respond", offer.OrderNumber, offer.OrderType, contact, int(deadline.Seconds()))
	return nil
}

// NotifyDriver logs the driver message.
func (n *LogNotifier) NotifyDriver(contact, message string) error {
	n.logger.Infof("to driver %s: %s", contact, message)
	return nil
}

// NotifyCustomer logs the customer message.
func (n *LogNotifier) NotifyCustomer(contact, message string) error {
	n.logger.Infof("to customer %s: %s", contact, message)
	return nil
}
