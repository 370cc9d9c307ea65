package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kurirhub/kurir/core/dispatch"
	"github.com/kurirhub/kurir/core/events"
	"github.com/kurirhub/kurir/core/metrics"
	"github.com/kurirhub/kurir/core/model"
	"github.com/kurirhub/kurir/core/orders"
	"github.com/kurirhub/kurir/core/queue"
	"github.com/kurirhub/kurir/core/registry"
	"github.com/kurirhub/kurir/infra/logger"
	"github.com/kurirhub/kurir/infra/notify"
	"github.com/kurirhub/kurir/internal/eventbus"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a scripted dispatch cycle against the log notifier",
	RunE:  simulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

// simulate exercises the offer cycle end to end without any external
// transport: two couriers, three orders, one rejection and one completion.
func simulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logg := logger.New("simulate")
	reg := registry.New(nil)
	store := orders.New(nil)
	q := queue.New(nil)
	bus := eventbus.New[events.Event]()
	defer bus.Close()

	offerTimeout := time.Duration(cfg.Dispatch.OfferTimeoutSeconds) * time.Second
	d, err := dispatch.New(reg, store, q, notify.NewLogNotifier(), nil, offerTimeout, metrics.NopSink{}, bus, logg)
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			logg.Errorf("dispatcher close: %v", cerr)
		}
	}()

	sub := bus.Subscribe()
	go func() {
		for ev := range sub {
			logg.Infof("event %s: %+v", ev.Kind(), ev)
		}
	}()

	for _, drv := range []struct{ id, name, contact string }{
		{"d1", "Budi", "+62 811-0001"},
		{"d2", "Sari", "+62 811-0002"},
	} {
		if _, err := reg.Register(drv.id, drv.name, drv.contact); err != nil {
			return err
		}
		if _, err := d.DriverOnDuty(drv.id); err != nil {
			return err
		}
	}

	o1, err := d.SubmitOrder(model.TypeDelivery, "cust1", map[string]string{"pickup": "Pasar Minggu", "dropoff": "Blok M"})
	if err != nil {
		return err
	}
	logg.Infof("submitted %s (%s)", o1.Number, o1.Status)

	// Reject the first offer, then let the retry land on the other courier.
	holder, ok := d.PendingOffer(o1.Number)
	if !ok {
		return fmt.Errorf("no driver received the offer")
	}
	if _, err := d.RejectOffer(holder); err != nil {
		return err
	}
	holder, ok = d.PendingOffer(o1.Number)
	if !ok {
		return fmt.Errorf("retry offer missing")
	}
	accepted, err := d.AcceptOffer(holder)
	if err != nil {
		return err
	}
	logg.Infof("order %s assigned to %s", accepted.Number, accepted.AssignedDriver)

	if _, err := d.MarkPickedUp(accepted.AssignedDriver); err != nil {
		return err
	}
	done, err := d.CompleteOrder(accepted.AssignedDriver)
	if err != nil {
		return err
	}
	logg.Infof("order %s %s", done.Number, done.Status)

	o2, err := d.SubmitOrder(model.TypeRide, "cust2", map[string]string{"from": "Senayan", "to": "Kemang"})
	if err != nil {
		return err
	}
	if _, err := d.CancelOrder(o2.Number, "simulation cleanup"); err != nil {
		return err
	}

	logg.Infof("simulation finished: %d drivers available, queue depth %d", d.AvailableDriverCount(), d.QueueDepth())
	return nil
}
