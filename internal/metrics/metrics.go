package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuthOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "account_auth_operations_total",
		Help: "Account use case invocations by operation and result kind",
	}, []string{"op", "result"})

	CleanupDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "account_cleanup_deleted_total",
		Help: "Rows removed by the cleanup job",
	}, []string{"sweep", "table"})

	NotifyDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "account_notify_dropped_events_total",
		Help: "Verification events dropped because the queue was full",
	})

	OtpDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "account_otp_dispatched_total",
		Help: "OTP codes generated and handed to the SMS sender",
	}, []string{"reason", "result"})
)

// Register registers the collectors on reg (or the default registerer if nil).
// Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{AuthOperations, CleanupDeleted, NotifyDropped, OtpDispatched} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
