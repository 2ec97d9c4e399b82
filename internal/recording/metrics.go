package recording

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// eventsRouted は処理した録画完了イベント数。resultはok/error。
	eventsRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recording_events_routed_total",
		Help: "Number of call recording events routed to notifications.",
	}, []string{"result"})

	// notificationsDispatched は通知サービスへ送信した通知要求数。
	// call_typeは既知の種別とotherに丸める。
	notificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recording_notifications_dispatched_total",
		Help: "Number of notification requests handed to the notification service.",
	}, []string{"call_type"})
)

// observeRoute はRouteの結果をメトリクスに記録する。
func observeRoute(err error) {
	if err != nil {
		eventsRouted.WithLabelValues("error").Inc()
		return
	}
	eventsRouted.WithLabelValues("ok").Inc()
}

// callTypeLabel は通話種別をメトリクスのラベル値に変換する。
// 外部から届く任意の文字列でラベルが増えないよう、未知の種別はotherにまとめる。
func callTypeLabel(t OwnerType) string {
	switch t {
	case OwnerTypeSpace, OwnerTypeSpaceEvent, OwnerTypeUser, OwnerTypeChatRoom:
		return string(t)
	default:
		return "other"
	}
}
