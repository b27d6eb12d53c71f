package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/client-go/util/workqueue"

	. "github.com/mandelsoft/webrequest/pkg/testutils"

	me "github.com/mandelsoft/webrequest/pkg/metrics"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

func scrape() string {
	w := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, me.PATH, nil))
	ExpectWithOffset(1, w.Code).To(Equal(http.StatusOK))
	return w.Body.String()
}

var _ = Describe("metrics", func() {
	nop := func(ctx context.Context, rec *webrequest.Record) (*webrequest.Decision, error) {
		return nil, nil
	}

	AfterEach(func() {
		me.ObserveRegistry(nil)
	})

	It("reports the registry state", func() {
		reg := webrequest.NewRegistry(nil)
		Must(reg.Add(webrequest.OnBeforeRequest, webrequest.Filter{URLs: []string{"https://*/*", "http://*/*"}}, nop))
		Must(reg.Add(webrequest.OnBeforeRequest, webrequest.Filter{URLs: []string{"https://*/*"}}, nop))
		Must(reg.Add(webrequest.OnCompleted, webrequest.AllURLs(), nop))

		Expect(scrape()).NotTo(ContainSubstring("webrequest_registry_listeners"))
		me.ObserveRegistry(reg)
		m := scrape()
		Expect(m).To(ContainSubstring(`webrequest_registry_listeners{event="onBeforeRequest"} 2`))
		Expect(m).To(ContainSubstring(`webrequest_registry_listeners{event="onCompleted"} 1`))
		Expect(m).To(ContainSubstring(`webrequest_registry_filters{event="onBeforeRequest"} 2`))

		reg.Clear(webrequest.OnCompleted)
		Expect(scrape()).NotTo(ContainSubstring(`webrequest_registry_listeners{event="onCompleted"}`))
	})

	It("counts host events", func() {
		me.HostConnected()
		me.EventDispatched(webrequest.OnSendHeaders, me.RESULT_NOTIFIED, time.Now())
		m := scrape()
		Expect(m).To(ContainSubstring(`webrequest_bridge_events_total{event="onSendHeaders",result="notified"} 1`))
		Expect(m).To(ContainSubstring(`webrequest_bridge_event_duration_seconds_count{event="onSendHeaders"} 1`))
		Expect(m).To(ContainSubstring("webrequest_bridge_host_connections 1"))
		me.HostDisconnected()
		Expect(scrape()).To(ContainSubstring("webrequest_bridge_host_connections 0"))
	})

	It("reports named work queues", func() {
		q := workqueue.NewRateLimitingQueueWithConfig(workqueue.DefaultControllerRateLimiter(), workqueue.RateLimitingQueueConfig{
			Name: "metrics-test",
		})
		defer q.ShutDown()
		q.Add("a")
		q.Add("b")
		Expect(scrape()).To(ContainSubstring(`webrequest_workqueue_depth{name="metrics-test"} 2`))
		Expect(scrape()).To(ContainSubstring(`webrequest_workqueue_adds_total{name="metrics-test"} 2`))
	})
})
