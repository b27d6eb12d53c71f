package control_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/mandelsoft/webrequest/pkg/testutils"

	"github.com/mandelsoft/webrequest/pkg/api"
	me "github.com/mandelsoft/webrequest/pkg/control"
	"github.com/mandelsoft/webrequest/pkg/ctxutil"
	"github.com/mandelsoft/webrequest/pkg/rules"
	"github.com/mandelsoft/webrequest/pkg/server"
	"github.com/mandelsoft/webrequest/pkg/utils"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
	"github.com/mandelsoft/webrequest/pkg/webrequest/testhost"
)

var _ = Describe("control API", func() {
	var ctx context.Context
	var host *testhost.Host
	var reg *webrequest.Registry
	var set *rules.Set
	var client *me.Client

	nop := func(ctx context.Context, rec *webrequest.Record) (*webrequest.Decision, error) {
		return nil, nil
	}

	BeforeEach(func() {
		ctx = ctxutil.CancelContext(context.Background())
		host = testhost.New()
		reg = webrequest.NewRegistry(host)
		set = rules.New(reg)

		srv := server.NewServer(0, false, time.Second)
		me.New(set, "/api").RegisterHandler(srv)
		ready, _ := Must2(srv.Start(ctx))
		MustBeSuccessful(ready.Wait())
		client = me.NewClient(fmt.Sprintf("localhost:%d/api", srv.Port()))
	})

	AfterEach(func() {
		ctxutil.Cancel(ctx)
	})

	It("lists buckets", func() {
		Expect(Must(client.Buckets())).To(BeEmpty())

		a := Must(reg.Add(webrequest.OnBeforeRequest, webrequest.Filter{URLs: []string{"https://a.org/*"}}, nop, webrequest.Context{Origin: "test"}))
		Must(reg.Add(webrequest.OnBeforeRequest, webrequest.Filter{URLs: []string{"https://b.org/*"}}, nop, webrequest.Context{Priority: utils.Pointer(2.0)}))
		Must(reg.Add(webrequest.OnCompleted, webrequest.AllURLs(), nop))

		list := Must(client.Buckets())
		Expect(list).To(HaveLen(2))

		b := Must(client.Bucket(webrequest.OnBeforeRequest))
		Expect(b.Event).To(Equal(webrequest.OnBeforeRequest))
		Expect(b.Callback).To(BeTrue())
		Expect(b.Resolver).To(Equal(webrequest.DefaultResolverName))
		Expect(b.Filters).To(Equal([]string{"https://a.org/*", "https://b.org/*"}))
		Expect(b.Digest).To(Equal(host.Hook(webrequest.OnBeforeRequest).Digest))
		Expect(b.Listeners).To(HaveLen(2))
		Expect(b.Listeners[0].ID).To(Equal(a.ID))
		Expect(b.Listeners[0].Origin).To(Equal("test"))
		Expect(b.Listeners[0].Created.Time().IsZero()).To(BeFalse())
		Expect(*b.Listeners[1].Priority).To(Equal(2.0))

		b = Must(client.Bucket(webrequest.OnErrorOccurred))
		Expect(b.Listeners).To(BeEmpty())
		Expect(b.Callback).To(BeFalse())

		_, err := client.Bucket("onSomething")
		MustFailWithMessage(err, `unknown event type: "onSomething"`)
	})

	It("applies rules", func() {
		rule := &api.Rule{Name: "block", Event: webrequest.OnBeforeRequest, URLs: []string{"https://ads.org/*"}, Cancel: true}
		l, created := Must2(client.Apply(rule))
		Expect(created).To(BeTrue())
		Expect(l.Origin).To(Equal("rule:block"))
		Expect(host.Hook(webrequest.OnBeforeRequest).URLs).To(Equal([]string{"https://ads.org/*"}))

		d, ok := Must2(host.Deliver(ctx, webrequest.OnBeforeRequest, &webrequest.Record{URL: "https://ads.org/x"}))
		Expect(ok).To(BeTrue())
		Expect(d.Cancel).To(BeTrue())

		rule.URLs = []string{"https://tracker.org/*"}
		n, created := Must2(client.Apply(rule))
		Expect(created).To(BeFalse())
		Expect(n.ID).NotTo(Equal(l.ID))
		Expect(host.Hook(webrequest.OnBeforeRequest).URLs).To(Equal([]string{"https://tracker.org/*"}))
		Expect(Must(client.Rules())).To(Equal([]api.Rule{*rule}))

		_, _, err := client.Apply(&api.Rule{Name: "bad", Event: webrequest.OnCompleted, Cancel: true})
		Expect(err).To(HaveOccurred())

		MustBeSuccessful(client.DeleteRule("block"))
		Expect(host.Hook(webrequest.OnBeforeRequest)).To(BeNil())
		MustFailWithMessage(client.DeleteRule("block"), `rule "block" not found`)
	})

	It("does not find rules whose listener has been removed", func() {
		l, _ := Must2(client.Apply(&api.Rule{Name: "block", Event: webrequest.OnBeforeRequest, Cancel: true}))
		MustBeSuccessful(client.Remove(webrequest.OnBeforeRequest, l.ID))
		Expect(Must(client.Rules())).To(BeEmpty())
		MustFailWithMessage(client.DeleteRule("block"), `rule "block" not found`)
	})

	It("removes listeners", func() {
		a := Must(reg.Add(webrequest.OnSendHeaders, webrequest.AllURLs(), nop))
		Must(reg.Add(webrequest.OnSendHeaders, webrequest.AllURLs(), nop))

		MustBeSuccessful(client.Remove(webrequest.OnSendHeaders, a.ID))
		Expect(reg.ListenersFor(webrequest.OnSendHeaders)).To(HaveLen(1))
		MustFailWithMessage(client.Remove(webrequest.OnSendHeaders, a.ID), fmt.Sprintf("listener %q not found for onSendHeaders", a.ID))

		MustBeSuccessful(client.Clear(webrequest.OnSendHeaders))
		Expect(reg.ListenersFor(webrequest.OnSendHeaders)).To(BeNil())
		Expect(host.LastCall()).To(Equal(&testhost.Call{Event: webrequest.OnSendHeaders}))
	})

	It("sets resolvers", func() {
		r := Must(client.SetResolver(webrequest.OnBeforeRequest, "priority"))
		Expect(r).To(Equal(&api.ResolverResponse{Event: webrequest.OnBeforeRequest, Policy: "priority"}))
		r = Must(client.SetResolver(webrequest.OnBeforeRequest, "first"))
		Expect(r.Replaced).To(BeTrue())
		Expect(reg.ResolverName(webrequest.OnBeforeRequest)).To(Equal("first"))

		m := Must(client.Resolvers())
		Expect(m).To(HaveLen(len(webrequest.CallbackEvents)))
		Expect(m[webrequest.OnBeforeRequest]).To(Equal("first"))
		Expect(m[webrequest.OnHeadersReceived]).To(Equal(webrequest.DefaultResolverName))

		_, err := client.SetResolver(webrequest.OnCompleted, "first")
		Expect(err).To(HaveOccurred())
		_, err = client.SetResolver(webrequest.OnBeforeRequest, "unknown")
		Expect(err).To(HaveOccurred())
	})

	It("rejects invalid requests", func() {
		for _, body := range []string{"", `{"policy":"first","weight":1}`} {
			r := Must(http.Post(client.URL("listeners"), "application/json", strings.NewReader(body)))
			_, err := me.ResponseData(r)
			Expect(err).To(HaveOccurred())
			Expect(r.StatusCode).To(Equal(http.StatusBadRequest))
		}
		r := Must(http.Post(client.URL("listeners"), "text/plain", strings.NewReader("{}")))
		_, err := me.ResponseData(r)
		MustFailWithMessage(err, `unsupported content type "text/plain"`)
	})
})
