package rules_test

import (
	"context"

	"github.com/go-test/deep"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/mandelsoft/webrequest/pkg/testutils"

	"github.com/mandelsoft/webrequest/pkg/api"
	"github.com/mandelsoft/webrequest/pkg/config"
	me "github.com/mandelsoft/webrequest/pkg/rules"
	"github.com/mandelsoft/webrequest/pkg/utils"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
	"github.com/mandelsoft/webrequest/pkg/webrequest/testhost"
)

var _ = Describe("rules", func() {
	var ctx context.Context
	var host *testhost.Host
	var reg *webrequest.Registry
	var set *me.Set

	BeforeEach(func() {
		ctx = context.Background()
		host = testhost.New()
		reg = webrequest.NewRegistry(host)
		set = me.New(reg)
	})

	Context("actions", func() {
		It("cancels requests", func() {
			rec := &webrequest.Record{URL: "https://ads.com/x", Extra: map[string]any{"tabId": float64(1)}}
			d := Must(me.Action(api.Rule{Name: "a", Event: webrequest.OnBeforeRequest, Cancel: true})(ctx, rec))
			Expect(deep.Equal(d, &webrequest.Decision{Cancel: true, Extra: map[string]any{"tabId": float64(1)}})).To(BeNil())
		})

		It("redirects requests", func() {
			rec := &webrequest.Record{URL: "http://example.com/"}
			d := Must(me.Action(api.Rule{Name: "a", Event: webrequest.OnBeforeRequest, RedirectURL: "https://example.com/"})(ctx, rec))
			Expect(d).To(Equal(&webrequest.Decision{RedirectURL: "https://example.com/"}))
		})

		It("modifies request headers", func() {
			rec := &webrequest.Record{
				URL:            "https://example.com/",
				RequestHeaders: map[string]string{"user-agent": "browser", "Cookie": "a=b", "Accept": "*/*"},
			}
			d := Must(me.Action(api.Rule{
				Name:                 "a",
				Event:                webrequest.OnBeforeSendHeaders,
				SetRequestHeaders:    map[string]string{"User-Agent": "robot"},
				RemoveRequestHeaders: []string{"cookie"},
			})(ctx, rec))
			Expect(d.RequestHeaders).To(Equal(map[string]string{"User-Agent": "robot", "Accept": "*/*"}))
			Expect(rec.RequestHeaders).To(HaveLen(3))
		})

		It("modifies response headers", func() {
			rec := &webrequest.Record{
				URL:             "https://example.com/",
				ResponseHeaders: map[string][]string{"content-security-policy": {"default-src 'self'"}, "Server": {"x"}},
			}
			d := Must(me.Action(api.Rule{
				Name:               "a",
				Event:              webrequest.OnHeadersReceived,
				SetResponseHeaders: map[string]string{"Content-Security-Policy": "default-src *"},
			})(ctx, rec))
			Expect(d.ResponseHeaders).To(Equal(map[string][]string{"Content-Security-Policy": {"default-src *"}, "Server": {"x"}}))
		})

		It("only logs notifications", func() {
			d := Must(me.Action(api.Rule{Name: "a", Event: webrequest.OnCompleted, Log: true})(ctx, &webrequest.Record{URL: "https://example.com/"}))
			Expect(d).To(BeNil())
		})
	})

	Context("set", func() {
		It("installs rule listeners", func() {
			l, created := Must2(set.Apply(api.Rule{Name: "block", Event: webrequest.OnBeforeRequest, URLs: []string{"*://*.ads.com/*"}, Cancel: true, Priority: utils.Pointer(5.0)}))
			Expect(created).To(BeTrue())
			Expect(l.Context.Origin).To(Equal("rule:block"))
			Expect(l.Context.Priority).To(Equal(utils.Pointer(5.0)))
			Expect(me.IsRuleListener(l)).To(BeTrue())
			Expect(host.Hook(webrequest.OnBeforeRequest).URLs).To(Equal([]string{"*://*.ads.com/*"}))

			d := Must(reg.Dispatch(ctx, webrequest.OnBeforeRequest, &webrequest.Record{URL: "https://www.ads.com/banner"}))
			Expect(d.Cancel).To(BeTrue())
			d = Must(reg.Dispatch(ctx, webrequest.OnBeforeRequest, &webrequest.Record{URL: "https://www.example.com/"}))
			Expect(d.Cancel).To(BeFalse())
		})

		It("replaces rules with the same name", func() {
			old, _ := Must2(set.Apply(api.Rule{Name: "block", Event: webrequest.OnBeforeRequest, URLs: []string{"*://*.ads.com/*"}, Cancel: true}))
			l, created := Must2(set.Apply(api.Rule{Name: "block", Event: webrequest.OnBeforeRequest, URLs: []string{"*://*.tracker.com/*"}, Cancel: true}))
			Expect(created).To(BeFalse())
			Expect(l.Context.Order).To(BeNumerically(">", old.Context.Order))
			Expect(reg.ListenersFor(webrequest.OnBeforeRequest)).To(Equal([]*webrequest.Listener{l}))
			Expect(host.Hook(webrequest.OnBeforeRequest).URLs).To(Equal([]string{"*://*.tracker.com/*"}))
			Expect(set.Get("block").URLs).To(Equal([]string{"*://*.tracker.com/*"}))
		})

		It("keeps the old rule for invalid replacements", func() {
			Must2(set.Apply(api.Rule{Name: "block", Event: webrequest.OnBeforeRequest, Cancel: true}))
			_, _, err := set.Apply(api.Rule{Name: "block", Event: webrequest.OnBeforeRequest, URLs: []string{"invalid"}, Cancel: true})
			Expect(err).To(HaveOccurred())
			Expect(set.Get("block")).NotTo(BeNil())
			Expect(reg.ListenersFor(webrequest.OnBeforeRequest)).To(HaveLen(1))
		})

		It("deletes rules", func() {
			Must2(set.Apply(api.Rule{Name: "block", Event: webrequest.OnBeforeRequest, Cancel: true}))
			Expect(set.Delete("block")).To(BeTrue())
			Expect(set.Delete("block")).To(BeFalse())
			Expect(reg.ListenersFor(webrequest.OnBeforeRequest)).To(BeNil())
			Expect(host.LastCall()).To(Equal(&testhost.Call{Event: webrequest.OnBeforeRequest}))
		})

		It("forgets rules removed at the registry", func() {
			Must2(set.Apply(api.Rule{Name: "b", Event: webrequest.OnBeforeRequest, Cancel: true}))
			Must2(set.Apply(api.Rule{Name: "a", Event: webrequest.OnCompleted, Log: true}))
			Expect(utils.TransformSlice(set.List(), func(r api.Rule) string { return r.Name })).To(Equal([]string{"a", "b"}))

			reg.Clear(webrequest.OnBeforeRequest)
			Expect(set.Get("b")).To(BeNil())
			Expect(utils.TransformSlice(set.List(), func(r api.Rule) string { return r.Name })).To(Equal([]string{"a"}))
		})

		It("does not delete rules removed at the registry", func() {
			l, _ := Must2(set.Apply(api.Rule{Name: "block", Event: webrequest.OnBeforeRequest, Cancel: true}))
			reg.Remove(webrequest.OnBeforeRequest, l.ID)
			Expect(set.Delete("block")).To(BeFalse())

			_, created := Must2(set.Apply(api.Rule{Name: "block", Event: webrequest.OnBeforeRequest, Cancel: true}))
			Expect(created).To(BeTrue())
		})
	})

	It("applies a configuration", func() {
		cfg := config.Default()
		cfg.Resolvers = map[webrequest.EventType]string{webrequest.OnBeforeRequest: "cancel-any"}
		cfg.Rules = []api.Rule{
			{Name: "block", Event: webrequest.OnBeforeRequest, URLs: []string{"*://*.ads.com/*"}, Cancel: true},
			{Name: "upgrade", Event: webrequest.OnBeforeRequest, URLs: []string{"*://*/*"}, RedirectURL: "https://example.com/"},
			{Name: "broken", Event: webrequest.OnCompleted},
		}
		err := me.ApplyConfig(set, cfg)
		Expect(err).To(MatchError(ContainSubstring(`rule "broken": rule has no effect`)))
		Expect(reg.ResolverName(webrequest.OnBeforeRequest)).To(Equal("cancel-any"))
		Expect(reg.ListenersFor(webrequest.OnBeforeRequest)).To(HaveLen(2))

		d := Must(reg.Dispatch(ctx, webrequest.OnBeforeRequest, &webrequest.Record{URL: "https://www.ads.com/banner"}))
		Expect(d).To(Equal(&webrequest.Decision{Cancel: true, RedirectURL: "https://example.com/"}))
	})
})
