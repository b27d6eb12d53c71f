package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/mandelsoft/webrequest/pkg/testutils"

	"github.com/mandelsoft/webrequest/pkg/api"
	"github.com/mandelsoft/webrequest/pkg/bridge"
	"github.com/mandelsoft/webrequest/pkg/config"
	"github.com/mandelsoft/webrequest/pkg/control"
	"github.com/mandelsoft/webrequest/pkg/ctxutil"
	"github.com/mandelsoft/webrequest/pkg/server"
	"github.com/mandelsoft/webrequest/pkg/utils"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

var _ = Describe("daemon", func() {
	var ctx context.Context
	var fs vfs.FileSystem

	BeforeEach(func() {
		ctx = ctxutil.CancelContext(context.Background())
		fs = Must(MemoryFileSystem(map[string]string{
			"/etc/wrmux.yaml": `
server:
  port: 0
notificationWorkers: 2
resolvers:
  onBeforeRequest: cancel-any
rules:
- name: ads
  event: onBeforeRequest
  urls: ["https://*.ads.org/*"]
  cancel: true
`,
			"/content/index.html": "<html/>",
		}))
	})

	AfterEach(func() {
		ctxutil.Cancel(ctx)
	})

	It("serves hosts and the control API", func() {
		cfg := Must(config.LoadWithEnv(fs, func(string) string { return "" }, "/etc/wrmux.yaml"))
		d := Must(NewDaemon(ctx, cfg, server.NewDirectoryHandler(fs, "/content")))
		MustBeSuccessful(d.Start())
		port := d.Server.Port()
		Expect(port).NotTo(Equal(0))

		Expect(d.Registry.ResolverName(webrequest.OnBeforeRequest)).To(Equal("cancel-any"))

		c := control.NewClient(fmt.Sprintf("localhost:%d", port))
		Must2(c.Apply(&api.Rule{Name: "header", Event: webrequest.OnBeforeSendHeaders, SetRequestHeaders: map[string]string{"X-Test": "yes"}}))
		Expect(Must(c.Rules())).To(HaveLen(2))

		con := Must(bridge.NewClient(fmt.Sprintf("ws://localhost:%d%s", port, cfg.GetHostPath())).Connect(ctx))
		Eventually(con.Hooks).Should(HaveLen(2))

		dec, ok := Must2(con.Deliver(ctx, webrequest.OnBeforeRequest, &webrequest.Record{ID: 1, URL: "https://www.ads.org/banner"}))
		Expect(ok).To(BeTrue())
		Expect(dec.Cancel).To(BeTrue())

		dec, ok = Must2(con.Deliver(ctx, webrequest.OnBeforeSendHeaders, &webrequest.Record{ID: 2, URL: "https://example.com/", RequestHeaders: map[string]string{"Accept": "*/*"}}))
		Expect(ok).To(BeTrue())
		Expect(dec.RequestHeaders).To(Equal(map[string]string{"Accept": "*/*", "X-Test": "yes"}))

		r := Must(http.Get(fmt.Sprintf("http://localhost:%d/content/index.html", port)))
		Expect(Must(control.ResponseData(r))).To(Equal([]byte("<html/>")))

		r = Must(http.Get(fmt.Sprintf("http://localhost:%d/healthz", port)))
		Expect(r.StatusCode).To(Equal(http.StatusOK))
		r.Body.Close()

		r = Must(http.Get(fmt.Sprintf("http://localhost:%d/metrics", port)))
		m := string(Must(control.ResponseData(r)))
		Expect(m).To(ContainSubstring(`webrequest_registry_listeners{event="onBeforeRequest"} 1`))
		Expect(m).To(ContainSubstring(`webrequest_registry_listeners{event="onBeforeSendHeaders"} 1`))
		Expect(m).To(ContainSubstring(`webrequest_bridge_events_total{event="onBeforeRequest",result="decided"}`))
		Expect(m).To(ContainSubstring(`webrequest_workqueue_depth{name="notifications"}`))

		ctxutil.Cancel(ctx)
		MustBeSuccessful(d.Wait())
		Eventually(d.Bridge.Hosts, 5*time.Second).Should(BeEmpty())
	})

	It("rejects invalid rules", func() {
		cfg := config.Default()
		cfg.Server.Port = utils.Pointer(0)
		cfg.Rules = []api.Rule{{Name: "bad", Event: webrequest.OnCompleted, Cancel: true}}
		_, err := NewDaemon(ctx, cfg, nil)
		Expect(err).To(HaveOccurred())
	})
})
