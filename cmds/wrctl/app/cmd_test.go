package app_test

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/mandelsoft/webrequest/pkg/testutils"

	"github.com/mandelsoft/webrequest/cmds/wrctl/app"
	"github.com/mandelsoft/webrequest/pkg/control"
	"github.com/mandelsoft/webrequest/pkg/ctxutil"
	"github.com/mandelsoft/webrequest/pkg/rules"
	"github.com/mandelsoft/webrequest/pkg/server"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
	"github.com/mandelsoft/webrequest/pkg/webrequest/testhost"
)

var _ = Describe("wrctl", func() {
	var ctx context.Context
	var reg *webrequest.Registry
	var fs vfs.FileSystem
	var address string

	var buf *bytes.Buffer
	var errbuf *bytes.Buffer

	execute := func(args ...string) error {
		buf.Reset()
		errbuf.Reset()
		cmd := app.New(fs)
		cmd.SetOut(buf)
		cmd.SetErr(errbuf)
		cmd.SetArgs(append([]string{"-s", address}, args...))
		return cmd.Execute()
	}

	BeforeEach(func() {
		ctx = ctxutil.CancelContext(context.Background())
		reg = webrequest.NewRegistry(testhost.New())
		fs = Must(MemoryFileSystem(map[string]string{
			"/rules/block.yaml": `
name: block
event: onBeforeRequest
urls:
- https://*.ads.org/*
cancel: true
`,
			"/rules/list.yaml": `
items:
- name: tag
  event: onBeforeSendHeaders
  setRequestHeaders:
    X-Tag: "1"
- name: broken
  event: onCompleted
  cancel: true
`,
		}))

		srv := server.NewServer(0, false, time.Second)
		control.New(rules.New(reg)).RegisterHandler(srv)
		ready, _ := Must2(srv.Start(ctx))
		MustBeSuccessful(ready.Wait())
		address = fmt.Sprintf("http://localhost:%d", srv.Port())

		buf = bytes.NewBuffer(nil)
		errbuf = bytes.NewBuffer(nil)
	})

	AfterEach(func() {
		ctxutil.Cancel(ctx)
	})

	It("applies rules", func() {
		MustBeSuccessful(execute("apply", "-f", "/rules/block.yaml"))
		l := reg.ListenersFor(webrequest.OnBeforeRequest)
		Expect(l).To(HaveLen(1))
		Expect(buf.String()).To(Equal(fmt.Sprintf("rule block: created (listener %s)\n", l[0].ID)))

		MustBeSuccessful(execute("apply", "-f", "/rules/block.yaml"))
		Expect(buf.String()).To(HavePrefix("rule block: updated"))

		err := execute("apply", "-f", "/rules/list.yaml")
		MustFailWithMessage(err, "apply failed for some rules")
		Expect(buf.String()).To(HavePrefix("rule tag: created"))
		Expect(errbuf.String()).To(ContainSubstring(`invalid rule for rule 2 in "/rules/list.yaml": rule "broken": event onCompleted cannot modify requests`))

		MustBeSuccessful(execute("get", "rules"))
		Expect("\n" + buf.String()).To(Equal(`
NAME  EVENT               URLS                EFFECT
block onBeforeRequest     https://*.ads.org/* cancel
tag   onBeforeSendHeaders <all_urls>          request headers
`))
	})

	It("shows listeners", func() {
		MustBeSuccessful(execute("get"))
		Expect(buf.String()).To(Equal("no listeners found\n"))

		MustBeSuccessful(execute("apply", "-f", "/rules/block.yaml"))
		id := reg.ListenersFor(webrequest.OnBeforeRequest)[0].ID

		MustBeSuccessful(execute("get", "onBeforeRequest"))
		Expect("\n" + buf.String()).To(Equal(fmt.Sprintf(`
EVENT           ID%s ORDER PRIORITY ORIGIN     URLS
onBeforeRequest %s 1              rule:block https://*.ads.org/*
`, spaces(len(id)-2), id)))

		MustBeSuccessful(execute("get", "-o", "yaml"))
		Expect(buf.String()).To(ContainSubstring("digest: " + webrequest.FilterDigest(reg.FiltersFor(webrequest.OnBeforeRequest))))

		MustBeSuccessful(execute("get", "onCompleted", "-o", "json"))
		Expect(buf.String()).To(MatchJSON(`{"event":"onCompleted","callback":false,"filters":[],"digest":"` + webrequest.FilterDigest(nil) + `","listeners":[]}`))

		Expect(execute("get", "onSomething")).To(MatchError(webrequest.ErrUnknownEventType))
	})

	It("deletes listeners and rules", func() {
		nop := func(ctx context.Context, rec *webrequest.Record) (*webrequest.Decision, error) { return nil, nil }

		MustBeSuccessful(execute("apply", "-f", "/rules/block.yaml"))
		a := Must(reg.Add(webrequest.OnCompleted, webrequest.AllURLs(), nop))
		Must(reg.Add(webrequest.OnCompleted, webrequest.AllURLs(), nop))

		MustBeSuccessful(execute("delete", "onCompleted", a.ID))
		Expect(buf.String()).To(Equal(fmt.Sprintf("onCompleted/%s: deleted\n", a.ID)))
		Expect(reg.ListenersFor(webrequest.OnCompleted)).To(HaveLen(1))

		MustFailWithMessage(execute("delete", "onCompleted", a.ID), "deletion failed for some listeners")
		MustFailWithMessage(execute("delete", "onCompleted"), "no listener specified")
		MustBeSuccessful(execute("delete", "onCompleted", "--all"))
		Expect(reg.ListenersFor(webrequest.OnCompleted)).To(BeEmpty())

		MustBeSuccessful(execute("delete", "-r", "block"))
		Expect(buf.String()).To(Equal("rule block: deleted\n"))
		Expect(reg.ListenersFor(webrequest.OnBeforeRequest)).To(BeEmpty())
		MustFailWithMessage(execute("delete", "-r", "block"), "deletion failed for some rules")
		Expect(errbuf.String()).To(Equal("rule block: rule \"block\" not found\n"))
	})

	It("handles resolvers", func() {
		MustBeSuccessful(execute("resolver", "onBeforeRequest", "priority"))
		Expect(buf.String()).To(Equal("onBeforeRequest: policy priority set\n"))
		MustBeSuccessful(execute("resolver", "onBeforeRequest", "cancel-any"))
		Expect(buf.String()).To(Equal("onBeforeRequest: policy cancel-any replaced\n"))
		Expect(reg.ResolverName(webrequest.OnBeforeRequest)).To(Equal("cancel-any"))

		MustBeSuccessful(execute("resolver"))
		Expect("\n" + buf.String()).To(Equal(`
EVENT               POLICY
onBeforeRequest     cancel-any
onBeforeSendHeaders last
onHeadersReceived   last
`))

		Expect(execute("resolver", "onCompleted", "first")).To(HaveOccurred())
		MustFailWithMessage(execute("resolver", "onBeforeRequest"), "event type and policy required")
	})
})

func spaces(n int) string {
	return fmt.Sprintf("%*s", n, "")
}
