package ctxutil_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	me "github.com/mandelsoft/webrequest/pkg/ctxutil"
)

var _ = Describe("context utilities", func() {
	It("cancels contexts", func() {
		ctx := me.CancelContext(context.Background())
		Expect(ctx.Err()).To(BeNil())
		me.Cancel(ctx)
		Expect(ctx.Err()).To(Equal(context.Canceled))
	})

	It("times out contexts", func() {
		ctx := me.TimeoutContext(context.Background(), 10*time.Millisecond)
		Eventually(ctx.Done()).Should(BeClosed())
		me.Cancel(ctx)
	})

	It("ignores foreign contexts", func() {
		me.Cancel(context.Background())
	})

	It("handles typed values", func() {
		key := me.NewValueKey[int]("number")
		other := me.NewValueKey[int]("other")
		ctx := key.WithValue(context.Background(), 5)

		Expect(key.Name()).To(Equal("number"))
		Expect(key.Get(ctx)).To(Equal(5))
		Expect(other.Get(ctx)).To(Equal(0))
		_, ok := other.Lookup(ctx)
		Expect(ok).To(BeFalse())
	})
})
