package service_test

import (
	"context"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/mandelsoft/webrequest/pkg/testutils"

	me "github.com/mandelsoft/webrequest/pkg/service"
)

type testService struct {
	name     string
	startErr error
	readyErr error
	doneErr  error
	lock     sync.Mutex
	started  int
	done     me.Trigger
}

func (s *testService) GetName() string {
	return s.name
}

func (s *testService) Start(ctx context.Context) (me.Syncher, me.Syncher, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.startErr != nil {
		return nil, nil, s.startErr
	}
	s.started++
	ready := me.SyncTrigger()
	ready.SetError(s.readyErr)
	ready.Trigger()
	s.done = me.SyncTrigger()
	go func() {
		<-ctx.Done()
		s.done.SetError(s.doneErr)
		s.done.Trigger()
	}()
	return ready, s.done, nil
}

func (s *testService) Wait() error {
	return s.done.Wait()
}

func (s *testService) Started() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.started
}

var _ = Describe("services", func() {
	var services me.Services

	BeforeEach(func() {
		services = me.New(context.Background())
	})

	It("starts and stops services", func() {
		a := &testService{name: "a"}
		b := &testService{name: "b"}
		MustBeSuccessful(services.Add(a))
		MustBeSuccessful(services.Add(b))
		MustBeSuccessful(services.Add(a))
		Expect(a.Started()).To(Equal(0))

		MustBeSuccessful(services.Start())
		MustBeSuccessful(services.Start())
		Expect(a.Started()).To(Equal(1))
		Expect(b.Started()).To(Equal(1))

		c := &testService{name: "c"}
		MustBeSuccessful(services.Add(c))
		Expect(c.Started()).To(Equal(1))

		services.Cancel()
		MustBeSuccessful(services.Wait())
	})

	It("starts explicit services", func() {
		a := &testService{name: "a"}
		MustBeSuccessful(services.Start(a))
		Expect(a.Started()).To(Equal(1))
		MustBeSuccessful(services.Start(a))
		Expect(a.Started()).To(Equal(1))
		services.Cancel()
		MustBeSuccessful(services.Wait())
	})

	It("cancels all services if one cannot be started", func() {
		a := &testService{name: "a"}
		MustBeSuccessful(services.Start(a))
		err := services.Start(&testService{name: "b", startErr: fmt.Errorf("no port")})
		MustFailWithMessage(err, "service b: no port")
		Expect(services.Context().Err()).To(HaveOccurred())
		MustBeSuccessful(services.Wait())
	})

	It("cancels all services if one gets not ready", func() {
		err := services.Start(&testService{name: "a", readyErr: fmt.Errorf("broken")})
		MustFailWithMessage(err, "service a: broken")
		Expect(services.Context().Err()).To(HaveOccurred())
	})

	It("reports service failures", func() {
		MustBeSuccessful(services.Start(&testService{name: "a", doneErr: fmt.Errorf("failed")}, &testService{name: "b"}))
		services.Cancel()
		MustFailWithMessage(services.Wait(), "service a: failed")
	})

	It("names services", func() {
		Expect(me.Name(&testService{name: "a"})).To(Equal("a"))
		Expect(me.Name(struct{ me.Service }{})).To(Equal("struct { service.Service }"))
	})
})
