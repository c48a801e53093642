package container_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
	"github.com/next-trace/scg-consumer-bus/container"
)

type mailer struct{ n int }

type biller struct{}

func TestRegisterResolve(t *testing.T) {
	c := container.New()

	calls := 0
	mt := reflect.TypeFor[*mailer]()

	if err := c.Register(mt, func() any { calls++; return &mailer{n: calls} }); err != nil {
		t.Fatalf("register: %v", err)
	}

	a, err := c.Resolve(mt)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	b, _ := c.Resolve(mt)
	if a.(*mailer).n != 1 || b.(*mailer).n != 2 {
		t.Fatalf("factory must run per resolve: a=%v b=%v", a, b)
	}
}

func TestRegisterDuplicateAndResolveMissing(t *testing.T) {
	c := container.New()
	bt := reflect.TypeFor[biller]()

	_ = c.Register(bt, func() any { return biller{} })

	if err := c.Register(bt, func() any { return biller{} }); !errors.Is(err, berr.ErrHandlerExists) {
		t.Fatalf("want ErrHandlerExists, got %v", err)
	}

	if _, err := c.Resolve(reflect.TypeFor[*mailer]()); !errors.Is(err, berr.ErrHandlerNotFound) {
		t.Fatalf("want ErrHandlerNotFound, got %v", err)
	}

	if err := c.Register(nil, func() any { return nil }); err == nil {
		t.Fatalf("expected error for nil type")
	}
}

func TestTypesSortedAndConcurrentResolve(t *testing.T) {
	c := container.New()
	_ = c.Register(reflect.TypeFor[*mailer](), func() any { return &mailer{} })
	_ = c.Register(reflect.TypeFor[biller](), func() any { return biller{} })

	types := c.Types()
	if len(types) != 2 || types[0].String() != "*container_test.mailer" || types[1].String() != "container_test.biller" {
		t.Fatalf("types=%v", types)
	}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Resolve(reflect.TypeFor[biller]()); err != nil {
				t.Errorf("resolve: %v", err)
			}
		}()
	}
	wg.Wait()
}
