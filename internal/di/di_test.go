package di_test

import (
	"testing"

	"github.com/fd1az/omniroute/internal/di"
)

type greeter struct{ name string }

var (
	nameToken    = di.NewToken[string]("test:name")
	greeterToken = di.NewToken[*greeter]("test:greeter")
)

func TestContainer_LazySingleton(t *testing.T) {
	c := di.NewContainer()
	calls := 0

	di.RegisterValue(c, nameToken, "omni")
	di.RegisterToken(c, greeterToken, func(sr di.ServiceRegistry) *greeter {
		calls++
		return &greeter{name: di.GetToken(sr, nameToken)}
	})

	if calls != 0 {
		t.Fatal("factory ran before first Get")
	}

	g1 := di.GetToken(c, greeterToken)
	g2 := di.GetToken(c, greeterToken)

	if g1 != g2 {
		t.Error("expected the same instance on every Get")
	}
	if calls != 1 {
		t.Errorf("expected factory to run once, ran %d times", calls)
	}
	if g1.name != "omni" {
		t.Errorf("expected name omni, got %s", g1.name)
	}
}

func TestContainer_UnknownPanics(t *testing.T) {
	c := di.NewContainer()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown service")
		}
	}()
	c.Get("missing")
}
