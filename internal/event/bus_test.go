package event

import "testing"

func TestBus_PublishReachesSubscribers(t *testing.T) {
	bus := NewBus()

	var got []IncrementBalance
	bus.Subscribe(TypeIncrementBalance, func(p any) {
		got = append(got, p.(IncrementBalance))
	})

	bus.Publish(TypeIncrementBalance, IncrementBalance{Resource: "currencySoft", Amount: 5})

	if len(got) != 1 {
		t.Fatalf("want 1 delivery, got %d", len(got))
	}
	if got[0].Resource != "currencySoft" || got[0].Amount != 5 {
		t.Fatalf("unexpected payload %+v", got[0])
	}
}

func TestBus_PublishIsSynchronous(t *testing.T) {
	bus := NewBus()
	done := false
	bus.Subscribe(TypeMilestoneFired, func(any) { done = true })

	bus.Publish(TypeMilestoneFired, MilestoneFired{MilestoneID: "m"})
	if !done {
		t.Fatal("handler must run before Publish returns")
	}
}

func TestBus_TypeIsolation(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.Subscribe(TypeBalanceChanged, func(any) { calls++ })

	bus.Publish(TypeMilestoneFired, MilestoneFired{})
	bus.Publish(TypeIncrementBalance, IncrementBalance{})

	if calls != 0 {
		t.Fatalf("handler leaked across types, %d calls", calls)
	}
}

func TestBus_MultipleSubscribersInOrder(t *testing.T) {
	bus := NewBus()
	var order []int
	bus.Subscribe(TypeBalanceChanged, func(any) { order = append(order, 1) })
	bus.Subscribe(TypeBalanceChanged, func(any) { order = append(order, 2) })

	bus.Publish(TypeBalanceChanged, BalanceChanged{})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("want [1 2], got %v", order)
	}
}

func TestBus_PublishWithNoSubscribers(t *testing.T) {
	bus := NewBus()
	bus.Publish(TypeBalanceChanged, BalanceChanged{})
}
