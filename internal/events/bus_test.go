package events

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(64)

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, EventButtonPress)

	n, err := bus.Publish(NewMessageEvent(EventButtonPress, "m1", "press"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 delivery, got %d", n)
	}
	bus.Publish(NewEvent(EventMenuSelect, "select"))

	bus.Close()

	mu.Lock()
	defer mu.Unlock()

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventButtonPress || received[0].MessageID != "m1" {
		t.Errorf("unexpected event %+v", received[0])
	}
	if received[0].ID == "" {
		t.Error("event id should be set")
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus(64)

	var mu sync.Mutex
	count := 0

	unsub := bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewEvent(EventInteractionReceived, nil))
	bus.Publish(NewEvent(EventComponent, nil))
	unsub()
	if n, _ := bus.Publish(NewEvent(EventComponent, nil)); n != 0 {
		t.Errorf("unsubscribed handler still received the event")
	}
	bus.Close()

	mu.Lock()
	defer mu.Unlock()

	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}

func TestBusClosed(t *testing.T) {
	bus := NewBus(4)
	bus.Close()
	bus.Close()
	if _, err := bus.Publish(NewEvent(EventComponent, nil)); !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
}

func TestHistory(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	for i := 0; i < 6; i++ {
		msg := "m1"
		if i%2 == 1 {
			msg = "m2"
		}
		bus.Publish(NewMessageEvent(EventComponent, msg, i))
	}

	events := bus.History(10)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[0].Payload != 2 || events[3].Payload != 5 {
		t.Errorf("expected oldest-first 2..5, got %v..%v", events[0].Payload, events[3].Payload)
	}
	if last := bus.History(1); len(last) != 1 || last[0].Payload != 5 {
		t.Errorf("History(1) = %v", last)
	}

	m1 := bus.MessageHistory("m1", 10)
	if len(m1) != 2 || m1[0].Payload != 2 || m1[1].Payload != 4 {
		t.Errorf("m1 history = %v", m1)
	}
	if got := bus.MessageHistory("m2", 1); len(got) != 1 || got[0].Payload != 5 {
		t.Errorf("m2 newest = %v", got)
	}
	if got := bus.History(0); got != nil {
		t.Errorf("History(0) = %v", got)
	}
}

func TestSubscribeChan(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(8, EventSlashCommand)
	defer unsub()

	bus.Publish(NewEvent(EventSlashCommand, "cmd"))

	select {
	case e := <-ch:
		if e.Type != EventSlashCommand {
			t.Errorf("expected slash_command, got %s", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}
