package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/lojasmm/discordui/internal/components"
	"github.com/lojasmm/discordui/internal/discord"
	"github.com/lojasmm/discordui/internal/events"
	"github.com/lojasmm/discordui/internal/interaction"
	"github.com/lojasmm/discordui/internal/store"
)

type fakeAPI struct {
	mu        sync.Mutex
	responses []*discord.InteractionResponse
	sent      []*discord.MessageSend
	edits     []*discord.MessageEdit
	deleted   []string
	nextID    int
}

func (f *fakeAPI) id() string {
	f.nextID++
	return fmt.Sprintf("msg%d", f.nextID)
}

func (f *fakeAPI) RespondInteraction(_ context.Context, _, _ string, resp *discord.InteractionResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeAPI) EditOriginal(_ context.Context, _ string, edit *discord.MessageEdit) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit)
	return &discord.Message{ID: "original"}, nil
}

func (f *fakeAPI) DeleteOriginal(context.Context, string) error { return nil }

func (f *fakeAPI) FollowUp(_ context.Context, _ string, msg *discord.MessageSend) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return &discord.Message{ID: f.id(), Flags: msg.Flags}, nil
}

func (f *fakeAPI) EditFollowUp(_ context.Context, _, messageID string, edit *discord.MessageEdit) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit)
	return &discord.Message{ID: messageID}, nil
}

func (f *fakeAPI) DeleteFollowUp(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeAPI) SendMessage(_ context.Context, channelID string, msg *discord.MessageSend) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return &discord.Message{ID: f.id(), ChannelID: channelID, Content: msg.Content}, nil
}

func (f *fakeAPI) EditMessage(_ context.Context, channelID, messageID string, edit *discord.MessageEdit) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit)
	return &discord.Message{ID: messageID, ChannelID: channelID}, nil
}

func (f *fakeAPI) DeleteMessage(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeAPI) CreateDM(_ context.Context, userID string) (string, error) {
	return "dm-" + userID, nil
}

func (f *fakeAPI) ExecuteWebhook(_ context.Context, _, _ string, msg *discord.WebhookMessage) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &discord.Message{ID: f.id(), Content: msg.Content}, nil
}

func newTestComponents(t *testing.T, opts Options) (*Components, *fakeAPI, *store.BoltStore) {
	t.Helper()
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	api := &fakeAPI{}
	bus := events.NewBus(32)
	c := New(api, bus, st, nil, opts)
	t.Cleanup(func() {
		c.Close()
		bus.Close()
		st.Close()
	})
	return c, api, st
}

func buttonPayload(messageID, customID, userID string) *discord.Interaction {
	raw := fmt.Sprintf(`{
		"id": "i-%s", "application_id": "app", "type": 3, "token": "tok", "channel_id": "c1",
		"user": {"id": %q, "username": "u"},
		"data": {"custom_id": %q, "component_type": 2},
		"message": {"id": %q, "channel_id": "c1", "content": "", "components": [
			{"type": 1, "components": [{"type": 2, "style": 1, "label": "Press", "custom_id": %q}]}
		]}
	}`, customID, userID, customID, messageID, customID)
	var i discord.Interaction
	if err := json.Unmarshal([]byte(raw), &i); err != nil {
		panic(err)
	}
	return &i
}

// awaitWaiters blocks until n WaitFor calls are registered.
func awaitWaiters(t *testing.T, c *Components, n int) {
	t.Helper()
	for i := 0; i < 200; i++ {
		c.mu.RLock()
		got := len(c.waiters)
		c.mu.RUnlock()
		if got == n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d registered waiters", n)
}

func eventTypes(b *events.Bus) []events.EventType {
	var out []events.EventType
	for _, e := range b.History(32) {
		out = append(out, e.Type)
	}
	return out
}

func TestHandleRawIgnoresOtherEvents(t *testing.T) {
	c, _, _ := newTestComponents(t, Options{})
	if err := c.HandleRaw(context.Background(), "MESSAGE_CREATE", json.RawMessage(`{"garbage"`)); err != nil {
		t.Errorf("non-interaction events should be ignored, got %v", err)
	}
	if err := c.HandleRaw(context.Background(), discord.EventInteractionCreate, json.RawMessage(`{"type":`)); err == nil {
		t.Error("expected decode error")
	}
	if len(c.Bus().History(10)) != 0 {
		t.Error("nothing should have been published")
	}
}

func TestComponentEventOrder(t *testing.T) {
	c, _, _ := newTestComponents(t, Options{})

	var order []string
	var mu sync.Mutex
	note := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	c.AddListeningComponent(ListeningComponent{CustomID: "go", Callback: func(context.Context, interaction.Component) error {
		note("listening-1")
		return nil
	}})
	c.AddListeningComponent(ListeningComponent{CustomID: "g", Prefix: true, Callback: func(context.Context, interaction.Component) error {
		note("listening-2")
		return errors.New("logged, not fatal")
	}})
	c.AttachListener("m1", NewListener(0).OnButton("go", func(context.Context, interaction.Component) error {
		note("listener")
		return nil
	}))

	if err := c.HandleInteraction(context.Background(), buttonPayload("m1", "go", "u1")); err != nil {
		t.Fatal(err)
	}

	want := []events.EventType{events.EventInteractionReceived, events.EventComponent, events.EventButtonPress}
	got := eventTypes(c.Bus())
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if fmt.Sprint(order) != "[listening-1 listening-2 listener]" {
		t.Errorf("callback order = %v", order)
	}
	if e := c.Bus().History(1)[0]; e.MessageID != "m1" {
		t.Errorf("event message id = %q", e.MessageID)
	}
	if n := len(c.Bus().MessageHistory("m1", 10)); n != 3 {
		t.Errorf("expected 3 events for m1, got %d", n)
	}
}

func TestListeningComponentFilters(t *testing.T) {
	c, _, _ := newTestComponents(t, Options{})

	hits := map[string]int{}
	add := func(name string, lc ListeningComponent) string {
		lc.CustomID = "btn"
		lc.Callback = func(context.Context, interaction.Component) error {
			hits[name]++
			return nil
		}
		id, err := c.AddListeningComponent(lc)
		if err != nil {
			t.Fatal(err)
		}
		return id
	}
	add("any", ListeningComponent{})
	add("msg", ListeningComponent{Messages: []string{"other"}})
	add("user", ListeningComponent{Users: []string{"u1"}})
	add("select", ListeningComponent{Kind: components.TypeSelectMenu})
	add("check", ListeningComponent{Check: func(comp interaction.Component) bool {
		return comp.(*interaction.ButtonInteraction).Label() == "Press"
	}})
	removable := add("removed", ListeningComponent{})
	if !c.RemoveListeningComponent(removable) {
		t.Error("RemoveListeningComponent should report success")
	}

	c.HandleInteraction(context.Background(), buttonPayload("m1", "btn", "u1"))
	c.HandleInteraction(context.Background(), buttonPayload("m1", "btn", "u2"))

	want := map[string]int{"any": 2, "user": 1, "check": 2}
	if fmt.Sprint(hits) != fmt.Sprint(want) {
		t.Errorf("hits = %v, want %v", hits, want)
	}

	if n := c.RemoveListeningComponents("btn"); n != 5 {
		t.Errorf("removed %d, want 5", n)
	}
	if len(c.ListeningComponents()) != 0 {
		t.Error("registrations left behind")
	}

	if _, err := c.AddListeningComponent(ListeningComponent{Callback: func(context.Context, interaction.Component) error { return nil }}); !errors.Is(err, ErrMissingCustomID) {
		t.Errorf("expected ErrMissingCustomID, got %v", err)
	}
	if _, err := c.AddListeningComponent(ListeningComponent{CustomID: "x"}); !errors.Is(err, ErrMissingCallback) {
		t.Errorf("expected ErrMissingCallback, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want components.ComponentType
		err  bool
	}{
		{"button", components.TypeButton, false},
		{"2", components.TypeButton, false},
		{"select", components.TypeSelectMenu, false},
		{"3", components.TypeSelectMenu, false},
		{"", 0, false},
		{"1", 0, true},
		{"modal", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseKind(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestListenerUsersAndTimeout(t *testing.T) {
	c, _, _ := newTestComponents(t, Options{})

	presses := 0
	timedOut := make(chan string, 1)
	l := NewListener(30 * time.Millisecond).OnAny(func(context.Context, interaction.Component) error {
		presses++
		return nil
	})
	l.Users = []string{"owner"}
	l.OnTimeout = func(id string) { timedOut <- id }
	c.AttachListener("m1", l)

	c.HandleInteraction(context.Background(), buttonPayload("m1", "x", "intruder"))
	c.HandleInteraction(context.Background(), buttonPayload("m1", "x", "owner"))
	if presses != 1 {
		t.Errorf("presses = %d, want 1", presses)
	}

	select {
	case id := <-timedOut:
		if id != "m1" {
			t.Errorf("timed out message = %q", id)
		}
	case <-time.After(time.Second):
		t.Fatal("listener never timed out")
	}
	if _, ok := c.Listener("m1"); ok {
		t.Error("listener should be detached after its timeout")
	}
}

func TestClearListeners(t *testing.T) {
	c, _, _ := newTestComponents(t, Options{})
	fired := make(chan string, 1)
	l := NewListener(20 * time.Millisecond)
	l.OnTimeout = func(id string) { fired <- id }
	c.AttachListener("m1", l)
	c.ClearListeners()

	select {
	case <-fired:
		t.Error("cleared listener should not time out")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestWaitFor(t *testing.T) {
	c, _, _ := newTestComponents(t, Options{})

	result := make(chan interaction.Component, 1)
	errs := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		comp, err := c.WaitFor(ctx, "m1", components.TypeButton, func(comp interaction.Component) bool {
			return comp.Context().Author.ID == "owner"
		})
		result <- comp
		errs <- err
	}()

	awaitWaiters(t, c, 1)

	c.HandleInteraction(context.Background(), buttonPayload("m2", "b", "owner"))
	c.HandleInteraction(context.Background(), buttonPayload("m1", "b", "other"))
	c.HandleInteraction(context.Background(), buttonPayload("m1", "b", "owner"))

	if err := <-errs; err != nil {
		t.Fatalf("WaitFor: %v", err)
	}
	comp := <-result
	if comp.Context().Author.ID != "owner" || comp.Context().Message.ID != "m1" {
		t.Errorf("unexpected interaction %+v", comp.Context())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.WaitFor(ctx, "m1", 0, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestWaitForInsideListener(t *testing.T) {
	c, _, _ := newTestComponents(t, Options{})
	ctx := context.Background()

	waited := make(chan error, 1)
	c.AttachListener("m1", NewListener(0).OnButton("first", func(ctx context.Context, _ interaction.Component) error {
		wctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		comp, err := c.WaitFor(wctx, "m1", components.TypeButton, func(comp interaction.Component) bool {
			return comp.Context().CustomID == "second"
		})
		if err == nil && comp.Context().CustomID != "second" {
			err = fmt.Errorf("got %q", comp.Context().CustomID)
		}
		waited <- err
		return nil
	}))

	first := make(chan error, 1)
	go func() { first <- c.HandleInteraction(ctx, buttonPayload("m1", "first", "u1")) }()
	awaitWaiters(t, c, 1)

	if err := c.HandleInteraction(ctx, buttonPayload("m1", "second", "u1")); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-waited:
		if err != nil {
			t.Errorf("WaitFor in listener: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener never got the second press")
	}
	if err := <-first; err != nil {
		t.Errorf("first press: %v", err)
	}
}

func TestReattachListenerRestartsTimer(t *testing.T) {
	c, _, _ := newTestComponents(t, Options{})

	fired := make(chan string, 2)
	l := NewListener(100 * time.Millisecond)
	l.OnTimeout = func(id string) { fired <- id }

	c.AttachListener("m1", l)
	time.Sleep(60 * time.Millisecond)
	c.AttachListener("m1", l)
	time.Sleep(60 * time.Millisecond)

	if _, ok := c.Listener("m1"); !ok {
		t.Fatal("listener expired on the timer of its first attachment")
	}
	select {
	case id := <-fired:
		if id != "m1" {
			t.Errorf("timed out message = %q", id)
		}
	case <-time.After(time.Second):
		t.Fatal("listener never timed out")
	}
	select {
	case <-fired:
		t.Error("listener timed out twice")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestListenerMovesBetweenMessages(t *testing.T) {
	c, _, _ := newTestComponents(t, Options{})

	var pressed []string
	l := NewListener(0).OnAny(func(_ context.Context, comp interaction.Component) error {
		pressed = append(pressed, comp.Context().Message.ID)
		return nil
	})
	c.AttachListener("m1", l)
	c.AttachListener("m2", l)

	if _, ok := c.Listener("m1"); ok {
		t.Error("listener should have left m1")
	}
	c.HandleInteraction(context.Background(), buttonPayload("m1", "x", "u"))
	c.HandleInteraction(context.Background(), buttonPayload("m2", "x", "u"))
	if fmt.Sprint(pressed) != "[m2]" {
		t.Errorf("pressed = %v", pressed)
	}
}

func TestFollowUpEditAndDelete(t *testing.T) {
	c, api, st := newTestComponents(t, Options{})

	var sent *discord.Message
	var result error
	c.AddListeningComponent(ListeningComponent{CustomID: "go", Callback: func(ctx context.Context, comp interaction.Component) error {
		result = func() error {
			cc := comp.Context()
			if err := cc.Defer(ctx, false); err != nil {
				return err
			}
			msg, err := cc.FollowUp(ctx, interaction.MessageOptions{
				Content:    "more",
				Components: []components.Component{components.NewButton("more", "More", components.StylePrimary)},
			})
			if err != nil {
				return err
			}
			sent = msg
			_, err = cc.EditFollowUp(ctx, msg.ID, interaction.MessageOptions{
				Components: []components.Component{components.NewButton("less", "Less", components.StyleDanger)},
			})
			if err != nil {
				return err
			}

			rec, err := st.GetMessage(msg.ID)
			if err != nil || rec == nil {
				return fmt.Errorf("follow-up not recorded: %v", err)
			}
			if _, ok := components.Find(rec.Components, "less"); !ok {
				return fmt.Errorf("edited layout not recorded: %+v", rec.Components)
			}
			return cc.DeleteFollowUp(ctx, msg.ID)
		}()
		return result
	}})

	if err := c.HandleInteraction(context.Background(), buttonPayload("m1", "go", "u")); err != nil {
		t.Fatal(err)
	}
	if result != nil {
		t.Fatal(result)
	}
	if rec, _ := st.GetMessage(sent.ID); rec != nil {
		t.Error("deleted follow-up should be forgotten")
	}
	if len(api.deleted) != 1 || api.deleted[0] != sent.ID {
		t.Errorf("deleted = %v, want [%s]", api.deleted, sent.ID)
	}
}

func TestAutoDefer(t *testing.T) {
	c, api, _ := newTestComponents(t, Options{AutoDefer: true})

	var deferred bool
	c.AddListeningComponent(ListeningComponent{CustomID: "b", Callback: func(_ context.Context, comp interaction.Component) error {
		deferred = comp.Context().Deferred()
		return nil
	}})
	c.HandleInteraction(context.Background(), buttonPayload("m1", "b", "u"))

	if len(api.responses) != 1 || api.responses[0].Type != discord.ResponseDeferredMessageUpdate {
		t.Fatalf("expected one deferred update, got %+v", api.responses)
	}
	if !deferred {
		t.Error("listeners should see the interaction already deferred")
	}
}

func TestStoredLayoutForEphemeralMessage(t *testing.T) {
	c, _, _ := newTestComponents(t, Options{})
	ctx := context.Background()

	// a slash command answered with a hidden menu
	var cmd discord.Interaction
	json.Unmarshal([]byte(`{"id":"cmd1","type":2,"token":"t","channel_id":"c1","user":{"id":"u"},"data":{"name":"pick"}}`), &cmd)
	answer := make(chan *interaction.CommandInteraction, 1)
	c.OnCommand("pick", func(_ context.Context, ci *interaction.CommandInteraction) { answer <- ci })
	if err := c.HandleInteraction(ctx, &cmd); err != nil {
		t.Fatal(err)
	}
	ci := <-answer
	menu := components.NewSelectMenu("lang",
		components.NewSelectOption("go", "Go", ""),
		components.NewSelectOption("rs", "Rust", ""))
	if _, err := ci.Respond(ctx, interaction.MessageOptions{Content: "pick", Components: []components.Component{menu}, Hidden: true}); err != nil {
		t.Fatal(err)
	}

	// the selection arrives on a message that carries no components
	var sel discord.Interaction
	json.Unmarshal([]byte(`{"id":"i2","type":3,"token":"t2","user":{"id":"u"},
		"data":{"custom_id":"lang","component_type":3,"values":["rs"]},
		"message":{"id":"eph1","channel_id":"c1","content":"","flags":64,"interaction":{"id":"cmd1","type":2,"name":"pick"}}}`), &sel)

	got := make(chan *interaction.SelectInteraction, 1)
	c.OnMenuSelect(func(_ context.Context, s *interaction.SelectInteraction) { got <- s })
	if err := c.HandleInteraction(ctx, &sel); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-got:
		opts := s.SelectedOptions()
		if len(opts) != 1 || opts[0].Label != "Rust" {
			t.Errorf("selected options = %+v", opts)
		}
	case <-time.After(time.Second):
		t.Fatal("menu_select not delivered")
	}

	rec, err := c.store.GetMessage("eph1")
	if err != nil || rec == nil {
		t.Fatalf("layout should now be filed under the message id: %v %v", rec, err)
	}
	if !rec.Ephemeral {
		t.Error("record should be marked ephemeral")
	}
}

func TestSendRecordsAndAttaches(t *testing.T) {
	c, api, st := newTestComponents(t, Options{})
	ctx := context.Background()

	l := NewListener(0)
	msg, err := c.Send(ctx, "c1", SendOptions{
		Content:    "hi",
		Components: []components.Component{components.NewButton("a", "A", components.StylePrimary)},
		Listener:   l,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(api.sent) != 1 || len(api.sent[0].Components) != 1 {
		t.Fatalf("sent = %+v", api.sent)
	}
	rec, _ := st.GetMessage(msg.ID)
	if rec == nil || len(rec.Components) != 1 {
		t.Errorf("layout not recorded: %+v", rec)
	}
	if got, ok := c.Listener(msg.ID); !ok || got != l {
		t.Error("listener not attached")
	}

	dm, err := c.SendDM(ctx, "u9", SendOptions{Content: "psst"})
	if err != nil {
		t.Fatal(err)
	}
	if dm.ChannelID != "dm-u9" {
		t.Errorf("dm channel = %q", dm.ChannelID)
	}

	if _, err := c.Send(ctx, "c1", SendOptions{Components: []components.Component{components.NewButton("", "", components.StylePrimary)}}); err == nil {
		t.Error("invalid components should fail before sending")
	}

	if err := c.Delete(ctx, "c1", msg.ID); err != nil {
		t.Fatal(err)
	}
	if rec, _ := st.GetMessage(msg.ID); rec != nil {
		t.Error("layout should be forgotten on delete")
	}
	if _, ok := c.Listener(msg.ID); ok {
		t.Error("listener should be detached on delete")
	}
}

func TestPutListener(t *testing.T) {
	c, api, _ := newTestComponents(t, Options{})
	l := NewListener(0, components.NewButton("ok", "OK", components.StyleSuccess))

	if err := c.PutListener(context.Background(), &discord.Message{ID: "m5", ChannelID: "c1"}, l); err != nil {
		t.Fatal(err)
	}
	if len(api.edits) != 1 || api.edits[0].Components == nil || len(*api.edits[0].Components) != 1 {
		t.Errorf("expected the message to be edited with the listener's components, got %+v", api.edits)
	}
	if _, ok := c.Listener("m5"); !ok {
		t.Error("listener not attached")
	}
}

func TestHandleGatewayPayloadAndAttach(t *testing.T) {
	c, _, _ := newTestComponents(t, Options{})

	frame, _ := json.Marshal(map[string]any{"op": 0, "t": "INTERACTION_CREATE", "s": 3, "d": buttonPayload("m1", "b", "u")})
	if err := c.HandleGatewayPayload(context.Background(), frame); err != nil {
		t.Fatal(err)
	}
	if err := c.HandleGatewayPayload(context.Background(), []byte(`{"op":11}`)); err != nil {
		t.Errorf("heartbeat ack should be ignored, got %v", err)
	}
	if n := len(c.Bus().History(32)); n != 3 {
		t.Errorf("expected 3 events, got %d", n)
	}

	host := &fakeHost{}
	remove := c.Attach(host)
	data, _ := json.Marshal(buttonPayload("m2", "b", "u"))
	host.fire(&discordgo.Event{Type: "INTERACTION_CREATE", RawData: data})
	host.fire(&discordgo.Event{Type: "READY", RawData: json.RawMessage(`{}`)})
	if n := len(c.Bus().History(32)); n != 6 {
		t.Errorf("expected 6 events after the host event, got %d", n)
	}
	remove()
	if !host.removed {
		t.Error("remove func not returned from the host")
	}
}

type fakeHost struct {
	handler func(*discordgo.Session, *discordgo.Event)
	removed bool
}

func (h *fakeHost) AddHandler(handler interface{}) func() {
	h.handler = handler.(func(*discordgo.Session, *discordgo.Event))
	return func() { h.removed = true }
}

func (h *fakeHost) fire(e *discordgo.Event) { h.handler(nil, e) }
