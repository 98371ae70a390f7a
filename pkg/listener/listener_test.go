package listener

import (
	"sync"
	"testing"
	"time"

	"eventwire/pkg/conn"
	"eventwire/pkg/consumer"
	"eventwire/pkg/event"
	"eventwire/pkg/netaddr"
	"eventwire/pkg/packet"
)

func TestFullLoopbackFlow(t *testing.T) {
	server, err := New(Config{RingCapacity: 4096})
	if err != nil {
		t.Fatalf("New server: %v", err)
	}
	if err := server.Listen(netaddr.Address{IP: loopback(), Port: 0}); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	var mu sync.Mutex
	var gotValue int32
	var gotOK bool
	srvConsumer := consumer.New()
	srvConsumer.Bind("ping", func(c *conn.Connection, ev event.Event) {
		r := packet.NewReader(ev.Packet)
		v, err := packet.ReadInt32(r)
		mu.Lock()
		if err == nil {
			gotValue = v
			gotOK = true
		}
		mu.Unlock()
		c.Send(event.Event{Name: "pong"})
	})
	if err := server.AddConsumer(srvConsumer); err != nil {
		t.Fatalf("AddConsumer: %v", err)
	}
	if err := server.Run(); err != nil {
		t.Fatalf("server Run: %v", err)
	}
	defer func() { server.Close(); server.Join() }()

	addr, err := server.Addr()
	if err != nil {
		t.Fatalf("Addr: %v", err)
	}

	client, err := New(Config{RingCapacity: 4096})
	if err != nil {
		t.Fatalf("New client: %v", err)
	}

	var pongMu sync.Mutex
	var pongReceived bool
	cliConsumer := consumer.New()
	cliConsumer.Bind("pong", func(*conn.Connection, event.Event) {
		pongMu.Lock()
		pongReceived = true
		pongMu.Unlock()
	})
	if err := client.AddConsumer(cliConsumer); err != nil {
		t.Fatalf("AddConsumer: %v", err)
	}
	if err := client.Run(); err != nil {
		t.Fatalf("client Run: %v", err)
	}
	defer func() { client.Close(); client.Join() }()

	c, err := client.Connect(addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ev, err := event.Make("ping", packet.Int32Field(123))
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if err := c.Send(ev); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		ok := gotOK
		mu.Unlock()
		pongMu.Lock()
		pong := pongReceived
		pongMu.Unlock()
		if ok && pong {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if !gotOK || gotValue != 123 {
		t.Fatalf("server did not observe expected ping payload: ok=%v value=%d", gotOK, gotValue)
	}
	pongMu.Lock()
	defer pongMu.Unlock()
	if !pongReceived {
		t.Fatal("client never received pong")
	}
}

func TestAddConsumerAfterRunFails(t *testing.T) {
	l, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
	defer func() { l.Close(); l.Join() }()

	if err := l.AddConsumer(consumer.New()); err == nil {
		t.Fatal("expected AddConsumer to fail once running")
	}
}

func TestOnConnectRunsBeforeFirstEventAndSynchronously(t *testing.T) {
	server, err := New(Config{RingCapacity: 4096})
	if err != nil {
		t.Fatalf("New server: %v", err)
	}
	if err := server.Listen(netaddr.Address{IP: loopback(), Port: 0}); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	var mu sync.Mutex
	var connectSeen, pingSeen bool
	if err := server.SetOnConnect(func(cn *conn.Connection) {
		mu.Lock()
		connectSeen = true
		mu.Unlock()
	}); err != nil {
		t.Fatalf("SetOnConnect: %v", err)
	}

	srvConsumer := consumer.New()
	srvConsumer.Bind("ping", func(*conn.Connection, event.Event) {
		mu.Lock()
		defer mu.Unlock()
		if !connectSeen {
			t.Error("ping event observed before on_connect ran")
		}
		pingSeen = true
	})
	if err := server.AddConsumer(srvConsumer); err != nil {
		t.Fatalf("AddConsumer: %v", err)
	}
	if err := server.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer func() { server.Close(); server.Join() }()

	addr, err := server.Addr()
	if err != nil {
		t.Fatalf("Addr: %v", err)
	}

	client, err := New(Config{RingCapacity: 4096})
	if err != nil {
		t.Fatalf("New client: %v", err)
	}
	if err := client.Run(); err != nil {
		t.Fatalf("client Run: %v", err)
	}
	defer func() { client.Close(); client.Join() }()

	c, err := client.Connect(addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ev, _ := event.Make("ping")
	if err := c.Send(ev); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := pingSeen
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if !connectSeen {
		t.Fatal("on_connect never ran")
	}
	if !pingSeen {
		t.Fatal("ping event never observed")
	}
}

func TestSetOnConnectAfterRunFails(t *testing.T) {
	l, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
	defer func() { l.Close(); l.Join() }()

	if err := l.SetOnConnect(func(*conn.Connection) {}); err == nil {
		t.Fatal("expected SetOnConnect to fail once running")
	}
}

func TestTCPServerAttachDetach(t *testing.T) {
	l, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	s := NewTCPServer(netaddr.Address{IP: loopback(), Port: 0})

	if err := s.Attach(l); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := s.Attach(l); err == nil {
		t.Fatal("expected second Attach of an already-attached server to fail")
	}

	other, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Detach(other); err == nil {
		t.Fatal("expected Detach from a non-owning listener to fail")
	}

	if err := s.Detach(l); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	// once detached, s can attach elsewhere.
	if err := s.Attach(other); err != nil {
		t.Fatalf("re-Attach after Detach: %v", err)
	}
}

func TestTCPServerAttachFailsWhileListenerRunning(t *testing.T) {
	l, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
	defer func() { l.Close(); l.Join() }()

	s := NewTCPServer(netaddr.Address{IP: loopback(), Port: 0})
	if err := s.Attach(l); err == nil {
		t.Fatal("expected Attach to fail once the listener is running")
	}
}

func TestTCPClientAttachDetach(t *testing.T) {
	server, err := New(Config{RingCapacity: 4096})
	if err != nil {
		t.Fatal(err)
	}
	if err := server.Listen(netaddr.Address{IP: loopback(), Port: 0}); err != nil {
		t.Fatal(err)
	}
	if err := server.Run(); err != nil {
		t.Fatal(err)
	}
	defer func() { server.Close(); server.Join() }()

	addr, err := server.Addr()
	if err != nil {
		t.Fatal(err)
	}

	l, err := New(Config{RingCapacity: 4096})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
	defer func() { l.Close(); l.Join() }()

	cl := NewTCPClient(addr, 2*time.Second)
	if err := cl.Attach(l); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if cl.Connection() == nil {
		t.Fatal("expected a connection after Attach")
	}
	if err := cl.Attach(l); err == nil {
		t.Fatal("expected second Attach to fail")
	}

	other, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := cl.Detach(other); err == nil {
		t.Fatal("expected Detach from a non-owning listener to fail")
	}
	if err := cl.Detach(l); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if cl.Connection() != nil {
		t.Fatal("expected Connection to be cleared after Detach")
	}
}

func loopback() []byte { return []byte{127, 0, 0, 1} }
