package netwait

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net"
	"testing"
	"time"
)

func stubLinks(t *testing.T, f func() ([]Link, error)) {
	t.Helper()
	orig := listLinks
	listLinks = f
	t.Cleanup(func() { listLinks = orig })
}

func TestWaitComesUp(t *testing.T) {
	var polls int
	stubLinks(t, func() ([]Link, error) {
		polls++
		ls := []Link{{Interface: "lo", IP: net.IPv4(127, 0, 0, 1), loopback: true}}
		if polls >= 3 {
			ls = append(ls, Link{Interface: "wlan0", IP: net.IPv4(192, 168, 2, 88)})
		}
		return ls, nil
	})

	buf := bytes.NewBuffer(nil)
	link, err := Wait(context.Background(), Config{Attempts: 5, Interval: time.Millisecond}, log.New(buf, "", 0))
	if err != nil {
		t.Fatal(err)
	}
	if link.Interface != "wlan0" || !link.IP.Equal(net.IPv4(192, 168, 2, 88)) {
		t.Errorf("unexpected link %s", link)
	}
	if polls != 3 {
		t.Errorf("Expected 3 polls, got %d", polls)
	}
	if buf.Len() == 0 {
		t.Errorf("waiting was not logged")
	}
}

func TestWaitNamedLoopback(t *testing.T) {
	stubLinks(t, func() ([]Link, error) {
		return []Link{{Interface: "lo", IP: net.IPv4(127, 0, 0, 1), loopback: true}}, nil
	})

	link, err := Wait(context.Background(), Config{Interface: "lo", Attempts: 1}, log.New(bytes.NewBuffer(nil), "", 0))
	if err != nil {
		t.Fatal(err)
	}
	if link.Interface != "lo" {
		t.Errorf("Expected lo, got %s", link.Interface)
	}
}

func TestWaitGivesUp(t *testing.T) {
	var polls int
	stubLinks(t, func() ([]Link, error) {
		polls++
		return nil, nil
	})

	_, err := Wait(context.Background(), Config{Interface: "wlan0", Attempts: 4, Interval: time.Millisecond}, log.New(bytes.NewBuffer(nil), "", 0))
	if !errors.Is(err, ErrNoLink) {
		t.Fatalf("Expected ErrNoLink, got %v", err)
	}
	if polls != 4 {
		t.Errorf("Expected 4 polls, got %d", polls)
	}
}

func TestWaitCanceled(t *testing.T) {
	stubLinks(t, func() ([]Link, error) { return nil, nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Wait(ctx, Config{Attempts: 100, Interval: time.Hour}, log.New(bytes.NewBuffer(nil), "", 0))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
