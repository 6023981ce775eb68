// Package netwait blocks until the host has a usable network link.
package netwait

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"
)

var ErrNoLink = errors.New("no network link")

type Config struct {
	// Interface to wait for, empty picks the first one that comes up.
	Interface string
	Attempts  int
	Interval  time.Duration
}

type Link struct {
	Interface string
	IP        net.IP
	MAC       net.HardwareAddr

	loopback bool
}

func (l Link) String() string {
	return fmt.Sprintf("%s %s (%s)", l.Interface, l.IP, l.MAC)
}

var listLinks = links

// Wait polls until the interface has an IPv4 address, giving up after
// c.Attempts polls.
func Wait(ctx context.Context, c Config, l *log.Logger) (Link, error) {
	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 1; ; i++ {
		ls, err := listLinks()
		if err != nil {
			return Link{}, err
		}

		for _, link := range ls {
			if c.Interface == link.Interface || (c.Interface == "" && !link.loopback) {
				return link, nil
			}
		}

		if i >= attempts {
			break
		}

		if i == 1 || i%10 == 0 {
			l.Printf("Waiting for network link %q (%d/%d)", c.Interface, i, attempts)
		}

		t := time.NewTimer(c.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return Link{}, ctx.Err()
		case <-t.C:
		}
	}

	if c.Interface != "" {
		return Link{}, fmt.Errorf("%w on %s after %d attempts", ErrNoLink, c.Interface, attempts)
	}
	return Link{}, fmt.Errorf("%w after %d attempts", ErrNoLink, attempts)
}

func links() ([]Link, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	ls := make([]Link, 0, len(ifaces))
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, a := range addrs {
			ipn, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipn.IP.To4(); ip4 != nil {
				ls = append(ls, Link{
					Interface: iface.Name,
					IP:        ip4,
					MAC:       iface.HardwareAddr,
					loopback:  iface.Flags&net.FlagLoopback != 0,
				})
				break
			}
		}
	}

	return ls, nil
}
