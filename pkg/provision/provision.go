// Package provision creates and removes the cloud servers production
// sites run on.
package provision

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"golang.org/x/time/rate"

	nwperr "github.com/nwpdev/nwp/pkg/errors"
)

// Spec says what kind of server to create.
type Spec struct {
	Name          string
	Image         string
	Type          string
	KeyName       string
	SecurityGroup string
}

type Instance struct {
	ID      string
	State   string
	Address string
}

// Ready says whether the instance is running and has an address.
func (i Instance) Ready() bool {
	return i.State == "running" && i.Address != ""
}

// Provider is a cloud that servers can be created in.
type Provider interface {
	Create(ctx context.Context, spec Spec) (Instance, error)
	Get(ctx context.Context, id string) (Instance, error)
	Delete(ctx context.Context, id string) error
}

const (
	DefaultTimeout  = 5 * time.Minute
	DefaultInterval = 10 * time.Second
)

// Probe checks whether an address is reachable.
type Probe func(ctx context.Context, address string) error

// SSHProbe checks an address accepts connections on the ssh port.
func SSHProbe(ctx context.Context, address string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(address, strconv.Itoa(22)))
	if err != nil {
		return err
	}
	return conn.Close()
}

type WaitOptions struct {
	Timeout  time.Duration
	Interval time.Duration
	// Optional; if nil, the instance only has to be running.
	Probe Probe
}

// WaitReachable polls the instance until it is ready and, if there's a
// probe, the probe succeeds. If that hasn't happened within the timeout
// it gives up with a Timeout error; deleting the instance is up to the
// caller.
func WaitReachable(ctx context.Context, logger log.Logger, p Provider, id string, opts WaitOptions) (Instance, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(opts.Interval), 1)
	var last Instance
	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		inst, err := p.Get(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return last, err
		}
		last = inst
		if !inst.Ready() {
			level.Debug(logger).Log("instance", id, "state", inst.State, "attempt", attempt)
			continue
		}
		if opts.Probe == nil {
			return inst, nil
		}
		if err := opts.Probe(ctx, inst.Address); err != nil {
			level.Debug(logger).Log("instance", id, "address", inst.Address, "probe", err, "attempt", attempt)
			continue
		}
		return inst, nil
	}
	return last, &nwperr.Error{
		Kind: nwperr.Timeout,
		Err:  fmt.Errorf("instance %s not reachable after %s (last state %q)", id, opts.Timeout, last.State),
		Help: fmt.Sprintf(`The new server %s did not become reachable within %s. It will be
deleted. You can allow longer by setting provisionTimeout in the nwp
configuration file.
`, id, opts.Timeout),
	}
}
