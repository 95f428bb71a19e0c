package lifecycle

import (
	"context"
	"fmt"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"

	"github.com/nwpdev/nwp/pkg/environment"
	nwperr "github.com/nwpdev/nwp/pkg/errors"
	"github.com/nwpdev/nwp/pkg/pipeline"
	"github.com/nwpdev/nwp/pkg/provision"
	"github.com/nwpdev/nwp/pkg/registry"
)

type ProvisionRequest struct {
	// Any environment name of the site; the server is for its
	// production environment.
	Site string
}

func (h *Host) provider() (provision.Provider, error) {
	if h.Provider == nil {
		return nil, nwperr.New(nwperr.InvalidConfig, "no cloud provider configured; set awsRegion")
	}
	return h.Provider, nil
}

// production gives the base and production environment names for any
// environment name of a site.
func production(name string) (string, string, error) {
	env := environment.Parse(name)
	prod, err := environment.Compose(env.Base, environment.Production)
	return env.Base, prod, err
}

// Provision builds the pipeline that creates a production server for a
// site and records it in the registry. The instance ID is recorded as
// soon as the server exists, so the later steps can be resumed, and so
// it can be deprovisioned if the run goes no further.
func (h *Host) Provision(req ProvisionRequest) (*pipeline.Pipeline, error) {
	base, prod, err := production(req.Site)
	if err != nil {
		return nil, err
	}
	p, err := h.provider()
	if err != nil {
		return nil, err
	}
	if h.Config.InstanceImage == "" {
		return nil, nwperr.New(nwperr.InvalidConfig, "no instanceImage configured for new servers")
	}

	instanceID := func() (string, error) {
		entry, err := h.Registry.Site(prod)
		if err != nil || entry.Production == nil || entry.Production.Instance == "" {
			return "", fmt.Errorf("no instance recorded for %s; start from step 1", prod)
		}
		return entry.Production.Instance, nil
	}
	var ready provision.Instance

	steps := []pipeline.Step{
		{
			Name: "validate site",
			Do: func(context.Context, log.Logger) (string, error) {
				if _, err := h.Registry.Site(base); err != nil {
					return "", err
				}
				if entry, err := h.Registry.Site(prod); err == nil && entry.Production != nil && entry.Production.Instance != "" {
					return "", nwperr.Errorf(nwperr.InvalidName, "%s already has server %s; deprovision it first", prod, entry.Production.Instance)
				}
				return prod, nil
			},
		},
		{
			Name: "create instance",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				inst, err := p.Create(ctx, provision.Spec{
					Name:          prod,
					Image:         h.Config.InstanceImage,
					Type:          h.Config.InstanceType,
					KeyName:       h.Config.InstanceKeyName,
					SecurityGroup: h.Config.InstanceSecurityGroup,
				})
				if err != nil {
					return "", err
				}
				if !h.Registry.Has(prod) {
					src, _ := h.Registry.Site(base)
					if err := h.Registry.Register(prod, registry.Site{Recipe: src.Recipe}); err != nil {
						return "", err
					}
				}
				if err := h.Registry.SetProduction(prod, &registry.Production{Instance: inst.ID}); err != nil {
					return "", err
				}
				return inst.ID, h.saveRegistry()
			},
		},
		{
			Name: "wait until reachable",
			Do: func(ctx context.Context, logger log.Logger) (string, error) {
				id, err := instanceID()
				if err != nil {
					return "", err
				}
				inst, err := provision.WaitReachable(ctx, logger, p, id, provision.WaitOptions{
					Timeout:  h.Config.ProvisionTimeout,
					Interval: h.Config.ProvisionPollInterval,
					Probe:    h.Probe,
				})
				if nwperr.Is(err, nwperr.Timeout) {
					h.discard(logger, p, prod, id)
				}
				if err != nil {
					return "", err
				}
				ready = inst
				return inst.Address, nil
			},
		},
		{
			Name: "record address",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				id, err := instanceID()
				if err != nil {
					return "", err
				}
				inst := ready
				if inst.ID == "" {
					if inst, err = p.Get(ctx, id); err != nil {
						return "", err
					}
				}
				if err := h.Registry.SetProduction(prod, &registry.Production{
					Instance: id,
					Address:  inst.Address,
					Path:     defaultRemotePath(base),
				}); err != nil {
					return "", err
				}
				return inst.Address, h.saveRegistry()
			},
		},
		{
			Name: "report address",
			Do: func(context.Context, log.Logger) (string, error) {
				entry, err := h.Registry.Site(prod)
				if err != nil || entry.Production == nil {
					return "", fmt.Errorf("no server recorded for %s", prod)
				}
				return fmt.Sprintf("%s is %s (%s)", prod, entry.Production.Address, entry.Production.Instance), nil
			},
		},
	}
	return pipeline.New("provision", steps...)
}

// discard deletes a server that never became reachable, and forgets it.
func (h *Host) discard(logger log.Logger, p provision.Provider, prod, id string) {
	// the run's context may be what timed out
	ctx := context.Background()
	if err := p.Delete(ctx, id); err != nil {
		level.Error(logger).Log("msg", "could not delete unreachable instance", "instance", id, "err", err)
		return
	}
	if err := h.Registry.SetProduction(prod, nil); err == nil {
		if err := h.saveRegistry(); err != nil {
			level.Error(logger).Log("msg", "could not update registry", "err", err)
		}
	}
	level.Info(logger).Log("msg", "deleted unreachable instance", "instance", id)
}

type DeprovisionRequest struct {
	Site string
}

// Deprovision builds the pipeline that deletes a site's production
// server.
func (h *Host) Deprovision(req DeprovisionRequest) (*pipeline.Pipeline, error) {
	_, prod, err := production(req.Site)
	if err != nil {
		return nil, err
	}
	p, err := h.provider()
	if err != nil {
		return nil, err
	}
	entry, err := h.Registry.Site(prod)
	if err != nil {
		return nil, err
	}
	if entry.Production == nil || entry.Production.Instance == "" {
		return nil, nwperr.Errorf(nwperr.NotRegistered, "no server recorded for %s", prod)
	}
	id := entry.Production.Instance

	return pipeline.New("deprovision",
		pipeline.Step{
			Name: "confirm",
			Gate: fmt.Sprintf("Delete server %s (%s) of %s?", id, entry.Production.Address, prod),
		},
		pipeline.Step{
			Name: "delete instance",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				return id, errors.Wrapf(p.Delete(ctx, id), "deleting instance %s", id)
			},
		},
		pipeline.Step{
			Name: "clear registry",
			Do: func(context.Context, log.Logger) (string, error) {
				if err := h.Registry.SetProduction(prod, nil); err != nil {
					return "", err
				}
				return prod, h.saveRegistry()
			},
		},
	)
}
