package consumerkit

import (
	"context"

	"github.com/242617/karacore/application"
	"github.com/242617/karacore/protocol"
)

// Runtime runs every subscription group as an application.Component,
// reusing the teacher's application.Application for boot/shutdown
// ordering and signal handling (spec §5 "forced-shutdown timer").
type Runtime struct {
	app *application.Application
}

// NewRuntime wraps groups into an application.Application named name.
func NewRuntime(name string, log protocol.Logger, groups []*Group) (*Runtime, error) {
	if log == nil {
		log = protocol.NopLogger{}
	}

	components := make(application.Components, 0, len(groups))
	for _, g := range groups {
		components = append(components, application.NewLifecycleComponent(g.String(), g))
	}

	app, err := application.New(
		application.WithName(name),
		application.WithLogger(log),
		application.WithComponents(components...),
	)
	if err != nil {
		return nil, err
	}
	return &Runtime{app: app}, nil
}

// Run starts every group, blocks until a shutdown signal arrives or ctx is
// cancelled, then stops the groups.
func (r *Runtime) Run(ctx context.Context) error {
	return r.app.Run(ctx)
}
