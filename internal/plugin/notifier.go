package plugin

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Notifier delivers events to the plugins subscribed to them.
type Notifier struct {
	manager  *Manager
	executor *Executor

	mu        sync.Mutex
	onFailure func(plugin string, err error)
	wg        sync.WaitGroup
}

// NewNotifier creates a Notifier over the discovered plugins of manager.
func NewNotifier(manager *Manager, executor *Executor) *Notifier {
	return &Notifier{
		manager:  manager,
		executor: executor,
	}
}

// OnFailure registers a callback invoked for every failed delivery.
func (n *Notifier) OnFailure(f func(plugin string, err error)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onFailure = f
}

// Notify delivers ev to every subscriber in turn and returns the combined
// delivery errors.
func (n *Notifier) Notify(ctx context.Context, ev Event) error {
	var errs error
	for _, p := range n.manager.Subscribers(ev.Type) {
		if err := n.deliver(ctx, p, ev); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Dispatch delivers ev in the background. Failures are logged.
func (n *Notifier) Dispatch(ctx context.Context, ev Event) {
	subs := n.manager.Subscribers(ev.Type)
	if len(subs) == 0 {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for _, p := range subs {
			if err := n.deliver(ctx, p, ev); err != nil {
				log.Warnf("notify %s: %s", ev.Type, err)
			}
		}
	}()
}

// Wait blocks until every background delivery has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) deliver(ctx context.Context, p *Plugin, ev Event) error {
	resp, err := n.executor.Execute(ctx, p, &Request{Event: ev})
	if err == nil && !resp.Success {
		err = fmt.Errorf("%s", resp.Error)
	}
	if err == nil {
		log.Debugf("plugin %s handled %s", p.Manifest.Name, ev.Type)
		return nil
	}

	err = fmt.Errorf("plugin %s: %w", p.Manifest.Name, err)

	n.mu.Lock()
	onFailure := n.onFailure
	n.mu.Unlock()
	if onFailure != nil {
		onFailure(p.Manifest.Name, err)
	}

	return err
}
