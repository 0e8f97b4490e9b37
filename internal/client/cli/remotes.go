package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/syncer"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

// remote resolves args[0] by name or id, or falls back to the primary.
func (a *App) remote(ctx context.Context, args []string) (*models.Remote, error) {
	if len(args) > 0 {
		return a.remotes.Resolve(ctx, args[0])
	}
	return a.remotes.Primary(ctx)
}

func (a *App) cmdRemotes(ctx context.Context, _ []string) error {
	list, err := a.remotes.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		printlnFn("No remotes. Available types:", strings.Join(a.registry.Types(), ", "))
		return nil
	}
	for _, r := range list {
		state := "offline"
		if r.Connected {
			state = "connected"
		}
		line := fmt.Sprintf("%d %-12s %-6s %s %s clock=%d", r.Rank, r.Name, r.Type, shortID(r.ID), state, r.LastRemoteChange)
		if r.Info != "" {
			line += " (" + r.Info + ")"
		}
		printlnFn(line)
	}
	return nil
}

func (a *App) cmdAddRemote(ctx context.Context, args []string) error {
	name, typ := args[0], args[1]

	cfg := map[string]any{}
	if raw := strings.Join(args[2:], " "); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return fmt.Errorf("remote config must be a JSON object: %w", err)
		}
	}

	if typ == "grpc" {
		if _, ok := cfg["password"]; !ok {
			pw, err := GetPassword("Password for " + name + ":")
			if err != nil {
				return err
			}
			cfg["password"] = string(pw)
			common.WipeByteArray(pw)
		}
	}

	r, err := a.remotes.Add(ctx, name, typ, cfg)
	if err != nil {
		return err
	}
	printlnFn("Added remote", r.Name, r.ID)
	return nil
}

func (a *App) cmdRemoveRemote(ctx context.Context, args []string) error {
	r, err := a.remotes.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.engine.Disconnect(ctx, r.ID); err != nil {
		a.logger.Warn(ctx, "disconnect failed", "remote", r.Name, "error", err)
	}
	return a.remotes.Remove(ctx, r.ID)
}

func (a *App) cmdReorder(ctx context.Context, args []string) error {
	ids := make([]string, 0, len(args))
	for _, ref := range args {
		r, err := a.remotes.Resolve(ctx, ref)
		if err != nil {
			return err
		}
		ids = append(ids, r.ID)
	}
	return a.remotes.Reorder(ctx, ids)
}

func (a *App) cmdConnect(ctx context.Context, args []string) error {
	r, err := a.remotes.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	st, err := a.engine.Connect(ctx, r.ID)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Connected to %s (clock %d) %s", r.Name, st.LastRemoteChange, st.Info))
	return nil
}

type syncOp func(ctx context.Context, remoteID string) (syncer.Result, error)

func (a *App) runSync(ctx context.Context, args []string, verb string, op syncOp) error {
	r, err := a.remote(ctx, args)
	if err != nil {
		return err
	}
	res, err := op(ctx, r.ID)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("%s %s: %s", verb, r.Name, formatResult(res)))
	return nil
}

func (a *App) cmdPull(ctx context.Context, args []string) error {
	return a.runSync(ctx, args, "Pulled", a.engine.Pull)
}

func (a *App) cmdPush(ctx context.Context, args []string) error {
	return a.runSync(ctx, args, "Pushed", a.engine.Push)
}

func (a *App) cmdForcePull(ctx context.Context, args []string) error {
	return a.runSync(ctx, args, "Replaced local collection from", a.engine.ForcePull)
}

func (a *App) cmdForcePush(ctx context.Context, args []string) error {
	return a.runSync(ctx, args, "Replaced remote", a.engine.ForcePush)
}

func (a *App) cmdSync(ctx context.Context, args []string) error {
	r, err := a.remote(ctx, args)
	if err != nil {
		return err
	}
	pulled, pushed, err := a.engine.Sync(ctx, r.ID)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Synced %s: pulled %s; pushed %s", r.Name, formatResult(pulled), formatResult(pushed)))
	return nil
}

func (a *App) cmdStatus(ctx context.Context, _ []string) error {
	changes, err := a.store.Changes(ctx)
	if err != nil {
		return err
	}
	printlnFn("Scope:", a.config.ScopeID)
	printlnFn("Pending journal entries:", len(changes))

	list, err := a.remotes.List(ctx)
	if err != nil {
		return err
	}
	for _, r := range list {
		has, err := a.engine.HasLocalChanges(ctx, r.ID)
		if err != nil {
			return err
		}
		state := "up to date"
		if has {
			state = "local changes not pushed"
		}
		printlnFn(fmt.Sprintf("  %s: %s", r.Name, state))
	}
	return nil
}

// cmdStats prints the sync counters of this session.
func (a *App) cmdStats(_ context.Context, _ []string) error {
	families, err := a.metrics.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), value))
		}
	}
	if len(lines) == 0 {
		printlnFn("No sync activity yet")
		return nil
	}
	sort.Strings(lines)
	for _, l := range lines {
		printlnFn(l)
	}
	return nil
}

func formatResult(r syncer.Result) string {
	parts := []string{}
	add := func(n int, what string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, what))
		}
	}
	add(r.Created, "created")
	add(r.Updated, "updated")
	add(r.Deleted, "deleted")
	add(r.Conflicts, "conflicts")
	add(r.Rescued, "rescued")
	add(r.Pushed, "items sent")
	if len(parts) == 0 {
		return "nothing to do"
	}
	return strings.Join(parts, ", ")
}
