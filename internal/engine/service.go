package engine

import (
	"context"
	"time"

	"weave/internal/eventbus"
	"weave/internal/lifecycle"
	"weave/pkg/blueprint"
)

// BlueprintService adapts one service-flagged blueprint (ServiceConfig
// != nil) to lifecycle.Service: OnStart fires the blueprint's Start
// entry points, OnEvent/OnTick re-enter the executor for each matching
// trigger. Grounded on the Service trait in the original's
// service/manager.rs (on_start/on_stop/on_event/on_tick), generalized
// from a native service to one driven by a blueprint's entry nodes.
type BlueprintService struct {
	bp       *blueprint.Blueprint
	executor *Executor
}

func NewBlueprintService(bp *blueprint.Blueprint, executor *Executor) *BlueprintService {
	return &BlueprintService{bp: bp, executor: executor}
}

func (s *BlueprintService) Spec() lifecycle.ServiceSpec {
	cfg := s.bp.ServiceConfig
	spec := lifecycle.ServiceSpec{
		ID:          s.bp.ID,
		Name:        s.bp.Name,
		Description: s.bp.Description,
	}
	if cfg != nil {
		spec.TickInterval = time.Duration(cfg.TickIntervalMS) * time.Millisecond
		spec.Subscriptions = cfg.Subscriptions
		spec.Singleton = cfg.Singleton
		spec.ShutdownTimeout = time.Duration(cfg.ShutdownTimeoutMS) * time.Millisecond
	}
	return spec
}

func (s *BlueprintService) OnStart(ctx context.Context, sc *lifecycle.ServiceContext) error {
	if err := s.executor.LoadBlueprint(s.bp); err != nil {
		return err
	}
	res, err := s.executor.ExecuteBlueprint(ctx, s.bp.ID, Trigger{Kind: TriggerStart})
	if err != nil {
		return err
	}
	if res.Status == StatusFailed {
		return res.Err
	}
	return nil
}

func (s *BlueprintService) OnStop(ctx context.Context, sc *lifecycle.ServiceContext) error {
	timeout := 5 * time.Second
	if s.bp.ServiceConfig != nil && s.bp.ServiceConfig.ShutdownTimeoutMS > 0 {
		timeout = time.Duration(s.bp.ServiceConfig.ShutdownTimeoutMS) * time.Millisecond
	}
	return s.executor.UnloadBlueprint(s.bp.ID, timeout)
}

func (s *BlueprintService) OnEvent(ctx context.Context, sc *lifecycle.ServiceContext, ev eventbus.Event) error {
	res, err := s.executor.ExecuteBlueprint(ctx, s.bp.ID, Trigger{Kind: TriggerEvent, Name: ev.Type})
	if err != nil {
		return err
	}
	if res.Status == StatusFailed {
		return res.Err
	}
	if res.Status == StatusSuspended && sc.Publish != nil {
		sc.Publish(s.bp.ID+"/suspended", suspendedPayload(res))
	}
	return nil
}

func (s *BlueprintService) OnTick(ctx context.Context, sc *lifecycle.ServiceContext) error {
	res, err := s.executor.ExecuteBlueprint(ctx, s.bp.ID, Trigger{Kind: TriggerSchedule, Name: "tick"})
	if err != nil {
		return err
	}
	if res.Status == StatusFailed {
		return res.Err
	}
	return nil
}

func suspendedPayload(res ExecutionResult) map[string]interface{} {
	return map[string]interface{}{"continuationId": res.ContinuationID.String()}
}
