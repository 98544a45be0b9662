// Package executor implements the coordinator/worker-pool run loop
// described in §4.5: a single coordinator goroutine owns the graph,
// the shared cfg map, and all dispatch decisions, while a fixed pool of
// worker goroutines only run subprocesses and report results back over
// a channel. Grounded on the original Rust implementation's run/runner
// functions (original_source/src/lib.rs).
package executor

import (
	"fmt"
	"runtime"
	"sort"

	"forgerun/internal/command"
	"forgerun/internal/graph"
	"forgerun/internal/logger"
	"forgerun/internal/scheduler"
	pkgerrors "forgerun/pkg/errors"
)

// Options configures a Run call. Corresponds to ExecOptions in §4.5.
type Options struct {
	RootDir     string
	Threads     int
	Refresh     bool
	Quiet       bool
	Transparent bool
	Target      string
}

// Progress is invoked by the coordinator after every scheduling decision
// so a caller can drive a progress display. Total/Completed are step
// counts over the focused subgraph; Running is the current set of
// in-flight step names, already sorted by id.
type Progress func(total, completed int, running []string)

// Statistics is the per-step command.Result map produced by a run,
// keyed by step id. Corresponds to RunStatistics.
type Statistics struct {
	Commands map[graph.StepId]command.Result
}

// Run resolves target within steps, focuses the dependency graph on it,
// and drives the pending/running/completed state machine to
// completion, dispatching Cmd payloads to a worker pool and handling
// Expr/Assert payloads inline in the coordinator. It stops dispatching
// new work on the first failing step (Decided Open Question 2: no
// cancellation is sent to steps already running) and returns the error
// that caused the stop.
func Run(steps []*graph.Step, cfg map[string]interface{}, opts Options, progress Progress, log *logger.Logger) (*Statistics, error) {
	targetID, err := findTargetID(steps, opts.Target)
	if err != nil {
		return nil, err
	}

	byID := make(map[graph.StepId]*graph.Step, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}

	g := graph.FromSteps(steps).Focus(targetID)
	p := scheduler.FromGraph(g)

	threads := opts.Threads
	if threads < 1 {
		threads = runtime.NumCPU()
	}

	jobs := make(chan *command.Command)
	// Each step yields at most one result, so a buffer of len(steps) lets
	// a worker hand its result back and take the next job even while the
	// coordinator is itself blocked dispatching to the pool.
	results := make(chan command.Result, len(steps))
	done := make(chan struct{})

	for i := 0; i < threads; i++ {
		go worker(jobs, results, done)
	}

	stats := &Statistics{Commands: make(map[graph.StepId]command.Result)}

	runErr := coordinate(byID, p, cfg, opts, jobs, results, stats, progress, log)

	// On an early return (first failing step), siblings dispatched
	// earlier may still be mid-Run and will try to send their result on
	// results after coordinate has stopped reading it. Keep draining
	// results alongside done so those workers can finish and exit
	// instead of blocking forever on the send.
	close(jobs)
	remaining := threads
	for remaining > 0 {
		select {
		case <-done:
			remaining--
		case <-results:
		}
	}

	return stats, runErr
}

func worker(jobs <-chan *command.Command, results chan<- command.Result, done chan<- struct{}) {
	for cmd := range jobs {
		res, err := cmd.Run()
		if err != nil {
			res = command.Result{StepID: cmd.StepID, Kind: command.Output, ExitCode: -1, Stderr: []byte(err.Error())}
		}
		results <- res
	}
	done <- struct{}{}
}

func coordinate(
	byID map[graph.StepId]*graph.Step,
	p *scheduler.Parallelizer,
	cfg map[string]interface{},
	opts Options,
	jobs chan<- *command.Command,
	results <-chan command.Result,
	stats *Statistics,
	progress Progress,
	log *logger.Logger,
) error {
	freshVars := make(map[graph.StepId]string)

	for {
		for {
			stepID, ok := p.GetTask()
			if !ok {
				break
			}

			reportProgress(p, byID, progress)

			step := byID[stepID]
			payload, err := resolvePayload(step, cfg)
			if err != nil {
				return err
			}

			if payload == nil || payload.Kind == graph.PayloadNone {
				p.MarkComplete(stepID)
				stats.Commands[stepID] = command.Result{StepID: stepID, Kind: command.Virtual}
				reportProgress(p, byID, progress)
				continue
			}

			switch payload.Kind {
			case graph.PayloadCmd:
				cmd := buildCommand(stepID, payload.Cmd, opts)
				if payload.Cmd.Freshvar != "" {
					freshVars[stepID] = payload.Cmd.Freshvar
				}
				jobs <- cmd
			case graph.PayloadExpr:
				cfg[payload.Expr.Name] = payload.Expr.Value
				p.MarkComplete(stepID)
				stats.Commands[stepID] = command.Result{StepID: stepID, Kind: command.Virtual}
				reportProgress(p, byID, progress)
			case graph.PayloadAssert:
				if !payload.Assert.Predicate {
					return pkgerrors.NewAssertionError(stepID.String(), payload.Assert.Message)
				}
				p.MarkComplete(stepID)
				stats.Commands[stepID] = command.Result{StepID: stepID, Kind: command.Virtual}
				reportProgress(p, byID, progress)
			default:
				p.MarkComplete(stepID)
				stats.Commands[stepID] = command.Result{StepID: stepID, Kind: command.Virtual}
				reportProgress(p, byID, progress)
			}
		}

		if p.IsDone() {
			return nil
		}

		res := <-results

		if !res.Success() {
			if log != nil {
				log.Error().Int("exit_code", res.ExitCode).Str("step", res.StepID.String()).Msg("step failed")
			}
			return pkgerrors.NewCommandError(res.StepID.String(), res.ExitCode, res.Stdout, res.Stderr)
		}

		stats.Commands[res.StepID] = res
		if name, ok := freshVars[res.StepID]; ok {
			cfg[name] = res.IsFresh()
			delete(freshVars, res.StepID)
		}
		p.MarkComplete(res.StepID)
		reportProgress(p, byID, progress)
	}
}

// resolvePayload follows the step's payload-producer chain (a step may
// be defined to defer materializing its payload until cfg values
// produced by earlier steps are available) until a terminal
// StepPayload is reached.
func resolvePayload(step *graph.Step, cfg map[string]interface{}) (*graph.StepPayload, error) {
	if step.Condition != nil {
		ok, err := step.Condition(cfg)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}

	payload := step.Payload
	producer := step.Producer
	for producer != nil {
		var err error
		payload, producer, err = producer(cfg)
		if err != nil {
			return nil, err
		}
	}
	return payload, nil
}

func buildCommand(stepID graph.StepId, c *graph.Cmd, opts Options) *command.Command {
	cwd := c.Cwd
	if cwd == "" {
		cwd = opts.RootDir
	}
	return &command.Command{
		StepID:      stepID,
		Argv:        c.Argv,
		Inputs:      c.Inputs,
		OutputPath:  c.Output,
		Cwd:         cwd,
		StdoutFile:  c.StdoutFile,
		StderrFile:  c.StderrFile,
		Env:         c.Env,
		Transparent: opts.Transparent,
		Refresh:     opts.Refresh,
	}
}

func reportProgress(p *scheduler.Parallelizer, byID map[graph.StepId]*graph.Step, progress Progress) {
	if progress == nil {
		return
	}
	ids := p.RunningIDsSorted()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, byID[id].Name)
	}
	progress(p.TotalCount(), p.CompletedCount(), names)
}

func findTargetID(steps []*graph.Step, targetName string) (graph.StepId, error) {
	matches := make([]*graph.Step, 0, 1)
	for _, s := range steps {
		if s.TargetName == targetName {
			matches = append(matches, s)
		}
	}
	if len(matches) == 0 {
		return 0, pkgerrors.NewValidationError("target", fmt.Sprintf("no step named %q", targetName), nil)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches[0].ID, nil
}

// TruncateEllipsis limits s to maxLen runes, replacing any truncated
// tail with a single unicode ellipsis. Used by progress reporting to
// keep the running-step summary within the terminal width.
func TruncateEllipsis(maxLen int, s string) string {
	if maxLen < 1 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}
