// Package crew assembles agents and tasks into a runnable crew and drives
// task execution in sequential or hierarchical order.
package crew

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/crewkit/crewkit/internal/agent"
	"github.com/crewkit/crewkit/internal/checkpoint"
	"github.com/crewkit/crewkit/internal/ratelimit"
	"github.com/crewkit/crewkit/pkg/models"
)

// Process selects how tasks are routed to agents.
type Process string

const (
	// ProcessSequential executes tasks in plan order, each by its own
	// assigned agent.
	ProcessSequential Process = "sequential"
	// ProcessHierarchical routes agent-less tasks through a manager
	// agent that delegates to the worker roster.
	ProcessHierarchical Process = "hierarchical"
)

// Valid reports whether p is a recognized process.
func (p Process) Valid() bool {
	return p == ProcessSequential || p == ProcessHierarchical
}

// DefaultCheckpointPath is where task outputs are journaled when the
// configuration does not name a path.
const DefaultCheckpointPath = "crewkit_tasks_output.json"

// Config describes a crew before assembly. Validation happens in New;
// a Config that passes New will not fail structural checks at run time.
type Config struct {
	// Name identifies the crew in logs and run records.
	Name string
	// Agents is the worker roster.
	Agents []*agent.Agent
	// Tasks is the execution plan, in order.
	Tasks []*Task
	// Process selects the routing topology. Defaults to sequential.
	Process Process
	// Manager is an optional pre-built manager for hierarchical crews.
	// It must not carry tools and must not appear in Agents.
	Manager *agent.Agent
	// ManagerExecutor backs the default manager when Manager is nil.
	// Required for hierarchical crews without a supplied manager.
	ManagerExecutor agent.Executor
	// MaxRPM caps model requests per minute across the whole crew.
	// Zero means unlimited.
	MaxRPM int
	// CheckpointPath overrides where the task output journal is written.
	CheckpointPath string
	// PromptFile optionally overrides the built-in prompt templates.
	PromptFile string
	// TaskCallback runs after every completed task, before the next
	// dispatch.
	TaskCallback func(models.TaskResult)
	// EventSink receives run events when non-nil.
	EventSink func(Event)
	// Verbose enables per-task console output.
	Verbose bool
	// DebugLogPath enables file-backed debug logging when non-empty.
	DebugLogPath string
}

// Crew is a validated, runnable set of agents and tasks. A Crew is safe
// to run repeatedly but runs do not overlap; Kickoff serializes.
type Crew struct {
	name             string
	agents           []*agent.Agent
	tasks            []*Task
	process          Process
	manager          *agent.Agent
	managerSupplied  bool
	managerAssembled bool
	managerExecutor  agent.Executor
	limiter          *ratelimit.Controller
	log              *checkpoint.Log
	checkpointPath   string
	promptFile       string
	taskCallback     func(models.TaskResult)
	eventSink        func(Event)
	verbose          bool
	debug            *DebugLogger
	debugPath        string

	mu     sync.Mutex
	inputs map[string]string
}

// New validates cfg and assembles a crew. Every structural rule is
// checked here so that a run can only fail on execution, not wiring.
func New(cfg Config) (*Crew, error) {
	if cfg.Process == "" {
		cfg.Process = ProcessSequential
	}
	for _, t := range cfg.Tasks {
		t.ensureID()
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	path := cfg.CheckpointPath
	if path == "" {
		path = DefaultCheckpointPath
	}

	debug := NopLogger()
	if cfg.DebugLogPath != "" {
		dl, err := NewDebugLogger(cfg.DebugLogPath)
		if err != nil {
			return nil, fmt.Errorf("open debug log: %w", err)
		}
		debug = dl
	}

	return &Crew{
		name:            cfg.Name,
		agents:          cfg.Agents,
		tasks:           cfg.Tasks,
		process:         cfg.Process,
		manager:         cfg.Manager,
		managerSupplied: cfg.Manager != nil,
		managerExecutor: cfg.ManagerExecutor,
		limiter:         ratelimit.New(cfg.MaxRPM),
		log:             checkpoint.NewLog(path),
		checkpointPath:  path,
		promptFile:      cfg.PromptFile,
		taskCallback:    cfg.TaskCallback,
		eventSink:       cfg.EventSink,
		verbose:         cfg.Verbose,
		debug:           debug,
		debugPath:       cfg.DebugLogPath,
	}, nil
}

// Name returns the crew's configured name.
func (c *Crew) Name() string { return c.name }

// Agents returns the worker roster.
func (c *Crew) Agents() []*agent.Agent { return c.agents }

// Tasks returns the execution plan.
func (c *Crew) Tasks() []*Task { return c.tasks }

// Process returns the routing topology.
func (c *Crew) Process() Process { return c.process }

// CheckpointPath returns where the task output journal is written.
func (c *Crew) CheckpointPath() string { return c.checkpointPath }

// Usage sums token usage across the roster and the manager, if any.
func (c *Crew) Usage() models.UsageMetrics {
	var total models.UsageMetrics
	for _, a := range c.agents {
		total.Add(a.Usage())
	}
	if c.manager != nil {
		total.Add(c.manager.Usage())
	}
	return total
}

// Kickoff runs the full plan from the beginning. inputs interpolate into
// agent and task templates before any dispatch; the checkpoint journal is
// reset so it only ever describes the latest run.
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]string) (models.CrewResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.debug.Log("kickoff: crew=%s process=%s tasks=%d", c.name, c.process, len(c.tasks))

	c.inputs = inputs
	c.applyInputs(inputs)

	if err := c.log.Initialize(); err != nil {
		return models.CrewResult{}, fmt.Errorf("initialize checkpoint log: %w", err)
	}
	if err := c.log.Reset(); err != nil {
		return models.CrewResult{}, fmt.Errorf("reset checkpoint log: %w", err)
	}

	stop := c.startLimiter()
	defer stop()

	var manager *agent.Agent
	if c.process == ProcessHierarchical {
		var err error
		manager, err = c.assembleManager()
		if err != nil {
			return models.CrewResult{}, err
		}
	}

	eng := newEngine(c, manager, false)
	final, err := eng.run(ctx, 0, nil)
	if err != nil {
		c.debug.Log("kickoff failed: crew=%s err=%v", c.name, err)
		return models.CrewResult{}, err
	}
	return c.finalize(eng, final), nil
}

// RunFuture is a handle to an in-flight asynchronous kickoff.
type RunFuture struct {
	done   chan struct{}
	result models.CrewResult
	err    error
}

// Wait blocks until the run completes or ctx is canceled.
func (f *RunFuture) Wait(ctx context.Context) (models.CrewResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return models.CrewResult{}, ctx.Err()
	}
}

// Done returns a channel closed when the run completes.
func (f *RunFuture) Done() <-chan struct{} { return f.done }

// KickoffAsync starts a kickoff in the background and returns immediately.
func (c *Crew) KickoffAsync(ctx context.Context, inputs map[string]string) *RunFuture {
	f := &RunFuture{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.result, f.err = c.Kickoff(ctx, inputs)
	}()
	return f
}

// KickoffForEach runs the crew once per input set, serially, each run on
// an independent copy so outputs and checkpoints never collide. The
// original crew is left untouched.
func (c *Crew) KickoffForEach(ctx context.Context, inputSets []map[string]string) ([]models.CrewResult, error) {
	results := make([]models.CrewResult, 0, len(inputSets))
	for i, inputs := range inputSets {
		clone, err := c.Copy(i)
		if err != nil {
			return nil, fmt.Errorf("copy crew for input set %d: %w", i, err)
		}
		result, err := clone.Kickoff(ctx, inputs)
		if err != nil {
			return nil, fmt.Errorf("input set %d: %w", i, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// KickoffForEachAsync runs one copy of the crew per input set
// concurrently. Results are returned in input order; the first failure
// cancels the remaining runs.
func (c *Crew) KickoffForEachAsync(ctx context.Context, inputSets []map[string]string) ([]models.CrewResult, error) {
	results := make([]models.CrewResult, len(inputSets))
	g, gctx := errgroup.WithContext(ctx)
	for i, inputs := range inputSets {
		i, inputs := i, inputs
		clone, err := c.Copy(i)
		if err != nil {
			return nil, fmt.Errorf("copy crew for input set %d: %w", i, err)
		}
		g.Go(func() error {
			result, err := clone.Kickoff(gctx, inputs)
			if err != nil {
				return fmt.Errorf("input set %d: %w", i, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// applyInputs interpolates placeholder variables into every agent and
// task template. Empty input maps are a no-op.
func (c *Crew) applyInputs(inputs map[string]string) {
	if len(inputs) == 0 {
		return
	}
	for _, a := range c.agents {
		a.Interpolate(inputs)
	}
	if c.manager != nil {
		c.manager.Interpolate(inputs)
	}
	for _, t := range c.tasks {
		t.interpolate(inputs)
	}
}

// startLimiter starts the shared request gate and attaches it to every
// agent. The returned stop function is safe to call when no limiter is
// configured.
func (c *Crew) startLimiter() func() {
	if c.limiter == nil {
		return func() {}
	}
	c.limiter.Start()
	for _, a := range c.agents {
		a.SetGate(c.limiter)
	}
	if c.manager != nil {
		c.manager.SetGate(c.limiter)
	}
	return c.limiter.Stop
}

// finalize builds the crew-level result from a finished engine run.
func (c *Crew) finalize(eng *engine, final models.TaskResult) models.CrewResult {
	usage := c.Usage()
	c.debug.Log("run done: crew=%s tasks=%d tokens=%d", c.name, len(eng.outputs), usage.TotalTokens)
	c.emit(Event{Type: EventRunDone, Replay: eng.replay})
	return models.CrewResult{
		Raw:          final.Raw,
		JSONDict:     final.JSONDict,
		OutputFormat: final.OutputFormat,
		TasksOutput:  eng.outputs,
		Usage:        usage,
	}
}
