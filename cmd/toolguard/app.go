package main

import (
	"time"

	"github.com/codefionn/toolguard/internal/allowlist"
	"github.com/codefionn/toolguard/internal/audit"
	"github.com/codefionn/toolguard/internal/buildtool"
	"github.com/codefionn/toolguard/internal/config"
	"github.com/codefionn/toolguard/internal/logger"
	"github.com/codefionn/toolguard/internal/session"
	"github.com/codefionn/toolguard/internal/shell"
	"github.com/codefionn/toolguard/internal/tools"
	"github.com/codefionn/toolguard/internal/vcs"
)

// application wires the validators, runners, and the tool registry together.
type application struct {
	trail    *audit.Trail
	manager  *session.Manager
	registry *tools.Registry
	tasks    *buildtool.Runner
}

func newApplication(cfg *config.Config) (*application, error) {
	trail := audit.Discard()
	if cfg.AuditPath != "" {
		opened, err := audit.Open(cfg.AuditPath)
		if err != nil {
			logger.Warn("audit trail unavailable at %s: %v", cfg.AuditPath, err)
		} else {
			trail = opened
		}
	}

	defaultTimeout := time.Duration(cfg.DefaultTimeout) * time.Second
	runner := shell.NewRunner(cfg.EnvAllowlist, defaultTimeout)

	shellEngine := allowlist.New(allowlist.Policy{
		Allow:     cfg.Shell.Allow,
		Block:     cfg.Shell.Block,
		SafePaths: cfg.Shell.SafePaths,
	})
	vcsEngine := allowlist.New(allowlist.Policy{
		Allow:       cfg.VCS.Allow,
		Block:       cfg.VCS.Block,
		SafePaths:   cfg.VCS.SafePaths,
		Destructive: vcs.DefaultDestructiveRules,
	})
	buildEngine := allowlist.New(allowlist.Policy{
		Allow: cfg.Build.Allow,
		Block: cfg.Build.Block,
	})

	taskRunner := buildtool.NewRunner(buildEngine, runner, cfg.Build.Tasks, defaultTimeout)

	boxFactory := tools.NewSandboxFactory(shellEngine, runner)
	manager := session.NewManager(cfg.DefaultRoot, boxFactory, trail)

	registry := tools.NewRegistry(manager, trail, time.Duration(cfg.ScriptTimeout)*time.Second)
	registry.Register(tools.NewReadFileTool())
	registry.Register(tools.NewWriteFileTool())
	registry.Register(tools.NewListDirectoryTool())
	registry.Register(tools.NewStatPathTool())
	registry.Register(tools.NewDeletePathTool())
	registry.Register(tools.NewMakeDirectoryTool())
	registry.Register(tools.NewCommandTool(shellEngine, runner))
	registry.Register(tools.NewTaskTool(taskRunner))
	registry.Register(tools.NewVCSTool(vcsEngine, runner))
	registry.Register(tools.NewScriptTool())

	return &application{
		trail:    trail,
		manager:  manager,
		registry: registry,
		tasks:    taskRunner,
	}, nil
}

func (a *application) close() {
	a.manager.CloseAll()
	_ = a.trail.Close()
	_ = logger.Global().Close()
}
