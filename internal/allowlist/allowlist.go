// Package allowlist is the shared authorization engine for every externally
// invoked program: shell commands, build-tool tasks, and version-control
// subcommands. One policy shape serves all three call sites.
package allowlist

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/codefionn/toolguard/internal/boundary"
)

// Reason identifies why an invocation was refused.
type Reason string

const (
	// ReasonNotAllowed marks a program absent from the allow set.
	ReasonNotAllowed Reason = "command_not_allowed"
	// ReasonBlocked marks a program present in the block set. The block set
	// is checked first and always wins.
	ReasonBlocked Reason = "task_blocked"
	// ReasonInvalidNameFormat marks a program name containing bytes outside
	// the permitted alphabet, rejected before any list comparison.
	ReasonInvalidNameFormat Reason = "invalid_name_format"
	// ReasonTraversalInArgument marks an argument carrying a path-escape
	// pattern or an out-of-boundary absolute path.
	ReasonTraversalInArgument Reason = "path_traversal_in_argument"
	// ReasonDestructiveRequiresOverride marks an invocation matching a
	// destructive rule without the explicit override flag.
	ReasonDestructiveRequiresOverride Reason = "destructive_operation_requires_override"
)

// Denial is the typed refusal returned by Authorize.
type Denial struct {
	Reason Reason
	Name   string
	Detail string
}

func (d *Denial) Error() string {
	if d.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", d.Reason, d.Name, d.Detail)
	}
	return fmt.Sprintf("%s: %s", d.Reason, d.Name)
}

// AsDenial unwraps err into a *Denial if it is one.
func AsDenial(err error) (*Denial, bool) {
	d, ok := err.(*Denial)
	return d, ok
}

// DestructiveRule matches invocations that rewrite history or discard work.
// A match without the caller's override flag is refused regardless of
// allowlist membership.
type DestructiveRule struct {
	// Program the rule applies to; empty matches every program.
	Program string
	// Flags that mark the invocation destructive when any appears verbatim
	// in the argument list.
	Flags []string
	// ArgPattern is an optional doublestar pattern matched against the
	// space-joined argument list.
	ArgPattern string
	// Description names the operation in refusal messages.
	Description string
}

// Policy is the declarative configuration one call site hands the engine.
type Policy struct {
	Allow       []string
	Block       []string
	Destructive []DestructiveRule
	// SafePaths are absolute arguments exempt from the containment test,
	// such as the null and zero devices.
	SafePaths []string
}

// Engine evaluates one Policy. It is immutable after construction and safe
// for concurrent use.
type Engine struct {
	allow       map[string]struct{}
	block       map[string]struct{}
	destructive []DestructiveRule
	safePaths   map[string]struct{}
}

// validName is the permitted program/task name alphabet. Anything else —
// in particular shell metacharacters — is rejected before list comparison,
// so a metacharacter injection can never even look like an allowed name.
var validName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// escapePatterns are scanned case-insensitively in every argument: literal
// traversal plus the URL-encoded equivalents.
var escapePatterns = []string{
	"../",
	`..\`,
	"%2e%2e%2f",
	"..%2f",
	"%2e%2e%5c",
	"..%5c",
}

// DefaultSafePaths are absolute arguments always exempt from containment.
var DefaultSafePaths = []string{
	"/dev/null",
	"/dev/zero",
	"/dev/stdin",
	"/dev/stdout",
	"/dev/stderr",
}

// New builds an Engine from a Policy.
func New(p Policy) *Engine {
	e := &Engine{
		allow:       make(map[string]struct{}, len(p.Allow)),
		block:       make(map[string]struct{}, len(p.Block)),
		destructive: append([]DestructiveRule(nil), p.Destructive...),
		safePaths:   make(map[string]struct{}, len(p.SafePaths)+len(DefaultSafePaths)),
	}
	for _, name := range p.Allow {
		e.allow[name] = struct{}{}
	}
	for _, name := range p.Block {
		e.block[name] = struct{}{}
	}
	for _, path := range DefaultSafePaths {
		e.safePaths[path] = struct{}{}
	}
	for _, path := range p.SafePaths {
		e.safePaths[filepath.Clean(path)] = struct{}{}
	}
	return e
}

// Request is one invocation to authorize.
type Request struct {
	Program string
	Args    []string
	Root    string
	// AllowDestructive is the explicit caller-supplied override for
	// destructive operations. It never bypasses the block set.
	AllowDestructive bool
	// AllowUnlisted skips only the allow-set membership test, for callers
	// holding a session-scoped pre-authorization. Name format, block set,
	// argument scanning, and destructive rules still apply.
	AllowUnlisted bool
}

// Authorize gates one invocation. Evaluation order: name format, block set,
// allow set, per-argument scanning, destructive rules.
func (e *Engine) Authorize(req Request) error {
	name := strings.TrimSpace(req.Program)
	if name == "" || !validName.MatchString(name) {
		return &Denial{Reason: ReasonInvalidNameFormat, Name: req.Program}
	}
	if _, blocked := e.block[name]; blocked {
		return &Denial{Reason: ReasonBlocked, Name: name}
	}
	if _, allowed := e.allow[name]; !allowed && !req.AllowUnlisted {
		return &Denial{Reason: ReasonNotAllowed, Name: name}
	}
	for _, arg := range req.Args {
		if err := e.scanArgument(name, arg, req.Root); err != nil {
			return err
		}
	}
	if rule, matched := e.matchDestructive(name, req.Args); matched && !req.AllowDestructive {
		return &Denial{
			Reason: ReasonDestructiveRequiresOverride,
			Name:   name,
			Detail: rule.Description,
		}
	}
	return nil
}

func (e *Engine) scanArgument(name, arg, root string) error {
	lower := strings.ToLower(arg)
	for _, pattern := range escapePatterns {
		if strings.Contains(lower, pattern) {
			return &Denial{Reason: ReasonTraversalInArgument, Name: name, Detail: arg}
		}
	}
	if !filepath.IsAbs(arg) || root == "" {
		return nil
	}
	clean := filepath.Clean(arg)
	if _, safe := e.safePaths[clean]; safe {
		return nil
	}
	normRoot, err := boundary.NormalizeRoot(root)
	if err != nil {
		return err
	}
	if !boundary.Contained(clean, normRoot) {
		return &Denial{Reason: ReasonTraversalInArgument, Name: name, Detail: arg}
	}
	return nil
}

func (e *Engine) matchDestructive(name string, args []string) (*DestructiveRule, bool) {
	joined := strings.Join(args, " ")
	for i := range e.destructive {
		rule := &e.destructive[i]
		if rule.Program != "" && rule.Program != name {
			continue
		}
		// A rule naming a program with no argument matcher marks the program
		// itself destructive (e.g. a history-rewrite subcommand).
		if rule.Program != "" && len(rule.Flags) == 0 && rule.ArgPattern == "" {
			return rule, true
		}
		for _, flag := range rule.Flags {
			for _, arg := range args {
				if arg == flag {
					return rule, true
				}
			}
		}
		if rule.ArgPattern != "" {
			if ok, err := doublestar.Match(rule.ArgPattern, joined); err == nil && ok {
				return rule, true
			}
		}
	}
	return nil, false
}
