package rules

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/combat"
)

// SuddenDeathHook is the global function a rule script defines:
//
//	function sudden_death_multiplier(stalled_ticks, level) return 1.5 end
const SuddenDeathHook = "sudden_death_multiplier"

// ErrMissingHook is returned by LoadDir when scripts load but none defines
// SuddenDeathHook.
var ErrMissingHook = errors.New("rule scripts define no " + SuddenDeathHook)

type script struct {
	name  string
	proto *lua.FunctionProto
}

// Manager holds the compiled rule scripts and builds one VM per match.
// All methods are safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	scripts   []script
	instLimit int
	fallback  combat.EscalatingRule
	logger    *zap.Logger
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: logger must be non-nil.
// Postcondition: instLimit <= 0 selects DefaultInstructionLimit. Until LoadDir
// succeeds NewRule returns the built-in escalating rule.
func NewManager(instLimit int, logger *zap.Logger) *Manager {
	if logger == nil {
		panic("rules.NewManager: logger must not be nil")
	}
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	return &Manager{
		instLimit: instLimit,
		fallback:  combat.DefaultSuddenDeathRule(),
		logger:    logger,
	}
}

// LoadDir compiles every *.lua file in dir in lexicographic order and checks
// that together they define SuddenDeathHook. An empty directory clears the
// scripts.
//
// Postcondition: On error the previously loaded scripts stay active.
func (m *Manager) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("rules: reading script dir %q: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	scripts := make([]script, 0, len(paths))
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("rules: reading %q: %w", path, err)
		}
		proto, err := compile(filepath.Base(path), src)
		if err != nil {
			return err
		}
		scripts = append(scripts, script{name: filepath.Base(path), proto: proto})
	}

	if len(scripts) > 0 {
		L, err := m.newState(scripts)
		if err != nil {
			return err
		}
		_, ok := L.GetGlobal(SuddenDeathHook).(*lua.LFunction)
		L.Close()
		if !ok {
			return fmt.Errorf("rules: %q: %w", dir, ErrMissingHook)
		}
	}

	m.mu.Lock()
	m.scripts = scripts
	m.mu.Unlock()
	m.logger.Info("rule scripts loaded", zap.String("dir", dir), zap.Int("count", len(scripts)))
	return nil
}

func compile(name string, src []byte) (*lua.FunctionProto, error) {
	chunk, err := parse.Parse(bytes.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("rules: parsing %q: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("rules: compiling %q: %w", name, err)
	}
	return proto, nil
}

// newState builds a sandbox, registers the arena module and runs scripts.
func (m *Manager) newState(scripts []script) (*lua.LState, error) {
	L := NewSandboxedState()
	m.registerModules(L)
	for _, s := range scripts {
		err := withBudget(L, m.instLimit, func() error {
			L.Push(L.NewFunctionFromProto(s.proto))
			return L.PCall(0, lua.MultRet, nil)
		})
		if err != nil {
			L.Close()
			return nil, fmt.Errorf("rules: running %q: %w", s.name, err)
		}
	}
	return L, nil
}

// NewRule returns the sudden-death rule for one match: a private VM over the
// loaded scripts, or the built-in escalating rule when none are loaded.
//
// Postcondition: A returned *ScriptRule must be closed by the caller.
func (m *Manager) NewRule() (combat.SuddenDeathRule, error) {
	m.mu.RLock()
	scripts := m.scripts
	m.mu.RUnlock()
	if len(scripts) == 0 {
		return m.fallback, nil
	}
	L, err := m.newState(scripts)
	if err != nil {
		return nil, err
	}
	return &ScriptRule{L: L, instLimit: m.instLimit, fallback: m.fallback, logger: m.logger}, nil
}

// ScriptRule is a combat.SuddenDeathRule backed by a Lua VM. It is owned by a
// single match and is not safe for concurrent use.
type ScriptRule struct {
	L         *lua.LState
	instLimit int
	fallback  combat.EscalatingRule
	logger    *zap.Logger
}

// Multiplier calls the script hook. Any runtime error, exhausted budget, or
// non-finite or non-numeric result falls back to the built-in rule and is
// logged at Warn; script failures never stop a match.
func (r *ScriptRule) Multiplier(stalledTicks int64, level int) float64 {
	ret, err := callLimited(r.L, r.instLimit, SuddenDeathHook, lua.LNumber(stalledTicks), lua.LNumber(level))
	if err != nil {
		r.logger.Warn("rules: Lua runtime error",
			zap.String("hook", SuddenDeathHook),
			zap.Error(err),
		)
		return r.fallback.Multiplier(stalledTicks, level)
	}
	n, ok := ret.(lua.LNumber)
	if !ok || math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
		r.logger.Warn("rules: hook returned a non-number",
			zap.String("hook", SuddenDeathHook),
			zap.String("value", ret.String()),
		)
		return r.fallback.Multiplier(stalledTicks, level)
	}
	return float64(n)
}

// Close releases the VM.
func (r *ScriptRule) Close() error {
	r.L.Close()
	return nil
}
